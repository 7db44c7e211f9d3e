package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractor_Extract_Empty(t *testing.T) {
	e := New(nil)

	text, err := e.Extract(context.Background(), nil)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestExtractor_Extract_NotAPDF(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), []byte("this is plainly not a pdf document"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestPageCount_NotAPDF(t *testing.T) {
	if _, err := PageCount([]byte("garbage")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestExtractor_Extract_TextLayer(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "hello.pdf"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	text, err := New(nil).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Hello") {
		t.Errorf("expected extracted text to contain 'Hello', got %q", text)
	}
	if text != strings.TrimSpace(text) {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestExtractor_Extract_NoTextLayer(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "blank.pdf"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	text, err := New(nil).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected no text for a page without a text layer, got %q", text)
	}
}

func TestExtractor_Extract_Cancelled(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "hello.pdf"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(nil).Extract(ctx, data); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPageCount_Fixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "hello.pdf"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	n, err := New(nil).PageCount(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 page, got %d", n)
	}
}
