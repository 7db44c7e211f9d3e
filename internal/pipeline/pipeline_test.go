package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/khmertran/internal"
	"github.com/valpere/khmertran/internal/cache"
	"github.com/valpere/khmertran/internal/detector"
	"github.com/valpere/khmertran/internal/orchestrator"
	"github.com/valpere/khmertran/internal/translator"
)

type fakeExtractor struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

func (f *fakeExtractor) PageCount(data []byte) (int, error) { return 1, nil }

type fakeOCR struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeOCR) Recognize(ctx context.Context, data []byte) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

// prefixService "translates" by tagging the text. The first outages calls
// fail.
type prefixService struct {
	calls   atomic.Int32
	outages atomic.Int32
}

func (s *prefixService) Name() string { return "prefix" }

func (s *prefixService) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	s.calls.Add(1)
	if s.outages.Add(-1) >= 0 {
		return nil, errors.New("service unavailable")
	}
	return &translator.ServiceResult{ServiceName: "prefix", TranslatedText: "ខ្មែរ(" + req.Text + ")"}, nil
}

type scriptDetector struct{}

func (scriptDetector) Detect(text string) (string, error) {
	if detector.IsKhmer(text) {
		return "km", nil
	}
	return "en", nil
}

type fakeRefiner struct {
	fn    func(ctx context.Context, text string) (string, error)
	calls atomic.Int32
}

func (f *fakeRefiner) Refine(ctx context.Context, text string) (string, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx, text)
	}
	return text, nil
}

type fakeExporter struct {
	calls atomic.Int32
	last  string
}

func (f *fakeExporter) Export(text string) ([]byte, error) {
	f.calls.Add(1)
	f.last = text
	return []byte("docx:" + text), nil
}

type harness struct {
	extractor *fakeExtractor
	ocr       *fakeOCR
	service   *prefixService
	refiner   *fakeRefiner
	exporter  *fakeExporter
}

func newHarness(extracted, recognized string) *harness {
	return &harness{
		extractor: &fakeExtractor{text: extracted},
		ocr:       &fakeOCR{text: recognized},
		service:   &prefixService{},
		refiner:   &fakeRefiner{},
		exporter:  &fakeExporter{},
	}
}

func (h *harness) pipeline(config Config, memo *cache.Memo) *Pipeline {
	tr := orchestrator.New(h.service, translator.ServiceConfig{}, scriptDetector{}, orchestrator.OrchestratorConfig{
		Workers:     2,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	}, nil)

	return New(Components{
		Extractor:  h.extractor,
		OCR:        h.ocr,
		Translator: tr,
		Refiner:    h.refiner,
		Exporter:   h.exporter,
		Memo:       memo,
	}, config, nil)
}

var pdf = internal.Document{Filename: "in.pdf", Data: []byte("%PDF-1.4 fake")}

func TestPipeline_OCRFallbackTrigger(t *testing.T) {
	tests := []struct {
		name      string
		extracted string
		wantOCR   bool
		source    Source
	}{
		{name: "empty text layer", extracted: "", wantOCR: true, source: SourceOCR},
		{name: "10 characters", extracted: "0123456789", wantOCR: true, source: SourceOCR},
		{name: "one below threshold", extracted: strings.Repeat("a", DefaultShortTextThreshold-1), wantOCR: true, source: SourceOCR},
		{name: "at threshold", extracted: strings.Repeat("a", DefaultShortTextThreshold), wantOCR: false, source: SourceTextLayer},
		{name: "500 characters", extracted: strings.Repeat("word ", 100), wantOCR: false, source: SourceTextLayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.extracted, "Scanned page text.")
			p := h.pipeline(Config{SkipPolish: true}, nil)

			res, err := p.Run(context.Background(), pdf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := h.ocr.calls.Load() > 0; got != tt.wantOCR {
				t.Errorf("expected OCR invoked=%v, got %v", tt.wantOCR, got)
			}
			if res.Source != tt.source {
				t.Errorf("expected source %q, got %q", tt.source, res.Source)
			}
		})
	}
}

func TestPipeline_Run_TextLayerTwoParagraphs(t *testing.T) {
	// the sample is 29 runes, so the threshold is lowered to keep the text layer
	h := newHarness("Hello world.\n\nThis is a test.", "")
	p := h.pipeline(Config{ShortTextThreshold: 10}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.ocr.calls.Load() != 0 {
		t.Error("expected no OCR")
	}
	if res.Normalized != res.Extracted {
		t.Errorf("expected normalization to be a no-op, got %q", res.Normalized)
	}
	if res.Translated != "ខ្មែរ(Hello world.)\n\nខ្មែរ(This is a test.)" {
		t.Errorf("unexpected translation %q", res.Translated)
	}
	if res.Paragraphs != 2 || res.TranslatedParagraphs != 2 {
		t.Errorf("expected 2 of 2 paragraphs translated, got %d of %d", res.TranslatedParagraphs, res.Paragraphs)
	}
	if h.refiner.calls.Load() != 1 {
		t.Errorf("expected one polishing call, got %d", h.refiner.calls.Load())
	}
	if string(res.Document) != "docx:"+res.Polished {
		t.Errorf("expected exported polished text, got %q", res.Document)
	}
	if res.Filename != "khmer_ai_polished.docx" {
		t.Errorf("unexpected filename %q", res.Filename)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestPipeline_Run_ScannedFallsBackToOCR(t *testing.T) {
	h := newHarness("", "Scanned   page one.  \n\nScanned page two.")
	p := h.pipeline(Config{}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.ocr.calls.Load() != 1 {
		t.Errorf("expected OCR once, got %d", h.ocr.calls.Load())
	}
	if res.Source != SourceOCR {
		t.Errorf("expected source ocr, got %q", res.Source)
	}
	if res.Normalized != "Scanned page one.\n\nScanned page two." {
		t.Errorf("expected normalized OCR text, got %q", res.Normalized)
	}
	if res.TranslatedParagraphs != 2 {
		t.Errorf("expected both OCR paragraphs translated, got %d", res.TranslatedParagraphs)
	}
	if res.Document == nil {
		t.Error("expected a document")
	}
}

func TestPipeline_Run_PolishingTimeoutKeepsTranslation(t *testing.T) {
	h := newHarness(strings.Repeat("English sentence. ", 3), "")
	h.refiner.fn = func(ctx context.Context, text string) (string, error) {
		return "", context.DeadlineExceeded
	}
	p := h.pipeline(Config{}, nil)

	res, err := p.Run(context.Background(), pdf)
	if !errors.Is(err, ErrPolishingService) {
		t.Fatalf("expected ErrPolishingService, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the timeout to be the cause, got %v", err)
	}

	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StagePolish {
		t.Errorf("expected *Error at stage polish, got %#v", err)
	}
	if res == nil || res.Translated == "" {
		t.Fatal("expected the unpolished translation to be returned")
	}
	if res.Document != nil || h.exporter.calls.Load() != 0 {
		t.Error("expected no document to be exported")
	}
}

func TestPipeline_SkipPolish(t *testing.T) {
	h := newHarness(strings.Repeat("English sentence. ", 3), "")
	p := h.pipeline(Config{SkipPolish: true}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.refiner.calls.Load() != 0 {
		t.Error("expected polishing to be skipped")
	}
	if h.exporter.last != res.Translated {
		t.Errorf("expected translation exported, got %q", h.exporter.last)
	}
}

func TestPipeline_EmptyDocument(t *testing.T) {
	h := newHarness("", "")
	p := h.pipeline(Config{}, nil)

	_, err := p.Run(context.Background(), internal.Document{})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if h.extractor.calls.Load() != 0 {
		t.Error("expected extraction not to run")
	}
}

func TestPipeline_ExtractionFailureFallsBackToOCR(t *testing.T) {
	h := newHarness("", "Recognised text that is long enough.")
	h.extractor.err = errors.New("malformed xref")
	p := h.pipeline(Config{SkipPolish: true}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != SourceOCR || res.Extracted != "Recognised text that is long enough." {
		t.Errorf("expected OCR text, got %q from %q", res.Extracted, res.Source)
	}
}

func TestPipeline_OCRUnavailable(t *testing.T) {
	h := newHarness("", "")
	h.ocr.err = errors.New("mupdf cannot open")
	p := h.pipeline(Config{}, nil)

	_, err := p.Run(context.Background(), pdf)
	if !errors.Is(err, ErrRecognition) {
		t.Errorf("expected ErrRecognition, got %v", err)
	}
}

func TestPipeline_NoTextFound(t *testing.T) {
	h := newHarness("", "")
	p := h.pipeline(Config{}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Extracted != "" || res.Document == nil {
		t.Errorf("expected an empty document, got %q", res.Extracted)
	}
}

func TestPipeline_ForceOCR(t *testing.T) {
	h := newHarness(strings.Repeat("text layer ", 10), "ocr text")
	p := h.pipeline(Config{ForceOCR: true, SkipPolish: true}, nil)

	res, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.extractor.calls.Load() != 0 {
		t.Error("expected text layer to be skipped")
	}
	if res.Extracted != "ocr text" {
		t.Errorf("expected OCR text, got %q", res.Extracted)
	}
}

func TestPipeline_MemoizesRepeatedRuns(t *testing.T) {
	h := newHarness(strings.Repeat("English sentence. ", 3), "")
	memo := cache.New(16, time.Minute)
	p := h.pipeline(Config{SkipPolish: true}, memo)

	first, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.extractor.calls.Load() != 1 {
		t.Errorf("expected extraction once, got %d", h.extractor.calls.Load())
	}
	if h.service.calls.Load() != 1 {
		t.Errorf("expected translation once, got %d", h.service.calls.Load())
	}
	if first.Translated != second.Translated {
		t.Error("expected identical translations")
	}
	if first.RunID == second.RunID {
		t.Error("expected distinct run ids")
	}
}

func TestPipeline_DegradedTranslationNotMemoized(t *testing.T) {
	h := newHarness("A long enough English paragraph for the text layer.", "")
	h.service.outages.Store(1)
	memo := cache.New(8, time.Hour)
	p := h.pipeline(Config{SkipPolish: true}, memo)

	first, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.FailedParagraphs != 1 || first.Translated != first.Normalized {
		t.Fatalf("expected the paragraph kept after the outage, got failed=%d %q", first.FailedParagraphs, first.Translated)
	}

	second, err := p.Run(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.service.calls.Load() != 2 {
		t.Errorf("expected the service to be asked again, got %d calls", h.service.calls.Load())
	}
	if want := "ខ្មែរ(" + first.Normalized + ")"; second.Translated != want {
		t.Errorf("expected %q after recovery, got %q", want, second.Translated)
	}
	if second.FailedParagraphs != 0 {
		t.Errorf("expected no failed paragraphs, got %d", second.FailedParagraphs)
	}

	if _, err := p.Run(context.Background(), pdf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.service.calls.Load() != 2 {
		t.Errorf("expected the full translation to be memoized, got %d calls", h.service.calls.Load())
	}
}

func TestPipeline_Acquire(t *testing.T) {
	h := newHarness("Line   one  \n\nLine two that makes it long enough", "")
	var stages []Stage
	p := h.pipeline(Config{Progress: func(s Stage) { stages = append(stages, s) }}, nil)

	res, err := p.Acquire(context.Background(), pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Normalized != "Line one\n\nLine two that makes it long enough" {
		t.Errorf("unexpected normalized text %q", res.Normalized)
	}
	if h.service.calls.Load() != 0 {
		t.Error("expected no translation")
	}
	if len(stages) != 2 || stages[0] != StageExtract || stages[1] != StageNormalize {
		t.Errorf("unexpected stages %v", stages)
	}
}

func TestError_Message(t *testing.T) {
	err := newError(StagePolish, ErrPolishingService, errors.New("timeout"))
	if err.Error() != "polish: polishing service failure: timeout" {
		t.Errorf("unexpected message %q", err.Error())
	}

	bare := newError(StageExtract, ErrEmptyDocument, nil)
	if bare.Error() != "extract: empty document" {
		t.Errorf("unexpected message %q", bare.Error())
	}
	if !errors.Is(ConfigError(errors.New("missing key")), ErrConfiguration) {
		t.Error("expected ConfigError to match ErrConfiguration")
	}
}
