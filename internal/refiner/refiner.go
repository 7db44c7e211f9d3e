// Package refiner polishes a finished Khmer translation with a language
// model. The model is asked to fix grammar and flow only; meaning and line
// structure must stay as they are.
package refiner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/khmertran/internal/chunker"
	"github.com/valpere/khmertran/internal/placeholder"
	"github.com/valpere/khmertran/internal/postprocess"
	"github.com/valpere/khmertran/internal/retry"
)

// SystemInstruction is sent with every polishing request.
const SystemInstruction = "You are a professional Khmer language editor. " +
	"Your task is to improve clarity, grammar, and flow of Khmer text. " +
	"Only rewrite sentences if they sound unnatural or unclear. " +
	"Do NOT change meaning. " +
	"Preserve paragraphs and line breaks."

const (
	DefaultTemperature = 0.2
	DefaultMaxChars    = 12000
)

// ErrEmptyReply is returned when the model answers a non-empty batch with
// nothing.
var ErrEmptyReply = errors.New("language model returned an empty reply")

// ErrMarkersLost is returned when the reply dropped protected addresses.
var ErrMarkersLost = errors.New("language model dropped protected markers")

// Refiner improves the fluency of a translated text.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}

// Completer is a chat-style generative model.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

type PolisherConfig struct {
	Temperature float32
	// MaxChars caps the runes sent per request. Paragraphs are packed into
	// batches up to this size; zero sends the whole text in one request.
	MaxChars    int
	Workers     int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Polisher is the Refiner backed by a Completer.
type Polisher struct {
	completer Completer
	config    PolisherConfig
	logger    *zap.Logger
}

func NewPolisher(completer Completer, config PolisherConfig, logger *zap.Logger) *Polisher {
	if config.Temperature < 0 {
		config.Temperature = DefaultTemperature
	}
	if config.MaxChars < 0 {
		config.MaxChars = DefaultMaxChars
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Polisher{
		completer: completer,
		config:    config,
		logger:    logger,
	}
}

// Refine polishes text batch by batch and returns the batches rejoined in
// order, trimmed. Any batch that cannot be polished fails the whole call.
func (p *Polisher) Refine(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	batches := chunker.Pack(chunker.Paragraphs(text), p.config.MaxChars)
	out := make([]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, batch := range batches {
		g.Go(func() error {
			polished, err := p.batch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
			}
			out[i] = polished
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	p.logger.Debug("Polishing complete",
		zap.String("model", p.completer.Name()),
		zap.Int("batches", len(batches)))

	return strings.TrimSpace(strings.Join(out, chunker.ParagraphSeparator)), nil
}

func (p *Polisher) batch(ctx context.Context, batch string) (string, error) {
	if strings.TrimSpace(batch) == "" {
		return batch, nil
	}

	cfg := retry.Config{
		Attempts:     p.config.MaxAttempts,
		InitialDelay: p.config.RetryDelay,
		Timeout:      p.config.Timeout,
	}

	protected, markers := placeholder.Protect(batch)
	system := SystemInstruction
	if len(markers) > 0 {
		system += " " + placeholder.InstructionHint()
	}

	var polished string
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		reply, err := p.completer.Complete(ctx, system, protected, p.config.Temperature)
		if err != nil {
			return err
		}
		reply = postprocess.Clean(reply)
		if reply == "" {
			return ErrEmptyReply
		}
		if missing := placeholder.Validate(reply, markers); len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrMarkersLost, missing)
		}
		polished = placeholder.Restore(reply, markers)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.completer.Name(), err)
	}
	return polished, nil
}
