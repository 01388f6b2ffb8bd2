package providers

import (
	"context"
	"log/slog"
	"time"

	"adaptstudio/internal/core"
)

// GenerationObserver is notified after every generator call.
type GenerationObserver interface {
	ObserveGeneration(provider string, err error, elapsed time.Duration)
}

type instrumentedGenerator struct {
	inner    core.ImageGenerator
	observer GenerationObserver
}

// Instrument wraps g so every call is logged and reported to observer.
// A nil observer only logs.
func Instrument(g core.ImageGenerator, observer GenerationObserver) core.ImageGenerator {
	return &instrumentedGenerator{inner: g, observer: observer}
}

func (w *instrumentedGenerator) Name() string {
	return w.inner.Name()
}

func (w *instrumentedGenerator) Generate(ctx context.Context, req *core.GenerationRequest) (*core.ResultImage, error) {
	start := time.Now()
	result, err := w.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	attrs := []any{
		"provider", w.inner.Name(),
		"parts", len(req.Parts),
		"duration_ms", elapsed.Milliseconds(),
	}
	if id := core.GetRequestID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if err != nil {
		slog.WarnContext(ctx, "image generation failed", append(attrs, "error", err)...)
	} else {
		slog.InfoContext(ctx, "image generated", append(attrs, "mime_type", result.MIMEType, "bytes", len(result.Data))...)
	}

	if w.observer != nil {
		w.observer.ObserveGeneration(w.inner.Name(), err, elapsed)
	}
	return result, err
}
