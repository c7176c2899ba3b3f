package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/roster-scan/internal/common"
)

// Invoker issues one logical model call across an ordered list of candidate models.
type Invoker struct {
	gen         Generator
	models      []string
	timeout     time.Duration
	temperature float32
	log         *slog.Logger
}

// NewInvoker builds an invoker. timeout bounds each candidate attempt; zero means no bound.
func NewInvoker(gen Generator, models []string, timeout time.Duration, temperature float32, logger *slog.Logger) *Invoker {
	return &Invoker{
		gen:         gen,
		models:      append([]string(nil), models...),
		timeout:     timeout,
		temperature: temperature,
		log:         common.LoggerOr(logger),
	}
}

// Invoke runs parts against the configured candidates.
func (i *Invoker) Invoke(ctx context.Context, stage string, parts []Part) (string, error) {
	return i.InvokeWith(ctx, stage, parts, i.models, i.timeout)
}

// InvokeWith tries each candidate in order. A "model not found" failure moves on to the next
// candidate; any other failure is returned immediately. When every candidate was not found
// the last such error is returned. An empty or blocked response stays ErrMalformed so callers
// treat it like an unreadable payload.
func (i *Invoker) InvokeWith(ctx context.Context, stage string, parts []Part, candidates []string, budget time.Duration) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	req := Request{Parts: parts, Temperature: i.temperature, JSON: true}
	promptBytes, images := promptSize(parts)

	var lastNotFound *ModelError
	for n, model := range candidates {
		start := time.Now()
		text, err := i.attempt(ctx, model, req, budget)
		elapsed := time.Since(start).Milliseconds()
		if err == nil {
			i.log.Info("llm.invoke.ok",
				"request_id", rid, "stage", stage, "model", model, "attempt", n+1,
				"prompt_bytes", promptBytes, "images", images,
				"response_bytes", len(text), "elapsed_ms", elapsed,
			)
			return text, nil
		}

		if errors.Is(err, ErrMalformed) {
			i.log.Warn("llm.invoke.empty",
				"request_id", rid, "stage", stage, "model", model, "attempt", n+1,
				"error", err, "elapsed_ms", elapsed,
			)
			return "", err
		}
		me := AsModelError(err, model)
		if me.IsNotFound() {
			i.log.Warn("llm.invoke.model_not_found",
				"request_id", rid, "stage", stage, "model", model, "attempt", n+1,
				"status", me.Status, "elapsed_ms", elapsed,
			)
			lastNotFound = me
			continue
		}
		i.log.Error("llm.invoke.failed",
			"request_id", rid, "stage", stage, "model", model, "attempt", n+1,
			"status", me.Status, "timeout", me.Timeout, "error", me.Message, "elapsed_ms", elapsed,
		)
		return "", me
	}

	if lastNotFound != nil {
		return "", lastNotFound
	}
	i.log.Error("llm.invoke.no_candidates", "request_id", rid, "stage", stage)
	return "", &ModelError{Status: http.StatusNotFound, Message: "no model candidates configured"}
}

func (i *Invoker) attempt(ctx context.Context, model string, req Request, budget time.Duration) (string, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	text, err := i.gen.Generate(ctx, model, req)
	if err != nil && ctx.Err() != nil {
		me := AsModelError(err, model)
		me.Timeout = me.Timeout || ctx.Err() == context.DeadlineExceeded
		return "", me
	}
	return text, err
}

func promptSize(parts []Part) (textBytes, images int) {
	for _, p := range parts {
		if p.IsImage() {
			images++
			continue
		}
		textBytes += len(p.Text)
	}
	return textBytes, images
}
