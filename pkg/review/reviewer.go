// Package review requests a natural-language critique of a scored profile
// from a generative text service, spacing calls out with a Gate.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

const DefaultRetries = 3

// ErrRetriesExhausted is returned when every attempt was rate limited.
var ErrRetriesExhausted = errors.New("review rate limited after all retries")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Reviewer builds prompts and calls the generator through the gate.
type Reviewer struct {
	gen     Generator
	gate    *Gate
	retries int
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithGate replaces the default gate.
func WithGate(g *Gate) Option {
	return func(r *Reviewer) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithRetries sets how many times a rate-limited call is attempted.
func WithRetries(n int) Option {
	return func(r *Reviewer) {
		if n > 0 {
			r.retries = n
		}
	}
}

// NewReviewer creates a reviewer over gen.
func NewReviewer(gen Generator, opts ...Option) *Reviewer {
	r := &Reviewer{
		gen:     gen,
		gate:    NewGate(DefaultInterval),
		retries: DefaultRetries,
		now:     time.Now,
		sleep:   sleep,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Review returns the critique for in. It fails with a *CooldownError when
// the gate is closed and with ErrRetriesExhausted when every attempt was
// rate limited.
func (r *Reviewer) Review(ctx context.Context, in Input) (string, error) {
	if err := r.gate.Acquire(r.now()); err != nil {
		return "", err
	}

	ok := false
	defer func() { r.gate.Done(r.now(), ok) }()

	prompt := BuildPrompt(in)

	var lastErr error
	for attempt := 0; attempt < r.retries; attempt++ {
		text, err := r.gen.Generate(ctx, prompt)
		if err == nil {
			ok = true
			slog.Debug("review generated", "attempt", attempt+1, "calls", r.gate.Stats().Calls+1)
			return text, nil
		}

		if !IsRateLimited(err) {
			return "", fmt.Errorf("generating review: %w", err)
		}
		lastErr = err

		if attempt == r.retries-1 {
			break
		}

		wait := time.Duration(1<<attempt) * time.Second
		slog.Warn("review rate limited, retrying",
			"attempt", attempt+1,
			"wait", wait.String(),
		)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// Stats returns the gate counters.
func (r *Reviewer) Stats() GateStats {
	return r.gate.Stats()
}

// IsRateLimited reports whether err is an HTTP 429 from the service.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
