// Package ratelimit keeps the estimated token usage of outbound language-model
// requests under a per-minute budget. It is local to one process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Span is the length of the sliding window.
const Span = 60 * time.Second

// DefaultTokensPerMinute matches the provider quota the pipeline was tuned for.
const DefaultTokensPerMinute = 280000

type entry struct {
	at     time.Time
	tokens int
}

// Window is a sliding record of (timestamp, estimated tokens) pairs.
// It is safe for concurrent use. The lock is released while a caller waits.
type Window struct {
	budget int

	mu      sync.Mutex
	entries []entry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *logrus.Entry
}

type Option func(*Window)

// WithClock replaces the time source and the sleeper, mainly for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Window) {
		w.now = now
		w.sleep = sleep
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(w *Window) { w.log = log }
}

// New returns a window admitting at most budget estimated tokens per Span.
func New(budget int, opts ...Option) *Window {
	if budget <= 0 {
		budget = DefaultTokensPerMinute
	}
	w := &Window{
		budget: budget,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Budget returns the configured tokens per window.
func (w *Window) Budget() int { return w.budget }

// Used returns the sum of non-expired entries at the current time.
func (w *Window) Used() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(w.now())
	return w.sum()
}

// Admit blocks until a request of the given estimate may be sent, then records
// it. While the estimate would push usage over the budget it sleeps exactly
// until the oldest entry leaves the window. A request larger than the whole
// budget is admitted once the window is empty. Another caller may take the
// freed room first, in which case Admit waits again. It returns the total wait.
func (w *Window) Admit(ctx context.Context, tokens int) (time.Duration, error) {
	var waited time.Duration
	for {
		w.mu.Lock()
		now := w.now()
		w.expire(now)
		used := w.sum()
		if len(w.entries) == 0 || used+tokens <= w.budget {
			w.entries = append(w.entries, entry{at: now, tokens: tokens})
			w.mu.Unlock()
			return waited, nil
		}
		wait := Span - now.Sub(w.entries[0].at)
		w.mu.Unlock()

		if w.log != nil {
			w.log.WithFields(logrus.Fields{
				"used":      used,
				"requested": tokens,
				"budget":    w.budget,
				"wait_s":    wait.Seconds(),
			}).Info("token budget reached, waiting for window to free up")
		}
		if err := w.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

func (w *Window) expire(now time.Time) {
	i := 0
	for i < len(w.entries) && now.Sub(w.entries[i].at) >= Span {
		i++
	}
	w.entries = w.entries[i:]
}

func (w *Window) sum() int {
	total := 0
	for _, e := range w.entries {
		total += e.tokens
	}
	return total
}

// EstimateTokens is the conservative heuristic used for admission: half the
// prompt length in characters plus the full output allowance.
func EstimateTokens(prompt string, maxOutput int) int {
	return len(prompt)/2 + maxOutput
}
