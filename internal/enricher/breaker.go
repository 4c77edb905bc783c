package enricher

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"SmartPick/internal/logger"
)

// BreakerCompleter stops calling a failing endpoint for a cooldown period.
// Calls made while open fail fast with gobreaker.ErrOpenState.
type BreakerCompleter struct {
	inner Completer
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps inner so that failures consecutive failures open the circuit for cooldown.
func WithBreaker(inner Completer, failures uint32, cooldown time.Duration) *BreakerCompleter {
	st := gobreaker.Settings{Name: "llm"}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= failures }
	st.Timeout = cooldown
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("circuit %s: %s -> %s", name, from, to)
	}
	return &BreakerCompleter{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

// Complete forwards to the wrapped Completer unless the circuit is open.
func (b *BreakerCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, system, user)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the circuit state.
func (b *BreakerCompleter) State() gobreaker.State { return b.cb.State() }
