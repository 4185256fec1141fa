package governor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// Limiter wraps a token-bucket rate limiter for upstream HTTP calls.
type Limiter struct {
	limiter *rate.Limiter
	source  string
}

// NewLimiter creates a limiter allowing rps requests per second with the given burst.
// rps <= 0 disables limiting.
func NewLimiter(rps float64, burst int, source string) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		source:  source,
	}
}

// Wait blocks until the limiter allows one event, or ctx is done.
// Reserve guarantees exactly one token is consumed per call.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		observability.RecordRateLimitWait(l.source)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
