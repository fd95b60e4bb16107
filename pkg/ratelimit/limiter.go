package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Wait blocks until a request may be sent or ctx is done
	Wait(ctx context.Context) error
}

// Pacer is a token bucket over golang.org/x/time/rate sized in requests per minute
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing requestsPerMinute with the given burst.
// A non-positive requestsPerMinute disables pacing.
func NewPacer(requestsPerMinute, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	if requestsPerMinute <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &Pacer{limiter: rate.NewLimiter(every, burst)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
