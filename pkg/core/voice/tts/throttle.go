package tts

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// ThrottleConfig bounds requests against a provider-imposed limit.
// Zero values disable the corresponding bound.
type ThrottleConfig struct {
	RPS         float64 // sustained requests per second
	Burst       int     // token bucket burst size
	MaxInFlight int64   // concurrent request cap
}

// Throttled wraps a Synthesizer with a token bucket and a concurrency
// cap. Synthesize blocks until both admit the request or the context is
// cancelled, so the pipeline never exceeds what the provider allows no
// matter how far its lookahead races ahead.
type Throttled struct {
	inner   Synthesizer
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewThrottled wraps a synthesizer with the given limits.
func NewThrottled(inner Synthesizer, cfg ThrottleConfig) *Throttled {
	t := &Throttled{inner: inner}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	if cfg.MaxInFlight > 0 {
		t.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	return t
}

// Name returns the wrapped provider identifier.
func (t *Throttled) Name() string {
	return t.inner.Name()
}

// Synthesize waits for admission, then delegates to the wrapped provider.
func (t *Throttled) Synthesize(ctx context.Context, text string, opts types.VoiceOptions) (*Synthesis, error) {
	if t.sem != nil {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer t.sem.Release(1)
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.inner.Synthesize(ctx, text, opts)
}
