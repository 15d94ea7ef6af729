package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// pacer spaces polls: a fixed interval when idle, doubling up to maxBackoff
// after consecutive failures. Every wait carries up to jitterWindow of jitter.
type pacer struct {
	base    time.Duration
	backoff time.Duration
}

func newPacer(base time.Duration) *pacer {
	if base <= 0 {
		base = defaultPoll
	}
	return &pacer{base: base, backoff: base}
}

func (p *pacer) idle() time.Duration {
	p.backoff = p.base
	return jitter(p.base)
}

func (p *pacer) failed() time.Duration {
	p.backoff = min(p.backoff*2, maxBackoff)
	return jitter(p.backoff)
}

func (p *pacer) reset() {
	p.backoff = p.base
}

func jitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
