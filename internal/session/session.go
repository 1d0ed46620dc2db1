// Package session implements per-upstream admission control: a bounded
// in-flight slot pool combined with a token bucket rate limiter.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/asibalo/netflix-critic/internal/telemetry"
)

// Config controls one upstream session.
type Config struct {
	// MaxInFlight caps simultaneous requests; 0 disables the cap.
	MaxInFlight int
	// RequestsPerSecond caps admission rate with no burst allowance;
	// 0 disables rate limiting.
	RequestsPerSecond float64
}

// Session is the sole admission-control point for one upstream. Every
// call to that upstream must hold a permit obtained from Acquire.
type Session struct {
	name    string
	slots   chan struct{}
	limiter *rate.Limiter
}

// New builds a Session named after its upstream (the name labels the
// rate-limit delay metric).
func New(name string, cfg Config) *Session {
	s := &Session{name: name}
	if cfg.MaxInFlight > 0 {
		s.slots = make(chan struct{}, cfg.MaxInFlight)
	}
	if cfg.RequestsPerSecond > 0 {
		// Burst of one token: no bursting beyond the steady rate.
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s
}

// Acquire blocks until both an in-flight slot and a rate token are
// available, or the context finishes. On success it returns a release
// func that must be called on every exit path; calling it more than
// once never frees a slot some other request holds.
func (s *Session) Acquire(ctx context.Context) (func(), error) {
	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s slot wait canceled: %w", s.name, ctx.Err())
		}
	}
	if s.limiter != nil {
		start := time.Now()
		if err := s.limiter.Wait(ctx); err != nil {
			s.release()
			return nil, fmt.Errorf("%s rate limit wait: %w", s.name, err)
		}
		if delay := time.Since(start); delay > time.Millisecond {
			telemetry.ObserveRateLimitDelay(s.name, delay)
		}
	}
	var once sync.Once
	return func() { once.Do(s.release) }, nil
}

func (s *Session) release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}

// Name returns the upstream label.
func (s *Session) Name() string {
	return s.name
}
