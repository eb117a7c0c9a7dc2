package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Settler paces crawl steps with a bounded jittered delay. It replaces
// tight polling after navigation and pagination: dynamically rendered
// review content needs a moment to settle, and a fixed cadence with
// jitter keeps the remote session from being hammered.
type Settler struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
}

func NewSettler(minDelay, maxDelay time.Duration) *Settler {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Settler{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks for a jittered delay in [min, max], or until the context is
// cancelled.
func (s *Settler) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay()):
		return nil
	}
}

func (s *Settler) SetDelay(minDelay, maxDelay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minDelay = minDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	s.maxDelay = maxDelay
}

func (s *Settler) delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minDelay == s.maxDelay {
		return s.minDelay
	}

	delta := s.maxDelay - s.minDelay
	return s.minDelay + time.Duration(rand.Int63n(int64(delta)))
}
