// Package latch provides a non-blocking single-flight guard: the second
// attempt to take a held key fails at once with apperr.ErrInFlight instead of
// waiting.
package latch

import (
	"context"
	"sync"

	"licoreria-pos/apperr"
)

// Latch is held for the duration of one guarded operation.
type Latch interface {
	// Acquire takes key or fails with apperr.ErrInFlight. The returned
	// release func must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is a process-local latch.
type Local struct {
	held sync.Map // map[string]struct{}
}

func NewLocal() *Local { return &Local{} }

func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	if _, loaded := l.held.LoadOrStore(key, struct{}{}); loaded {
		return nil, apperr.ErrInFlight
	}
	var once sync.Once
	return func() { once.Do(func() { l.held.Delete(key) }) }, nil
}
