package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a collection of goroutines sharing one cancellation
// context that can be stopped together.
type StoppableWorkers struct {
	mu         sync.Mutex
	cancelCtx  context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewStoppableWorkers runs the functions in separate goroutines. They can be stopped later.
func NewStoppableWorkers(ctx context.Context, funcs ...func(context.Context)) *StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(ctx)
	sw := &StoppableWorkers{cancelCtx: cancelCtx, cancelFunc: cancelFunc}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts a goroutine for each function. After Stop it does nothing.
func (sw *StoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil {
		return
	}

	sw.workers.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.workers.Done()
			f(sw.cancelCtx)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.workers.Wait()
}

// Context returns the context workers are watching.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.cancelCtx
}

// LatestSlot is a one element mailbox. Put replaces any value that has not
// been taken yet, so a slow consumer only ever sees the newest value.
type LatestSlot[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	ready   chan struct{}
	dropped int64
}

// NewLatestSlot returns an empty slot.
func NewLatestSlot[T any]() *LatestSlot[T] {
	return &LatestSlot[T]{ready: make(chan struct{}, 1)}
}

// Put stores v. It reports whether an untaken value was replaced.
func (s *LatestSlot[T]) Put(v T) bool {
	s.mu.Lock()
	replaced := s.full
	if replaced {
		s.dropped++
	}
	s.value = v
	s.full = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return replaced
}

// TryTake removes and returns the stored value if there is one.
func (s *LatestSlot[T]) TryTake() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, true
}

// Take blocks until a value is available or ctx is done.
func (s *LatestSlot[T]) Take(ctx context.Context) (T, error) {
	for {
		if v, ok := s.TryTake(); ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-s.ready:
		}
	}
}

// Dropped returns how many values were replaced before being taken.
func (s *LatestSlot[T]) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
