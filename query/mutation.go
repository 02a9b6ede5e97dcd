package query

import (
	"context"
	"sync"
)

type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

func (s MutationStatus) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationSuccess:
		return "success"
	case MutationError:
		return "error"
	default:
		return "idle"
	}
}

type MutationState[T any] struct {
	Status MutationStatus
	Data   T
	Err    error
}

func (s MutationState[T]) Pending() bool { return s.Status == MutationPending }

// Mutation runs a side-effecting backend call at most once at a time and
// exposes its outcome. onSuccess runs before the state flips to success.
type Mutation[T any] struct {
	mu        sync.Mutex
	fn        func(context.Context) (T, error)
	onSuccess func(T)
	state     MutationState[T]
	done      chan struct{}
}

func NewMutation[T any](fn func(context.Context) (T, error), onSuccess func(T)) *Mutation[T] {
	done := make(chan struct{})
	close(done)
	return &Mutation[T]{fn: fn, onSuccess: onSuccess, done: done}
}

// Mutate starts the call in the background. It returns false, doing
// nothing, while a previous call is still pending.
func (m *Mutation[T]) Mutate(ctx context.Context) bool {
	m.mu.Lock()
	if m.state.Status == MutationPending {
		m.mu.Unlock()
		return false
	}
	m.state = MutationState[T]{Status: MutationPending}
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		data, err := m.fn(ctx)
		if err == nil && m.onSuccess != nil {
			m.onSuccess(data)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.state = MutationState[T]{Status: MutationError, Err: err}
			return
		}
		m.state = MutationState[T]{Status: MutationSuccess, Data: data}
	}()
	return true
}

func (m *Mutation[T]) State() MutationState[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait blocks until the current call finishes or ctx ends.
func (m *Mutation[T]) Wait(ctx context.Context) MutationState[T] {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return m.State()
}
