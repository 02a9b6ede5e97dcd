// Package pages holds the per-client page controllers. A controller owns
// the view state of one page, persists it, and drives the keyed backend
// query that the page renders.
package pages

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"sector-intel/models"
	"sector-intel/query"
	"sector-intel/viewstate"
)

type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Deps are shared by every controller of one client.
type Deps struct {
	Queries *query.Client
	Store   viewstate.Storage
	Catalog *models.Catalog
	Logger  *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// tracker follows the query for the current key. Every fetch is tagged with
// the key and a sequence number; a completion is applied only if it belongs
// to the current key and is newer than the last applied one. All methods
// are called with the owning controller's lock held.
type tracker[T any] struct {
	key      query.Key
	issued   uint64
	applied  uint64
	status   Status
	fetching bool
	data     T
	err      error
	settled  chan struct{}
}

func newTracker[T any]() tracker[T] {
	settled := make(chan struct{})
	close(settled)
	return tracker[T]{settled: settled}
}

// begin switches to key and reports whether the backend must be asked.
// Cached data for key is shown immediately, even if stale.
func (t *tracker[T]) begin(c *query.Client, key query.Key) (seq uint64, settled chan struct{}, fetch bool) {
	t.key = key
	t.issued++
	t.settled = make(chan struct{})
	t.err = nil

	data, fresh, ok := query.Peek[T](c, key)
	if ok {
		t.status = StatusReady
		t.data = data
	} else {
		var zero T
		t.status = StatusLoading
		t.data = zero
	}

	if ok && fresh {
		t.applied = t.issued
		t.fetching = false
		close(t.settled)
		return t.issued, t.settled, false
	}
	t.fetching = true
	return t.issued, t.settled, true
}

// finish applies a completion and reports whether it was current.
func (t *tracker[T]) finish(key query.Key, seq uint64, data T, err error) bool {
	if !key.Equal(t.key) || seq <= t.applied {
		return false
	}
	t.applied = seq
	t.fetching = seq != t.issued
	if err != nil {
		t.status = StatusError
		t.err = err
		return true
	}
	t.status = StatusReady
	t.data = data
	t.err = nil
	return true
}

// waitSettled blocks until the channel current at wake-up time is closed,
// following key switches made while waiting.
func waitSettled(ctx context.Context, mu *sync.Mutex, current func() chan struct{}) {
	for {
		mu.Lock()
		ch := current()
		mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return
		}

		mu.Lock()
		same := current() == ch
		mu.Unlock()
		if same {
			return
		}
	}
}

// detach returns a context that keeps ctx's values, outlives its
// cancellation, and ends with lifetime instead.
func detach(ctx, lifetime context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
