// Package query caches backend responses by key. Entries stay fresh for a
// fixed period, concurrent fetches of one key share a single request, and
// failed fetches are retried according to a per-query policy.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key identifies a query, e.g. {"initData", "7"}.
type Key []string

func NewKey(parts ...any) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

func (k Key) HasPrefix(prefix Key) bool {
	return len(prefix) <= len(k) && k[:len(prefix)].Equal(prefix)
}

// RetryFunc decides whether to try again after a failure. failureCount is
// the number of failures before this one, so the first failure sees 0.
type RetryFunc func(failureCount int, err error) bool

// DefaultRetry allows three retries.
func DefaultRetry(failureCount int, _ error) bool {
	return failureCount < 3
}

type Options struct {
	StaleTime     time.Duration
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Retry         RetryFunc
	Logger        *zap.Logger
	Now           func() time.Time
}

type entry struct {
	key         Key
	data        any
	updatedAt   time.Time
	invalidated bool
}

type flight struct {
	key   Key
	stale bool
}

type Client struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*flight
	group    singleflight.Group

	staleTime     time.Duration
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	retry         RetryFunc
	now           func() time.Time
	log           *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(opts Options) *Client {
	if opts.StaleTime <= 0 {
		opts.StaleTime = 5 * time.Minute
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = 30 * time.Second
	}
	if opts.Retry == nil {
		opts.Retry = DefaultRetry
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		entries:       make(map[string]*entry),
		inflight:      make(map[string]*flight),
		staleTime:     opts.StaleTime,
		retryDelay:    opts.RetryDelay,
		maxRetryDelay: opts.MaxRetryDelay,
		retry:         opts.Retry,
		now:           opts.Now,
		log:           opts.Logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Close aborts every in-flight fetch.
func (c *Client) Close() {
	c.cancel()
}

type fetchConfig struct {
	retry RetryFunc
}

type FetchOption func(*fetchConfig)

// WithRetry overrides the client's retry policy for one query.
func WithRetry(fn RetryFunc) FetchOption {
	return func(fc *fetchConfig) {
		fc.retry = fn
	}
}

// Peek returns the cached value for key, whether it is still fresh, and
// whether anything was cached at all.
func Peek[T any](c *Client, key Key) (data T, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key.String()]
	if !found {
		return data, false, false
	}
	v, typed := e.data.(T)
	if !typed {
		return data, false, false
	}
	return v, c.freshLocked(e), true
}

// Fetch returns fresh cached data for key or calls fn. Callers asking for
// the same key concurrently share one call of fn. The shared call is
// detached from the first caller's cancellation; a caller whose ctx ends
// stops waiting and gets ctx.Err().
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error), opts ...FetchOption) (T, error) {
	var zero T
	if data, fresh, ok := Peek[T](c, key); ok && fresh {
		return data, nil
	}

	cfg := fetchConfig{retry: c.retry}
	for _, opt := range opts {
		opt(&cfg)
	}

	ks := key.String()
	ch := c.group.DoChan(ks, func() (any, error) {
		f := c.beginFlight(ks, key)

		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stop := context.AfterFunc(c.ctx, cancel)
		defer stop()
		defer cancel()

		v, err := c.run(shared, key, func(ctx context.Context) (any, error) {
			return fn(ctx)
		}, cfg.retry)
		c.endFlight(ks, f, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached %T is not %T", ks, res.Val, zero)
		}
		return v, nil
	}
}

// Invalidate marks every entry under prefix stale, so the next Fetch goes
// to the backend. Fetches already in flight for those keys are detached:
// later Fetch calls start a new request instead of joining them, and their
// results are not cached as fresh.
func (c *Client) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for ks, f := range c.inflight {
		if f.key.HasPrefix(prefix) {
			f.stale = true
			delete(c.inflight, ks)
			c.group.Forget(ks)
		}
	}
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.invalidated = true
			n++
		}
	}
	c.log.Debug("queries invalidated", zap.Stringer("prefix", prefix), zap.Int("entries", n))
}

func (c *Client) freshLocked(e *entry) bool {
	return !e.invalidated && c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Client) beginFlight(ks string, key Key) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &flight{key: key}
	c.inflight[ks] = f
	return f
}

func (c *Client) endFlight(ks string, f *flight, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[ks] == f {
		delete(c.inflight, ks)
	}
	if err != nil {
		return
	}
	if f.stale {
		// Superseded by an invalidation; keep the value only as a
		// placeholder when nothing newer exists.
		if _, exists := c.entries[ks]; !exists {
			c.entries[ks] = &entry{key: f.key, data: v, updatedAt: c.now(), invalidated: true}
		}
		return
	}
	c.entries[ks] = &entry{key: f.key, data: v, updatedAt: c.now()}
}

func (c *Client) run(ctx context.Context, key Key, fn func(context.Context) (any, error), retry RetryFunc) (any, error) {
	for failures := 0; ; failures++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !retry(failures, err) {
			c.log.Debug("query failed",
				zap.Stringer("key", key), zap.Int("attempts", failures+1), zap.Error(err))
			return nil, err
		}

		delay := c.backoff(failures)
		c.log.Debug("query retrying",
			zap.Stringer("key", key), zap.Int("failures", failures+1),
			zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
}

func (c *Client) backoff(failures int) time.Duration {
	d := c.retryDelay
	for i := 0; i < failures && d < c.maxRetryDelay; i++ {
		d *= 2
	}
	if d > c.maxRetryDelay {
		d = c.maxRetryDelay
	}
	return d
}
