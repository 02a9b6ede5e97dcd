package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sector-intel/api"
	"sector-intel/models"
	"sector-intel/query"
	"sector-intel/viewstate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore(kv ...string) *memStore {
	s := &memStore{values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *memStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *memStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// fakeBackend counts calls and blocks any call whose gate is set.
type fakeBackend struct {
	mu          sync.Mutex
	initCalls   map[int]int
	initGates   map[int]chan struct{}
	detailCalls map[string]int
	detailErr   error
	counts      map[string]int

	pipelineGate chan struct{}
	pipelineErr  error
	pipelineRuns int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		initCalls:   map[int]int{},
		initGates:   map[int]chan struct{}{},
		detailCalls: map[string]int{},
	}
}

func (f *fakeBackend) gate(days int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.initGates[days] = ch
	return ch
}

func (f *fakeBackend) calls(days int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls[days]
}

func (f *fakeBackend) detailCallCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) GetInitData(ctx context.Context, days int) (*models.InitData, error) {
	f.mu.Lock()
	f.initCalls[days]++
	call := f.initCalls[days]
	gate := f.initGates[days]
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	marker := fmt.Sprintf("days=%d call=%d", days, call)
	return &models.InitData{LastPipelineRun: &marker}, nil
}

func (f *fakeBackend) RunPipeline(ctx context.Context) (*models.PipelineRunResult, error) {
	f.mu.Lock()
	f.pipelineRuns++
	gate, err := f.pipelineGate, f.pipelineErr
	f.mu.Unlock()

	if werr := wait(ctx, gate); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return &models.PipelineRunResult{Status: "ok", ElapsedSeconds: 12.5}, nil
}

func (f *fakeBackend) RefreshFinancials(context.Context) (*models.FinancialsRefresh, error) {
	return &models.FinancialsRefresh{FinancialsUpdated: 11}, nil
}

func (f *fakeBackend) GetSectorDetail(_ context.Context, id string, days int, signalType string) (*models.SectorDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[id]++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return &models.SectorDetail{
		Sector:             models.Sector{ID: id, Name: fmt.Sprintf("%s/%d/%s", id, days, signalType)},
		SignalCountsByType: f.counts,
	}, nil
}

func newDeps(t *testing.T, store viewstate.Storage) Deps {
	t.Helper()
	q := query.NewClient(query.Options{})
	t.Cleanup(q.Close)
	return Deps{Queries: q, Store: store, Catalog: models.NewCatalog(nil)}
}

func marker(v DashboardView) string {
	if v.Data == nil || v.Data.LastPipelineRun == nil {
		return ""
	}
	return *v.Data.LastPipelineRun
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTrackerDiscardsStaleCompletions(t *testing.T) {
	q := query.NewClient(query.Options{})
	defer q.Close()

	tr := newTracker[string]()
	k7, k14 := query.NewKey("initData", 7), query.NewKey("initData", 14)

	seq7, _, fetch := tr.begin(q, k7)
	require.True(t, fetch)
	assert.Equal(t, StatusLoading, tr.status)
	seq14, _, _ := tr.begin(q, k14)

	assert.False(t, tr.finish(k7, seq7, "seven", nil), "abandoned key")
	assert.Equal(t, StatusLoading, tr.status)

	assert.True(t, tr.finish(k14, seq14, "fourteen", nil))
	assert.Equal(t, StatusReady, tr.status)
	assert.Equal(t, "fourteen", tr.data)
	assert.False(t, tr.fetching)

	again, _, _ := tr.begin(q, k14)
	assert.False(t, tr.finish(k14, seq14, "old", nil), "older sequence for the same key")
	assert.True(t, tr.finish(k14, again, "new", nil))
	assert.Equal(t, "new", tr.data)
}

func TestDashboardRehydratesViewState(t *testing.T) {
	be := newFakeBackend()
	store := newMemStore(
		viewstate.KeyTimeWindow, "14",
		viewstate.KeySignalType, "esg",
		viewstate.KeyViewType, "list",
	)
	d := NewDashboard(be, newDeps(t, store))
	defer d.Close()

	v := d.Wait(waitCtx(t))
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, viewstate.ViewState{TimeWindow: 14, SignalType: "esg", ViewType: viewstate.ViewList}, v.State)
	assert.Equal(t, 1, be.calls(14))
	assert.Equal(t, 0, be.calls(7))
}

func TestDashboardCorruptStateFallsBack(t *testing.T) {
	be := newFakeBackend()
	store := newMemStore(
		viewstate.KeyTimeWindow, "99",
		viewstate.KeySignalType, "nonsense",
		viewstate.KeyViewType, "carousel",
	)
	d := NewDashboard(be, newDeps(t, store))
	defer d.Close()

	v := d.Wait(waitCtx(t))
	assert.Equal(t, viewstate.Defaults(), v.State)
	assert.Equal(t, 1, be.calls(7))
}

func TestDashboardIgnoresAbandonedWindow(t *testing.T) {
	be := newFakeBackend()
	release7 := be.gate(7)
	deps := newDeps(t, newMemStore())
	d := NewDashboard(be, deps)
	defer d.Close()

	assert.Equal(t, StatusLoading, d.Snapshot().Status)
	require.NoError(t, d.SetTimeWindow(14))

	v := d.Wait(waitCtx(t))
	require.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "days=14 call=1", marker(v))

	close(release7)
	require.Eventually(t, func() bool {
		_, _, ok := query.Peek[*models.InitData](deps.Queries, query.NewKey("initData", 7))
		return ok
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	v = d.Snapshot()
	assert.Equal(t, 14, v.State.TimeWindow)
	assert.Equal(t, "days=14 call=1", marker(v))
}

func TestDashboardServesCachedWindows(t *testing.T) {
	be := newFakeBackend()
	store := newMemStore()
	d := NewDashboard(be, newDeps(t, store))
	defer d.Close()
	ctx := waitCtx(t)

	d.Wait(ctx)
	require.NoError(t, d.SetTimeWindow(30))
	d.Wait(ctx)
	require.NoError(t, d.SetTimeWindow(7))

	v := d.Snapshot()
	assert.Equal(t, StatusReady, v.Status, "cached window renders without waiting")
	assert.False(t, v.Fetching)
	assert.Equal(t, "days=7 call=1", marker(v))
	assert.Equal(t, 1, be.calls(7))
	assert.Equal(t, 1, be.calls(30))

	raw, _ := store.Get(viewstate.KeyTimeWindow)
	assert.Equal(t, "7", raw)
}

func TestDashboardSettersValidateAndPersist(t *testing.T) {
	be := newFakeBackend()
	store := newMemStore()
	d := NewDashboard(be, newDeps(t, store))
	defer d.Close()
	d.Wait(waitCtx(t))

	assert.ErrorIs(t, d.SetTimeWindow(5), viewstate.ErrInvalidValue)
	assert.ErrorIs(t, d.SetSignalType("weather"), viewstate.ErrInvalidValue)
	assert.ErrorIs(t, d.SetSignalType(string(models.SignalNeutral)), viewstate.ErrInvalidValue)
	assert.ErrorIs(t, d.SetViewType("table"), viewstate.ErrInvalidValue)

	require.NoError(t, d.SetSignalType(string(models.SignalRegulatory)))
	require.NoError(t, d.SetViewType(viewstate.ViewList))

	v := d.Snapshot()
	assert.Equal(t, "regulatory", v.State.SignalType)
	assert.Equal(t, viewstate.ViewList, v.State.ViewType)
	assert.Equal(t, 1, be.calls(7), "filter and view changes do not refetch")

	raw, _ := store.Get(viewstate.KeyViewType)
	assert.Equal(t, "list", raw)
	raw, _ = store.Get(viewstate.KeySignalType)
	assert.Equal(t, "regulatory", raw)
}

func TestDashboardPipelineRefetches(t *testing.T) {
	be := newFakeBackend()
	be.pipelineGate = make(chan struct{})
	d := NewDashboard(be, newDeps(t, newMemStore()))
	defer d.Close()
	ctx := waitCtx(t)
	d.Wait(ctx)

	require.True(t, d.RunPipeline(context.Background()))
	assert.False(t, d.RunPipeline(context.Background()), "trigger disabled while pending")
	v := d.Snapshot()
	assert.True(t, v.Pipeline.Pending())
	assert.True(t, v.Busy())

	refetch := be.gate(7)
	close(be.pipelineGate)
	st := d.pipeline.Wait(ctx)
	require.Equal(t, query.MutationSuccess, st.Status)
	assert.Equal(t, 12.5, st.Data.ElapsedSeconds)

	v = d.Snapshot()
	assert.Equal(t, StatusReady, v.Status, "old data stays visible")
	assert.True(t, v.Fetching)
	assert.Equal(t, "days=7 call=1", marker(v))

	close(refetch)
	v = d.Wait(ctx)
	assert.False(t, v.Fetching)
	assert.Equal(t, "days=7 call=2", marker(v))
	assert.Equal(t, 1, be.pipelineRuns)
}

func TestDashboardPipelineFailureKeepsData(t *testing.T) {
	be := newFakeBackend()
	be.pipelineErr = errors.New("pipeline exploded")
	d := NewDashboard(be, newDeps(t, newMemStore()))
	defer d.Close()
	ctx := waitCtx(t)
	d.Wait(ctx)

	require.True(t, d.RunPipeline(ctx))
	st := d.pipeline.Wait(ctx)
	assert.Equal(t, query.MutationError, st.Status)

	v := d.Snapshot()
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "days=7 call=1", marker(v))
	assert.Equal(t, 1, be.calls(7))

	assert.True(t, d.RunPipeline(ctx), "trigger re-armed")
	d.pipeline.Wait(ctx)
}

func TestDashboardFinancialsRefresh(t *testing.T) {
	be := newFakeBackend()
	d := NewDashboard(be, newDeps(t, newMemStore()))
	defer d.Close()
	ctx := waitCtx(t)
	d.Wait(ctx)

	require.True(t, d.RefreshFinancials(ctx))
	st := d.financials.Wait(ctx)
	require.Equal(t, query.MutationSuccess, st.Status)
	assert.Equal(t, 11, st.Data.FinancialsUpdated)

	v := d.Wait(ctx)
	assert.Equal(t, "days=7 call=2", marker(v))
}

func TestDashboardErrorState(t *testing.T) {
	be := &failingInit{fakeBackend: newFakeBackend()}
	q := query.NewClient(query.Options{Retry: func(int, error) bool { return false }})
	defer q.Close()
	d := NewDashboard(be, Deps{Queries: q, Store: newMemStore()})
	defer d.Close()

	v := d.Wait(waitCtx(t))
	assert.Equal(t, StatusError, v.Status)
	assert.Error(t, v.Err)
	assert.Nil(t, v.Data)
}

type failingInit struct {
	*fakeBackend
}

func (f *failingInit) GetInitData(context.Context, int) (*models.InitData, error) {
	return nil, &api.StatusError{Method: http.MethodGet, Path: "/api/init", StatusCode: http.StatusBadGateway}
}

func TestSectorDetailFilterScope(t *testing.T) {
	be := newFakeBackend()
	be.counts = map[string]int{"esg": 2, "supply_chain": 1}
	store := newMemStore(viewstate.KeyTimeWindow, "14")
	s := NewSectorDetail(be, newDeps(t, store))
	defer s.Close()
	ctx := waitCtx(t)

	s.Open("tech")
	v := s.Wait(ctx)
	require.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "tech/14/all", v.Data.Sector.Name)

	require.NoError(t, s.SetSignalType("esg"))
	v = s.Wait(ctx)
	assert.Equal(t, "tech/14/esg", v.Data.Sector.Name)

	require.NoError(t, s.SetSignalType("supply_chain"), "codes present in counts are accepted")
	assert.ErrorIs(t, s.SetSignalType("weather"), viewstate.ErrInvalidValue)
	s.Wait(ctx)

	require.NoError(t, s.SetTimeWindow(30))
	v = s.Wait(ctx)
	assert.Equal(t, viewstate.AllSignalTypes, v.SignalType, "window change resets the filter")
	assert.Equal(t, "tech/30/all", v.Data.Sector.Name)
	raw, _ := store.Get(viewstate.KeyTimeWindow)
	assert.Equal(t, "30", raw)
	_, persisted := store.Get(viewstate.KeySignalType)
	assert.False(t, persisted, "detail filter is not persisted")
}

func TestSectorDetailRemount(t *testing.T) {
	be := newFakeBackend()
	store := newMemStore()
	s := NewSectorDetail(be, newDeps(t, store))
	defer s.Close()
	ctx := waitCtx(t)

	s.Open("tech")
	s.Wait(ctx)
	require.NoError(t, s.SetSignalType("esg"))
	s.Wait(ctx)

	s.Show("tech")
	assert.Equal(t, "esg", s.Snapshot().SignalType, "same sector keeps its filter")

	require.NoError(t, store.Set(viewstate.KeyTimeWindow, "30"))
	s.Show("energy")
	v := s.Wait(ctx)
	assert.Equal(t, "energy", v.SectorID)
	assert.Equal(t, 30, v.TimeWindow)
	assert.Equal(t, viewstate.AllSignalTypes, v.SignalType)
	assert.Equal(t, "energy/30/all", v.Data.Sector.Name)
}

func TestSectorDetailRetryPolicy(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCalls    int
		wantNotFound bool
	}{
		{"not found is final", &api.StatusError{StatusCode: http.StatusNotFound, Detail: "Sector not found"}, 1, true},
		{"server error retried twice", &api.StatusError{StatusCode: http.StatusInternalServerError}, 3, false},
		{"network error retried twice", errors.New("connection refused"), 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := newFakeBackend()
			be.detailErr = tt.err
			s := NewSectorDetail(be, newDeps(t, newMemStore()))
			defer s.Close()

			s.Open("nope")
			v := s.Wait(waitCtx(t))
			assert.Equal(t, StatusError, v.Status)
			assert.Equal(t, tt.wantNotFound, v.NotFound)
			assert.Equal(t, tt.wantCalls, be.detailCallCount("nope"))
		})
	}
}

func TestSessions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	be := newFakeBackend()
	q := query.NewClient(query.Options{})
	defer q.Close()

	stores := map[string]*memStore{}
	sessions := NewSessions(SessionsConfig{
		Backend: be,
		Queries: q,
		StoreFor: func(id string) viewstate.Storage {
			if stores[id] == nil {
				stores[id] = newMemStore()
			}
			return stores[id]
		},
		IdleTTL: time.Minute,
		Now:     clock,
	})
	defer sessions.Close()

	a := sessions.Get("a")
	assert.Same(t, a, sessions.Get("a"))
	assert.Same(t, a.Dashboard(), a.Dashboard())
	a.Dashboard().Wait(waitCtx(t))

	now = now.Add(45 * time.Second)
	sessions.Get("b")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, sessions.Sweep())
	assert.Equal(t, 1, sessions.Len())
	assert.NotSame(t, a, sessions.Get("a"), "evicted session is recreated")

	a.Dashboard().mu.Lock()
	closed := a.Dashboard().closed
	a.Dashboard().mu.Unlock()
	assert.True(t, closed)
}
