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

type DashboardAPI interface {
	GetInitData(ctx context.Context, days int) (*models.InitData, error)
	RunPipeline(ctx context.Context) (*models.PipelineRunResult, error)
	RefreshFinancials(ctx context.Context) (*models.FinancialsRefresh, error)
}

// DashboardView is a point-in-time copy of the dashboard.
type DashboardView struct {
	State      viewstate.ViewState
	Status     Status
	Fetching   bool
	Data       *models.InitData
	Err        error
	Pipeline   query.MutationState[*models.PipelineRunResult]
	Financials query.MutationState[*models.FinancialsRefresh]
}

// Busy reports whether anything the page shows is still in progress.
func (v DashboardView) Busy() bool {
	return v.Status == StatusLoading || v.Pipeline.Pending() || v.Financials.Pending()
}

type Dashboard struct {
	api     DashboardAPI
	queries *query.Client
	store   viewstate.Storage
	catalog *models.Catalog
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	state  viewstate.ViewState
	init   tracker[*models.InitData]

	pipeline   *query.Mutation[*models.PipelineRunResult]
	financials *query.Mutation[*models.FinancialsRefresh]
}

// NewDashboard mounts the dashboard: view state is rehydrated from the
// store and the init data query starts right away.
func NewDashboard(api DashboardAPI, deps Deps) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		api:     api,
		queries: deps.Queries,
		store:   deps.Store,
		catalog: deps.Catalog,
		log:     deps.logger().Named("dashboard"),
		ctx:     ctx,
		cancel:  cancel,
		init:    newTracker[*models.InitData](),
	}

	d.state = viewstate.Load(d.store)
	if raw, ok := d.store.Get(viewstate.KeySignalType); ok && raw != d.state.SignalType && d.catalog.Filters(models.SignalType(raw)) {
		d.state.SignalType = raw
	}

	d.pipeline = query.NewMutation(func(ctx context.Context) (*models.PipelineRunResult, error) {
		ctx, cancel := detach(ctx, d.ctx)
		defer cancel()
		return d.api.RunPipeline(ctx)
	}, func(res *models.PipelineRunResult) {
		d.log.Info("pipeline completed",
			zap.Float64("elapsed_seconds", res.ElapsedSeconds),
			zap.Int("total_signals", res.TotalSignals))
		d.reload()
	})
	d.financials = query.NewMutation(func(ctx context.Context) (*models.FinancialsRefresh, error) {
		ctx, cancel := detach(ctx, d.ctx)
		defer cancel()
		return d.api.RefreshFinancials(ctx)
	}, func(res *models.FinancialsRefresh) {
		d.log.Info("financials refreshed", zap.Int("financials_updated", res.FinancialsUpdated))
		d.reload()
	})

	d.mu.Lock()
	d.loadLocked()
	d.mu.Unlock()
	return d
}

func (d *Dashboard) SetTimeWindow(days int) error {
	if !viewstate.ValidTimeWindow(days) {
		return fmt.Errorf("%w: timeWindow %d", viewstate.ErrInvalidValue, days)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.TimeWindow == days {
		return nil
	}
	d.state.TimeWindow = days
	d.persist(viewstate.KeyTimeWindow, fmt.Sprint(days))
	d.loadLocked()
	return nil
}

// SetSignalType changes the signal type filter. Filtering happens on the
// rendered data, so nothing is fetched.
func (d *Dashboard) SetSignalType(code string) error {
	if code != viewstate.AllSignalTypes && !d.catalog.Filters(models.SignalType(code)) {
		return fmt.Errorf("%w: signalType %q", viewstate.ErrInvalidValue, code)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.SignalType == code {
		return nil
	}
	d.state.SignalType = code
	d.persist(viewstate.KeySignalType, code)
	return nil
}

func (d *Dashboard) SetViewType(v viewstate.ViewType) error {
	if !viewstate.ValidViewType(v) {
		return fmt.Errorf("%w: viewType %q", viewstate.ErrInvalidValue, v)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.ViewType == v {
		return nil
	}
	d.state.ViewType = v
	d.persist(viewstate.KeyViewType, string(v))
	return nil
}

// RunPipeline starts a backend pipeline run. It returns false when a run
// is already pending. The run outlives ctx's cancellation but not the
// dashboard.
func (d *Dashboard) RunPipeline(ctx context.Context) bool {
	started := d.pipeline.Mutate(ctx)
	if !started {
		d.log.Debug("pipeline already running")
	}
	return started
}

// RefreshFinancials behaves like RunPipeline for the financials refresh.
func (d *Dashboard) RefreshFinancials(ctx context.Context) bool {
	started := d.financials.Mutate(ctx)
	if !started {
		d.log.Debug("financials refresh already running")
	}
	return started
}

// Wait blocks until the current init data query settles or ctx ends.
func (d *Dashboard) Wait(ctx context.Context) DashboardView {
	waitSettled(ctx, &d.mu, func() chan struct{} { return d.init.settled })
	return d.Snapshot()
}

func (d *Dashboard) Snapshot() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DashboardView{
		State:      d.state,
		Status:     d.init.status,
		Fetching:   d.init.fetching,
		Data:       d.init.data,
		Err:        d.init.err,
		Pipeline:   d.pipeline.State(),
		Financials: d.financials.State(),
	}
}

// Close stops the dashboard. Outstanding completions are discarded.
func (d *Dashboard) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// reload drops every cached init data window and refetches the current one.
func (d *Dashboard) reload() {
	d.queries.Invalidate(query.Key{"initData"})
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.loadLocked()
}

func (d *Dashboard) loadLocked() {
	days := d.state.TimeWindow
	key := query.NewKey("initData", days)
	seq, settled, fetch := d.init.begin(d.queries, key)
	if !fetch {
		return
	}

	go func() {
		defer close(settled)
		data, err := query.Fetch(d.ctx, d.queries, key, func(ctx context.Context) (*models.InitData, error) {
			return d.api.GetInitData(ctx, days)
		})

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		if !d.init.finish(key, seq, data, err) {
			d.log.Debug("discarding stale init data", zap.Stringer("key", key), zap.Uint64("seq", seq))
			return
		}
		if err != nil {
			d.log.Warn("loading init data failed", zap.Int("days", days), zap.Error(err))
		}
	}()
}

func (d *Dashboard) persist(key, value string) {
	if err := d.store.Set(key, value); err != nil {
		d.log.Warn("persisting view state failed", zap.String("key", key), zap.Error(err))
	}
}
