package pages

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"sector-intel/api"
	"sector-intel/models"
	"sector-intel/query"
	"sector-intel/viewstate"
)

type SectorAPI interface {
	GetSectorDetail(ctx context.Context, sectorID string, days int, signalType string) (*models.SectorDetail, error)
}

// SectorRetry retries a failed detail fetch twice. A missing sector is
// final.
func SectorRetry(failureCount int, err error) bool {
	return !api.IsNotFound(err) && failureCount < 2
}

type SectorDetailView struct {
	SectorID   string
	TimeWindow int
	SignalType string
	Status     Status
	Fetching   bool
	Data       *models.SectorDetail
	Err        error
	NotFound   bool
}

// SectorDetail drives the detail page. The signal type filter is scoped to
// the open sector and window; only the window is persisted.
type SectorDetail struct {
	api     SectorAPI
	queries *query.Client
	store   viewstate.Storage
	catalog *models.Catalog
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	sectorID   string
	timeWindow int
	signalType string
	detail     tracker[*models.SectorDetail]
}

// NewSectorDetail returns a controller with no sector open.
func NewSectorDetail(backend SectorAPI, deps Deps) *SectorDetail {
	ctx, cancel := context.WithCancel(context.Background())
	return &SectorDetail{
		api:        backend,
		queries:    deps.Queries,
		store:      deps.Store,
		catalog:    deps.Catalog,
		log:        deps.logger().Named("sector"),
		ctx:        ctx,
		cancel:     cancel,
		timeWindow: viewstate.DefaultTimeWindow,
		signalType: viewstate.AllSignalTypes,
		detail:     newTracker[*models.SectorDetail](),
	}
}

// Open mounts the page for sectorID: the window is read back from the
// store and the filter returns to "all".
func (s *SectorDetail) Open(sectorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(sectorID)
}

// Show keeps the current state when sectorID is already open and mounts it
// otherwise.
func (s *SectorDetail) Show(sectorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sectorID == sectorID && s.detail.key != nil {
		return
	}
	s.openLocked(sectorID)
}

func (s *SectorDetail) openLocked(sectorID string) {
	s.sectorID = sectorID
	s.timeWindow = viewstate.LoadTimeWindow(s.store)
	s.signalType = viewstate.AllSignalTypes
	s.loadLocked()
}

// SetTimeWindow changes and persists the window, resetting the filter.
func (s *SectorDetail) SetTimeWindow(days int) error {
	if !viewstate.ValidTimeWindow(days) {
		return fmt.Errorf("%w: timeWindow %d", viewstate.ErrInvalidValue, days)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeWindow == days {
		return nil
	}
	s.timeWindow = days
	s.signalType = viewstate.AllSignalTypes
	if err := viewstate.SaveTimeWindow(s.store, days); err != nil {
		s.log.Warn("persisting time window failed", zap.Error(err))
	}
	if s.detail.key != nil {
		s.loadLocked()
	}
	return nil
}

// SetSignalType changes the filter. Codes reported in the current counts
// are accepted even when otherwise unknown.
func (s *SectorDetail) SetSignalType(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptsLocked(code) {
		return fmt.Errorf("%w: signalType %q", viewstate.ErrInvalidValue, code)
	}
	if s.signalType == code {
		return nil
	}
	s.signalType = code
	if s.detail.key != nil {
		s.loadLocked()
	}
	return nil
}

func (s *SectorDetail) acceptsLocked(code string) bool {
	if code == viewstate.AllSignalTypes || s.catalog.Known(models.SignalType(code)) {
		return true
	}
	if data := s.detail.data; data != nil {
		_, ok := data.SignalCountsByType[code]
		return ok
	}
	return false
}

func (s *SectorDetail) Wait(ctx context.Context) SectorDetailView {
	waitSettled(ctx, &s.mu, func() chan struct{} { return s.detail.settled })
	return s.Snapshot()
}

func (s *SectorDetail) Snapshot() SectorDetailView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SectorDetailView{
		SectorID:   s.sectorID,
		TimeWindow: s.timeWindow,
		SignalType: s.signalType,
		Status:     s.detail.status,
		Fetching:   s.detail.fetching,
		Data:       s.detail.data,
		Err:        s.detail.err,
		NotFound:   s.detail.status == StatusError && api.IsNotFound(s.detail.err),
	}
}

func (s *SectorDetail) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *SectorDetail) loadLocked() {
	id, days, filter := s.sectorID, s.timeWindow, s.signalType
	key := query.NewKey("sectorDetail", id, strconv.Itoa(days), filter)
	seq, settled, fetch := s.detail.begin(s.queries, key)
	if !fetch {
		return
	}

	go func() {
		defer close(settled)
		data, err := query.Fetch(s.ctx, s.queries, key, func(ctx context.Context) (*models.SectorDetail, error) {
			return s.api.GetSectorDetail(ctx, id, days, filter)
		}, query.WithRetry(SectorRetry))

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if !s.detail.finish(key, seq, data, err) {
			s.log.Debug("discarding stale sector detail", zap.Stringer("key", key), zap.Uint64("seq", seq))
			return
		}
		switch {
		case api.IsNotFound(err):
			s.log.Info("sector not found", zap.String("sector_id", id))
		case err != nil:
			s.log.Warn("loading sector detail failed", zap.String("sector_id", id), zap.Error(err))
		}
	}()
}
