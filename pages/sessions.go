package pages

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sector-intel/models"
	"sector-intel/query"
	"sector-intel/viewstate"
)

type Backend interface {
	DashboardAPI
	SectorAPI
}

type SessionsConfig struct {
	Backend Backend
	Queries *query.Client
	// StoreFor returns the view-state store of one client.
	StoreFor func(clientID string) viewstate.Storage
	Catalog  *models.Catalog
	Logger   *zap.Logger
	IdleTTL  time.Duration
	Now      func() time.Time
}

// Session holds the controllers of one client. They are created on first
// use.
type Session struct {
	ID string

	backend Backend
	deps    Deps

	mu        sync.Mutex
	dashboard *Dashboard
	detail    *SectorDetail
	lastSeen  time.Time
}

func (s *Session) Dashboard() *Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboard == nil {
		s.dashboard = NewDashboard(s.backend, s.deps)
	}
	return s.dashboard
}

func (s *Session) SectorDetail() *SectorDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		s.detail = NewSectorDetail(s.backend, s.deps)
	}
	return s.detail
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboard != nil {
		s.dashboard.Close()
	}
	if s.detail != nil {
		s.detail.Close()
	}
}

// Sessions maps client ids to sessions and evicts idle ones.
type Sessions struct {
	cfg SessionsConfig
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(cfg SessionsConfig) *Sessions {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sessions{
		cfg:      cfg,
		log:      cfg.Logger.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of clientID, creating it if needed, and marks it
// as used.
func (s *Sessions) Get(clientID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()

	sess, ok := s.sessions[clientID]
	if !ok {
		sess = &Session{
			ID:      clientID,
			backend: s.cfg.Backend,
			deps: Deps{
				Queries: s.cfg.Queries,
				Store:   s.cfg.StoreFor(clientID),
				Catalog: s.cfg.Catalog,
				Logger:  s.cfg.Logger.With(zap.String("client_id", clientID)),
			},
		}
		s.sessions[clientID] = sess
		s.log.Debug("session created", zap.String("client_id", clientID))
	}
	sess.mu.Lock()
	sess.lastSeen = now
	sess.mu.Unlock()
	return sess
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and forgets sessions idle for longer than the TTL.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	now := s.cfg.Now()
	var expired []*Session
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle > s.cfg.IdleTTL {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	if len(expired) > 0 {
		s.log.Debug("sessions evicted", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps periodically until ctx ends, then closes every session.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
}
