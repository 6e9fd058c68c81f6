package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
	"github.com/tablewise-app/tablewise-backend/internal/identity"
	"github.com/tablewise-app/tablewise-backend/internal/session"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
	"github.com/tablewise-app/tablewise-backend/pkg/metrics"
)

// AdapterFunc builds the persistence surface for one session.
type AdapterFunc func(sessionID string) (session.Adapter, error)

// Engine bundles one session's cart store with its identity provider and
// sync coordinator. The coordinator never reads authentication state itself;
// it subscribes to the provider's transitions.
type Engine struct {
	Store    *cart.Store
	Identity *identity.Provider
	Sync     *cart.Coordinator

	stopWatch func()
	lastUsed  time.Time
}

// EnsureIdentity aligns the session's identity with the request. An empty
// userID is the anonymous case. Repeating the same identity is a no-op, so
// calling this on every request is cheap. The reconcile it may trigger runs
// on the engine's own lifetime, not the request's, so no context is taken.
func (e *Engine) EnsureIdentity(userID string) {
	if userID == "" {
		e.Identity.SignOut()
		return
	}
	e.Identity.SignIn(userID)
}

func (e *Engine) close() {
	if e.stopWatch != nil {
		e.stopWatch()
	}
	e.Sync.Close()
}

// ManagerParams wires a manager.
type ManagerParams struct {
	Adapters AdapterFunc
	Remote   cart.RemoteStore
	Catalog  *cart.Catalog
	Logger   *logger.Logger
	Metrics  *metrics.SyncMetrics
	Session  config.SessionConfig
}

// Manager owns the live cart engines, one per session id. Engines are built
// lazily on first use, rehydrated from session persistence, and evicted after
// sitting idle; the session key in Redis outlives the in-memory engine, so an
// evicted session rehydrates transparently on its next request.
type Manager struct {
	adapters AdapterFunc
	remote   cart.RemoteStore
	catalog  *cart.Catalog
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics
	cfg      config.SessionConfig

	mu      sync.Mutex
	engines map[string]*Engine
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager builds a manager and starts its idle sweep.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Adapters == nil {
		return nil, fmt.Errorf("adapter factory required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("promo catalog required")
	}

	m := &Manager{
		adapters: params.Adapters,
		remote:   params.Remote,
		catalog:  params.Catalog,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Session,
		engines:  map[string]*Engine{},
		done:     make(chan struct{}),
	}

	if m.cfg.EngineIdle > 0 && m.cfg.SweepEvery > 0 {
		m.wg.Add(1)
		go m.sweep()
	}
	return m, nil
}

// ForSession returns the session's engine, building it on first use.
func (m *Manager) ForSession(ctx context.Context, sessionID string) (*Engine, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("engine manager closed")
	}

	if eng, ok := m.engines[sessionID]; ok {
		eng.lastUsed = time.Now()
		return eng, nil
	}

	eng, err := m.build(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.engines[sessionID] = eng
	return eng, nil
}

// build runs under m.mu.
func (m *Manager) build(ctx context.Context, sessionID string) (*Engine, error) {
	adapter, err := m.adapters(sessionID)
	if err != nil {
		return nil, fmt.Errorf("building session adapter: %w", err)
	}

	store := cart.NewStore()
	snapshot, found, err := adapter.Load(ctx)
	if err != nil {
		// A broken session read should not block the cart; start empty.
		if m.logg != nil {
			lctx := m.logg.WithSessionID(ctx, sessionID)
			m.logg.Warn(m.logg.WithField(lctx, "error", err.Error()), "cart.session.load_failed")
		}
	} else if found {
		store = cart.NewStoreFrom(snapshot)
	}

	coordinator, err := cart.NewCoordinator(cart.CoordinatorParams{
		Store:   store,
		Remote:  m.remote,
		Persist: adapter,
		Catalog: m.catalog,
		Logger:  m.logg,
		Metrics: m.metrics,
		Backlog: m.cfg.WriteBacklog,
	})
	if err != nil {
		return nil, err
	}

	stop, err := adapter.OnExternalChange(ctx, coordinator.ApplyExternal)
	if err != nil {
		coordinator.Close()
		return nil, fmt.Errorf("watching session changes: %w", err)
	}

	provider := identity.NewProvider()
	provider.Subscribe(func(userID string) {
		if userID == "" {
			coordinator.ClearIdentity()
			return
		}
		coordinator.SetIdentity(context.Background(), userID)
	})

	return &Engine{
		Store:     store,
		Identity:  provider,
		Sync:      coordinator,
		stopWatch: stop,
		lastUsed:  time.Now(),
	}, nil
}

func (m *Manager) sweep() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *Manager) evictIdle(now time.Time) {
	var stale []*Engine

	m.mu.Lock()
	for id, eng := range m.engines {
		if now.Sub(eng.lastUsed) >= m.cfg.EngineIdle {
			stale = append(stale, eng)
			delete(m.engines, id)
		}
	}
	m.mu.Unlock()

	for _, eng := range stale {
		eng.close()
	}
}

// Close stops the sweep and shuts every engine down, draining pending
// remote writes.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.engines = map[string]*Engine{}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	for _, eng := range engines {
		eng.close()
	}
}
