package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
)

// MemoryHub is the in-process stand-in for the Redis surface: a snapshot per
// session plus a broadcast fan-out. It backs tests and single-instance dev
// runs.
type MemoryHub struct {
	mu        sync.Mutex
	snapshots map[string]cart.Snapshot
	present   map[string]bool
	subs      map[string]map[int]func(envelope)
	nextSub   int
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		snapshots: map[string]cart.Snapshot{},
		present:   map[string]bool{},
		subs:      map[string]map[int]func(envelope){},
	}
}

// Adapter returns a new surface bound to the session. Each call yields a
// distinct origin, mirroring independent UI instances of the same session.
func (h *MemoryHub) Adapter(sessionID string) Adapter {
	return &memoryAdapter{hub: h, sessionID: sessionID, origin: uuid.NewString()}
}

func (h *MemoryHub) save(sessionID string, env envelope) {
	h.mu.Lock()
	h.snapshots[sessionID] = env.Snapshot
	h.present[sessionID] = true
	listeners := make([]func(envelope), 0, len(h.subs[sessionID]))
	for _, fn := range h.subs[sessionID] {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(env)
	}
}

// drop removes the stored snapshot but still fans the change out, matching
// the Redis surface where a cleared cart deletes the key yet broadcasts.
func (h *MemoryHub) drop(sessionID string, env envelope) {
	h.mu.Lock()
	delete(h.snapshots, sessionID)
	delete(h.present, sessionID)
	listeners := make([]func(envelope), 0, len(h.subs[sessionID]))
	for _, fn := range h.subs[sessionID] {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(env)
	}
}

func (h *MemoryHub) load(sessionID string) (cart.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshots[sessionID], h.present[sessionID]
}

func (h *MemoryHub) subscribe(sessionID string, fn func(envelope)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sessionID] == nil {
		h.subs[sessionID] = map[int]func(envelope){}
	}
	id := h.nextSub
	h.nextSub++
	h.subs[sessionID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[sessionID], id)
	}
}

type memoryAdapter struct {
	hub       *MemoryHub
	sessionID string
	origin    string
}

func (a *memoryAdapter) Load(ctx context.Context) (cart.Snapshot, bool, error) {
	snapshot, ok := a.hub.load(a.sessionID)
	return snapshot, ok, nil
}

func (a *memoryAdapter) Save(ctx context.Context, snapshot cart.Snapshot) error {
	env := envelope{Origin: a.origin, Snapshot: snapshot}
	if snapshot.IsEmpty() && snapshot.AppliedPromo == nil {
		a.hub.drop(a.sessionID, env)
		return nil
	}
	a.hub.save(a.sessionID, env)
	return nil
}

func (a *memoryAdapter) OnExternalChange(ctx context.Context, fn func(cart.Snapshot)) (func(), error) {
	stop := a.hub.subscribe(a.sessionID, func(env envelope) {
		if env.Origin == a.origin {
			return
		}
		fn(env.Snapshot)
	})
	return stop, nil
}
