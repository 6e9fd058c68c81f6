package cart

import "sync"

// Store holds the authoritative in-session snapshot behind a mutex and fans
// out change notifications. The snapshot is swapped atomically on every
// transition, so readers never observe a half-applied mutation.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewStore starts with an empty cart.
func NewStore() *Store {
	return NewStoreFrom(Snapshot{Items: []LineItem{}})
}

// NewStoreFrom seeds the store with a rehydrated snapshot.
func NewStoreFrom(snapshot Snapshot) *Store {
	if snapshot.Items == nil {
		snapshot.Items = []LineItem{}
	}
	return &Store{
		snapshot: snapshot,
		subs:     map[int]func(Snapshot){},
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// AddItem merges the item into the cart and notifies subscribers.
func (s *Store) AddItem(item LineItem) (Snapshot, error) {
	s.mu.Lock()
	next, err := s.snapshot.WithItem(item)
	if err != nil {
		s.mu.Unlock()
		return s.snapshot, err
	}
	s.snapshot = next
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, next)
	return next, nil
}

// UpdateQuantity sets the item quantity, removing the line at zero or below.
func (s *Store) UpdateQuantity(id string, quantity int) Snapshot {
	return s.swap(func(current Snapshot) Snapshot {
		return current.WithQuantity(id, quantity)
	})
}

// RemoveItem drops the identified line.
func (s *Store) RemoveItem(id string) Snapshot {
	return s.swap(func(current Snapshot) Snapshot {
		return current.WithoutItem(id)
	})
}

// ApplyPromo validates the promo against the current subtotal and applies it.
// On rejection the state is left untouched.
func (s *Store) ApplyPromo(promo PromoCode) (Snapshot, error) {
	s.mu.Lock()
	next, err := s.snapshot.WithPromo(promo)
	if err != nil {
		s.mu.Unlock()
		return s.snapshot, err
	}
	s.snapshot = next
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, next)
	return next, nil
}

// RemovePromo drops the applied promo, keeping the items.
func (s *Store) RemovePromo() Snapshot {
	return s.swap(func(current Snapshot) Snapshot {
		return current.WithoutPromo()
	})
}

// Clear empties the cart and drops the promo.
func (s *Store) Clear() Snapshot {
	return s.swap(func(current Snapshot) Snapshot {
		return current.Cleared()
	})
}

// Replace installs a snapshot wholesale, e.g. when the remote cart wins on
// sign-in or another surface broadcast a change.
func (s *Store) Replace(snapshot Snapshot) Snapshot {
	if snapshot.Items == nil {
		snapshot.Items = []LineItem{}
	}
	return s.swap(func(Snapshot) Snapshot {
		return snapshot
	})
}

// Subscribe registers a change listener and returns its removal func.
// Listeners run after the swap, outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) swap(transition func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	next := transition(s.snapshot)
	s.snapshot = next
	subs := s.subscribers()
	s.mu.Unlock()

	notify(subs, next)
	return next
}

func (s *Store) subscribers() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subs {
		fn(snapshot)
	}
}
