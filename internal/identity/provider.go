package identity

import "sync"

// Provider holds the session's current user identity as a single nullable
// value with change notifications. The engine does not know or care how
// authentication happens; it only consumes sign-in/sign-out transitions.
type Provider struct {
	mu      sync.RWMutex
	current string
	subs    map[int]func(userID string)
	nextSub int
}

// NewProvider starts signed out.
func NewProvider() *Provider {
	return &Provider{subs: map[int]func(string){}}
}

// Current returns the active identity, if any.
func (p *Provider) Current() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current != ""
}

// SignIn installs the identity and notifies subscribers on change.
func (p *Provider) SignIn(userID string) {
	p.set(userID)
}

// SignOut clears the identity and notifies subscribers.
func (p *Provider) SignOut() {
	p.set("")
}

// Subscribe registers a transition listener and returns its removal func.
// Listeners receive the new identity; empty means signed out.
func (p *Provider) Subscribe(fn func(userID string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Provider) set(userID string) {
	p.mu.Lock()
	if p.current == userID {
		p.mu.Unlock()
		return
	}
	p.current = userID
	subs := make([]func(string), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(userID)
	}
}
