package tickercheck

import (
	"sync"
	"time"
)

// Registry hands out one Checker per session so each add dialog keeps its
// own pending debounce.
type Registry struct {
	lookup LookupFunc
	settle time.Duration

	mu       sync.Mutex
	checkers map[string]*Checker
}

func NewRegistry(lookup LookupFunc, settle time.Duration) *Registry {
	return &Registry{
		lookup:   lookup,
		settle:   settle,
		checkers: make(map[string]*Checker),
	}
}

// ForSession returns the session's checker, creating it on first use.
func (r *Registry) ForSession(sessionID string) *Checker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.checkers[sessionID]; ok {
		return c
	}
	c := New(r.lookup, r.settle)
	r.checkers[sessionID] = c
	return c
}

// Drop discards a session's checker (logout).
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.checkers[sessionID]; ok {
		c.Close()
		delete(r.checkers, sessionID)
	}
}
