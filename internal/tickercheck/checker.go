// Package tickercheck implements the add-dialog ticker validation state
// machine: Unchecked -> Checking -> {Valid, Invalid}. A single pending
// settle timer backs the passive (debounced) path; an explicit CheckNow
// pre-empts it. Every edit rotates an identity counter so stale lookups
// discard their result instead of clobbering a newer one.
package tickercheck

import (
	"context"
	"strings"
	"sync"
	"time"
)

// State of the ticker field validation.
type State string

const (
	StateUnchecked State = "unchecked"
	StateChecking  State = "checking"
	StateValid     State = "valid"
	StateInvalid   State = "invalid"
)

// LookupFunc resolves a symbol to its display name. Any error (not found or
// network) collapses to Invalid; the form never distinguishes them.
type LookupFunc func(ctx context.Context, symbol string) (name string, err error)

// Snapshot is the externally visible validation state.
type Snapshot struct {
	State       State  `json:"state"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name,omitempty"`
	FieldError  string `json:"field_error,omitempty"`
}

// Checker validates one ticker field.
type Checker struct {
	lookup LookupFunc
	settle time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	seq      int
	state    State
	symbol   string
	name     string
	fieldErr string
}

func New(lookup LookupFunc, settle time.Duration) *Checker {
	return &Checker{lookup: lookup, settle: settle, state: StateUnchecked}
}

// Edit records a ticker-field change. Clearing the field resets to
// Unchecked and clears errors; a nonempty value schedules a check after the
// settle delay, cancelling any pending one.
func (c *Checker) Edit(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.symbol = symbol
	c.name = ""
	c.fieldErr = ""
	// A previous Valid/Invalid verdict is stale the moment the field
	// changes; the field sits Unchecked until the settle timer fires.
	c.state = StateUnchecked
	if symbol == "" {
		return
	}

	seq := c.seq
	c.timer = time.AfterFunc(c.settle, func() {
		c.run(context.Background(), seq, symbol)
	})
}

// CheckNow forces an immediate check, pre-empting any pending debounce, and
// blocks until the result is in.
func (c *Checker) CheckNow(ctx context.Context, symbol string) Snapshot {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.Lock()
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.symbol = symbol
	c.name = ""
	c.fieldErr = ""
	if symbol == "" {
		c.state = StateUnchecked
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	seq := c.seq
	c.mu.Unlock()

	c.run(ctx, seq, symbol)
	return c.Snapshot()
}

// Reset returns the field to Unchecked and cancels any pending check.
func (c *Checker) Reset() {
	c.Edit("")
}

func (c *Checker) run(ctx context.Context, seq int, symbol string) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.state = StateChecking
	c.mu.Unlock()

	name, err := c.lookup(ctx, symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return
	}
	if err != nil {
		c.state = StateInvalid
		c.name = ""
		c.fieldErr = "Ticker not found"
		return
	}
	c.state = StateValid
	c.name = name
	c.fieldErr = ""
}

// Snapshot returns the current validation state.
func (c *Checker) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Checker) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		Symbol:      c.symbol,
		DisplayName: c.name,
		FieldError:  c.fieldErr,
	}
}

// Close cancels any pending check.
func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
