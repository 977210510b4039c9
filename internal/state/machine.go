// Package state implements the acquisition state machine and the
// single-owner token that serializes all access to a hal.Bundle. No engine
// may touch hardware without holding a Token; the HAL itself does no
// locking, so this package is the only place that enforces exclusivity.
package state

import (
	"fmt"
	"sync"

	"github.com/poultriscan/poultriscan/internal/domainerr"
)

// State is one node of the acquisition lifecycle.
type State int

const (
	Locked State = iota
	NeedsInit
	PrePurge
	Stabilize
	InitializingGas
	NeedsDarkRef
	NeedsWhiteRef
	NeedsUvRef
	NeedsIrRef
	ReadyToMeasure
	Measuring
	Purging
	PostPurge
)

func (s State) String() string {
	switch s {
	case Locked:
		return "Locked"
	case NeedsInit:
		return "NeedsInit"
	case PrePurge:
		return "PrePurge"
	case Stabilize:
		return "Stabilize"
	case InitializingGas:
		return "InitializingGas"
	case NeedsDarkRef:
		return "NeedsDarkRef"
	case NeedsWhiteRef:
		return "NeedsWhiteRef"
	case NeedsUvRef:
		return "NeedsUvRef"
	case NeedsIrRef:
		return "NeedsIrRef"
	case ReadyToMeasure:
		return "ReadyToMeasure"
	case Measuring:
		return "Measuring"
	case Purging:
		return "Purging"
	case PostPurge:
		return "PostPurge"
	default:
		return "Unknown"
	}
}

// Machine tracks one current State and arbitrates the single acquisition
// token. It holds no hardware reference of its own; engines acquire a
// Token and then drive their own hal.Bundle directly.
type Machine struct {
	mu      sync.Mutex
	current State
	owned   bool
}

// New builds a Machine starting at Locked.
func New() *Machine {
	return &Machine{current: Locked}
}

// Token represents exclusive ownership of the machine's hardware. It must
// be released exactly once, normally via a deferred Release.
type Token struct {
	m *Machine
}

// TryAcquire claims the single acquisition token. It fails with
// domainerr.ErrPreempted if another owner already holds it.
func (m *Machine) TryAcquire() (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owned {
		return Token{}, fmt.Errorf("state: acquire: %w", domainerr.ErrPreempted)
	}
	m.owned = true
	return Token{m: m}, nil
}

// Release gives up the token, returning the machine to Locked.
func (t Token) Release() {
	if t.m == nil {
		return
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.owned = false
	t.m.current = Locked
}

// Set transitions the machine to s. The caller must hold the token.
func (t Token) Set(s State) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.current = s
}

// Current reports the machine's current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Owned reports whether a token is currently held, for status reporting.
func (m *Machine) Owned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owned
}
