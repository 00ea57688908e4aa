// Package carousel implements wrap-around navigation over a sequence of N
// items with a single in-flight transition. It backs both cross-ticket
// navigation and the image modal.
package carousel

import (
	"sync"
	"time"
)

// Command is a navigation request: step to the previous or next item.
type Command int

const (
	None Command = iota
	Previous
	Next
)

func (c Command) String() string {
	switch c {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return "none"
	}
}

// State reports whether a transition is in flight.
type State int

const (
	Idle State = iota
	Transitioning
)

func (s State) String() string {
	if s == Transitioning {
		return "transitioning"
	}
	return "idle"
}

const (
	TicketSettleDelay = 150 * time.Millisecond
	ImageSettleDelay  = 300 * time.Millisecond
)

// Wrap maps any integer onto [0, n). It returns 0 for n <= 0.
func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Step returns the index reached from cur by cmd over n items.
func Step(cur, n int, cmd Command) int {
	switch cmd {
	case Previous:
		return Wrap(cur-1, n)
	case Next:
		return Wrap(cur+1, n)
	default:
		return Wrap(cur, n)
	}
}

// Machine is safe for concurrent use. Commands that arrive while a
// transition is in flight are dropped, not queued.
type Machine struct {
	mu sync.Mutex

	n       int
	index   int
	pending int
	offset  float64
	state   State

	settleDelay time.Duration
	timer       *time.Timer
	gen         uint64
}

// New returns an idle machine over n items that settles after settleDelay.
func New(n int, settleDelay time.Duration) *Machine {
	if n < 0 {
		n = 0
	}
	return &Machine{
		n:           n,
		settleDelay: settleDelay,
	}
}

func (m *Machine) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Offset is the signed horizontal drag distance not yet resolved.
func (m *Machine) Offset() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset
}

// Pending is the index the in-flight transition will land on, or the
// current index when idle.
func (m *Machine) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Transitioning {
		return m.pending
	}
	return m.index
}

// SetLen resizes the sequence, keeping the index in range.
func (m *Machine) SetLen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n < 0 {
		n = 0
	}
	m.n = n
	m.index = Wrap(m.index, n)
	m.pending = Wrap(m.pending, n)
}

// SetIndex jumps without a transition, e.g. when a view opens at a given item.
func (m *Machine) SetIndex(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.index = Wrap(i, m.n)
	m.offset = 0
}

// Begin starts a transition and returns its target and generation. Callers
// that schedule their own settle pass the generation to SettleGen. It
// reports false when the machine is busy, the sequence is empty or cmd is
// None.
func (m *Machine) Begin(cmd Command) (int, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.begin(cmd)
	return idx, m.gen, ok
}

func (m *Machine) begin(cmd Command) (int, bool) {
	if cmd == None || m.n == 0 || m.state != Idle {
		return m.index, false
	}

	m.pending = Step(m.index, m.n, cmd)
	m.state = Transitioning
	m.gen++

	return m.pending, true
}

// Settle applies the pending index of whatever transition is in flight and
// returns to idle. It reports false when no transition is in flight.
func (m *Machine) Settle() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.settle(m.gen)
}

// SettleGen settles only the transition started with generation gen. A
// settle for a transition that was stopped or superseded is dropped.
func (m *Machine) SettleGen(gen uint64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.settle(gen)
}

func (m *Machine) settle(gen uint64) (int, bool) {
	if m.state != Transitioning || gen != m.gen {
		return m.index, false
	}

	m.index = m.pending
	m.offset = 0
	m.state = Idle
	m.timer = nil

	return m.index, true
}

// Navigate begins a transition and settles it after the settle delay,
// calling onSettle with the new index from the timer goroutine.
func (m *Machine) Navigate(cmd Command, onSettle func(index int)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.begin(cmd); !ok {
		return false
	}

	gen := m.gen
	m.timer = time.AfterFunc(m.settleDelay, func() {
		m.mu.Lock()
		idx, ok := m.settle(gen)
		m.mu.Unlock()

		if ok && onSettle != nil {
			onSettle(idx)
		}
	})

	return true
}

// Drag accumulates horizontal offset while idle.
func (m *Machine) Drag(dx float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Idle {
		return
	}
	m.offset = dx
}

// Release resolves a finished gesture. A None command snaps the offset back
// to zero without changing the index.
func (m *Machine) Release(cmd Command, onSettle func(index int)) bool {
	if cmd == None {
		m.mu.Lock()
		m.offset = 0
		m.mu.Unlock()
		return false
	}
	return m.Navigate(cmd, onSettle)
}

// Stop cancels a pending settle timer, leaving the machine idle at its
// current index.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = Idle
	m.offset = 0
	m.gen++
}
