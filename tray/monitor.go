// Package tray presents overall driver health as a system-tray icon
// (spec.md §7): gray (no drivers yet), green (all connected), yellow
// (a driver is reconnecting), red (a driver is disconnected).
package tray

import "sync"

// State is a single driver's connection state, ordered worst-last so
// Worst can reduce with a simple max.
type State int

const (
	StateGray State = iota
	StateGreen
	StateYellow
	StateRed
)

func (s State) String() string {
	switch s {
	case StateGreen:
		return "green"
	case StateYellow:
		return "yellow"
	case StateRed:
		return "red"
	default:
		return "gray"
	}
}

// Monitor tracks each registered driver's connection state and
// computes the aggregate worst state the tray icon should reflect.
type Monitor struct {
	mu     sync.Mutex
	states map[string]State
	onChange func(State)
}

// NewMonitor constructs an empty Monitor. onChange, if non-nil, fires
// synchronously every time the aggregate worst state changes.
func NewMonitor(onChange func(State)) *Monitor {
	return &Monitor{states: make(map[string]State), onChange: onChange}
}

// SetDriverState records driver's current state and fires onChange if
// the aggregate worst state changed as a result.
func (m *Monitor) SetDriverState(driver string, s State) {
	m.mu.Lock()
	before := m.worstLocked()
	m.states[driver] = s
	after := m.worstLocked()
	m.mu.Unlock()

	if after != before && m.onChange != nil {
		m.onChange(after)
	}
}

// RemoveDriver drops a driver from consideration, e.g. after shutdown.
func (m *Monitor) RemoveDriver(driver string) {
	m.mu.Lock()
	before := m.worstLocked()
	delete(m.states, driver)
	after := m.worstLocked()
	m.mu.Unlock()

	if after != before && m.onChange != nil {
		m.onChange(after)
	}
}

// Worst returns the current aggregate state across all drivers.
func (m *Monitor) Worst() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worstLocked()
}

func (m *Monitor) worstLocked() State {
	if len(m.states) == 0 {
		return StateGray
	}
	worst := StateGreen
	for _, s := range m.states {
		if s > worst {
			worst = s
		}
	}
	return worst
}
