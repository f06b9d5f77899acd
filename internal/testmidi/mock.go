// Package testmidi provides an in-memory drivers.In/drivers.Out double
// for tests that need a fake MIDI port without a real ALSA/CoreMIDI
// backend.
package testmidi

import (
	"errors"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// MockPort implements both drivers.In and drivers.Out.
type MockPort struct {
	mu sync.Mutex

	name   string
	isOpen bool
	sent   [][]byte

	listeners   []func(msg []byte, timestampms int32)
	shouldError bool
}

func NewMockPort(name string) *MockPort {
	return &MockPort{name: name}
}

func (m *MockPort) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOpen = true
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOpen = false
	return nil
}

func (m *MockPort) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}

func (m *MockPort) Number() int        { return 0 }
func (m *MockPort) String() string     { return m.name }
func (m *MockPort) Underlying() any    { return m }

func (m *MockPort) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldError {
		return errors.New("testmidi: mock send error")
	}
	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

func (m *MockPort) Listen(onMsg func(msg []byte, timestampms int32), cfg drivers.ListenConfig) (func(), error) {
	m.mu.Lock()
	m.listeners = append(m.listeners, onMsg)
	m.mu.Unlock()
	return func() {}, nil
}

// Deliver simulates an inbound message arriving on this port.
func (m *MockPort) Deliver(msg gomidi.Message) {
	m.mu.Lock()
	listeners := make([]func([]byte, int32), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()
	for _, l := range listeners {
		l(msg, 0)
	}
}

// SentMessages returns a copy of every raw frame sent so far.
func (m *MockPort) SentMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockPort) SetError(shouldError bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldError = shouldError
}
