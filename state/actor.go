// Package state implements the Router's State Actor: the single owner of
// all per-app MIDI state, shadow state, and user-action timestamps
// (spec.md §4.1). It serialises access by processing commands off a
// single queue so no field needs an external lock. The queue is a
// channel buffered to 256 commands; senders block while it is full.
package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
)

var log = logging.Get(logging.STATE)

// Anti-echo windows (milliseconds), chosen to exceed motor settling time
// for PB, span typical encoder bursts for CC, and stay small for discrete
// events.
const (
	WindowPB    = 250
	WindowCC    = 100
	WindowNote  = 10
	WindowSysEx = 60
)

// LWW guard windows (milliseconds): how long a recent physical touch
// suppresses app feedback on the same control.
const (
	GuardPB = 300
	GuardCC = 50
)

func antiEchoWindow(s midi.Status) int64 {
	switch s {
	case midi.StatusPB:
		return WindowPB
	case midi.StatusCC:
		return WindowCC
	case midi.StatusNote:
		return WindowNote
	case midi.StatusSysEx:
		return WindowSysEx
	default:
		return 0
	}
}

func lwwGuard(s midi.Status) int64 {
	switch s {
	case midi.StatusPB:
		return GuardPB
	case midi.StatusCC:
		return GuardCC
	default:
		return 0
	}
}

type shadowEntry struct {
	value midi.Value
	ts    int64
}

type subscriber struct {
	id int
	fn func(appkey.AppKey, midi.StateEntry)
}

// Actor owns every mutable field behind a single command-processing
// goroutine. Construct with New and call Run in its own goroutine
// (mirrors the teacher's `MidiDevice.Run` / `go d.run()` split).
type Actor struct {
	cmds chan func()

	states      map[appkey.AppKey]map[string]midi.StateEntry
	shadows     map[string]shadowEntry
	userActions map[string]int64
	subs        []subscriber
	nextSubID   int

	wg   sync.WaitGroup
	done chan struct{}
}

// New constructs an Actor. Call Run before sending it commands.
func New() *Actor {
	return &Actor{
		cmds:        make(chan func(), 256),
		states:      make(map[appkey.AppKey]map[string]midi.StateEntry),
		shadows:     make(map[string]shadowEntry),
		userActions: make(map[string]int64),
		done:        make(chan struct{}),
	}
}

// Run starts the actor's command loop. It returns once Shutdown is called.
func (a *Actor) Run() {
	a.wg.Add(1)
	defer a.wg.Done()
	for {
		select {
		case cmd := <-a.cmds:
			cmd()
		case <-a.done:
			// Drain anything already queued before exiting so in-flight
			// fire-and-forget commands from the same sender are not lost.
			for {
				select {
				case cmd := <-a.cmds:
					cmd()
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the command loop after draining pending commands.
func (a *Actor) Shutdown() {
	close(a.done)
	a.wg.Wait()
}

// send enqueues a fire-and-forget command.
func (a *Actor) send(cmd func()) {
	a.cmds <- cmd
}

// query enqueues a command and blocks for its result via a reply channel,
// mirroring the spec's "query patterns use a reply channel" rule. Each
// query gets a correlation ID so a caller can trace one round trip
// through the actor's debug logs.
func query[T any](a *Actor, cmd func() T) T {
	corrID := uuid.New().String()
	reply := make(chan T, 1)
	log.Debug("state query dispatched", "correlation_id", corrID)
	a.cmds <- func() { reply <- cmd() }
	result := <-reply
	log.Debug("state query completed", "correlation_id", corrID)
	return result
}

func (a *Actor) appMap(app appkey.AppKey) map[string]midi.StateEntry {
	m, ok := a.states[app]
	if !ok {
		m = make(map[string]midi.StateEntry)
		a.states[app] = m
	}
	return m
}

func (a *Actor) notify(app appkey.AppKey, e midi.StateEntry) {
	for _, s := range a.subs {
		s.fn(app, e)
	}
}
