// Package persistence implements the Persistence Actor: debounced
// write-behind of the full app-state map to a local embedded key/value
// store (spec.md §4.2).
package persistence

import (
	"time"

	"github.com/jdginn/xtouch-gw/logging"
)

var log = logging.Get(logging.PERSISTENCE)

// DebounceMS is the default coalescing window between a Save and the
// flush it triggers.
const DebounceMS = 500

// Clock abstracts time so tests can drive the debounce timer
// deterministically, rather than sleeping in real time.
type Clock interface {
	NowMS() int64
}

type systemClock struct{}

func (systemClock) NowMS() int64 { return time.Now().UnixMilli() }

type saveCmd struct {
	snapshot Snapshot
}

type flushCmd struct {
	reply chan error
}

type loadCmd struct {
	reply chan loadResult
}

type loadResult struct {
	snapshot Snapshot
	found    bool
	err      error
}

type shutdownCmd struct {
	reply chan struct{}
}

// Actor is the debounced write-behind persistence actor. Construct with
// New and call Run in its own goroutine.
type Actor struct {
	store KVStore
	clock Clock

	cmds chan any

	pending   *Snapshot
	lastTS    int64
	tickEvery time.Duration
}

// New constructs a persistence Actor backed by store.
func New(store KVStore) *Actor {
	return &Actor{
		store:     store,
		clock:     systemClock{},
		cmds:      make(chan any, 64),
		tickEvery: (DebounceMS / 2) * time.Millisecond,
	}
}

// WithClock overrides the clock, for tests.
func (a *Actor) WithClock(c Clock) *Actor {
	a.clock = c
	return a
}

// Save replaces the pending snapshot (last-writer-wins within the
// debounce window). Fire-and-forget.
func (a *Actor) Save(s Snapshot) {
	a.cmds <- saveCmd{snapshot: s}
}

// Flush forces an immediate write and blocks until it completes.
func (a *Actor) Flush() error {
	reply := make(chan error, 1)
	a.cmds <- flushCmd{reply: reply}
	return <-reply
}

// Load returns the most recently persisted snapshot, or found=false if
// none exists or the persisted version is unrecognised.
func (a *Actor) Load() (Snapshot, bool, error) {
	reply := make(chan loadResult, 1)
	a.cmds <- loadCmd{reply: reply}
	r := <-reply
	return r.snapshot, r.found, r.err
}

// Shutdown drains the pending snapshot (flushing it) before returning.
func (a *Actor) Shutdown() {
	reply := make(chan struct{})
	a.cmds <- shutdownCmd{reply: reply}
	<-reply
}

// Run processes commands until Shutdown is called. Run owns a ticker
// that checks, on each tick, whether the pending snapshot has aged past
// the debounce window and if so flushes it.
func (a *Actor) Run() {
	ticker := time.NewTicker(a.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case c := <-a.cmds:
			switch cmd := c.(type) {
			case saveCmd:
				snap := cmd.snapshot
				a.pending = &snap
				a.lastTS = a.clock.NowMS()
			case flushCmd:
				cmd.reply <- a.flush()
			case loadCmd:
				snap, found, err := a.load()
				cmd.reply <- loadResult{snapshot: snap, found: found, err: err}
			case shutdownCmd:
				if a.pending != nil {
					if err := a.flush(); err != nil {
						log.Error("failed to flush pending snapshot on shutdown", "err", err)
					}
				}
				close(cmd.reply)
				return
			}
		case <-ticker.C:
			if a.pending != nil && a.clock.NowMS()-a.lastTS >= DebounceMS {
				if err := a.flush(); err != nil {
					log.Error("debounced flush failed", "err", err)
				}
			}
		}
	}
}

// flush serialises and writes the pending snapshot if any, clearing it
// on success. A serialisation or write error is NOT retried -- the next
// Save overwrites the pending slot, and state is idempotent (keyed on
// addr) so eventual consistency is acceptable.
func (a *Actor) flush() error {
	if a.pending == nil {
		return nil
	}
	b, err := a.pending.marshal()
	if err != nil {
		log.Error("failed to marshal snapshot", "err", err)
		return err
	}
	if err := a.store.Set(snapshotKey, b); err != nil {
		log.Error("failed to write snapshot", "err", err)
		return err
	}
	a.pending = nil
	return nil
}

func (a *Actor) load() (Snapshot, bool, error) {
	b, found, err := a.store.Get(snapshotKey)
	if err != nil {
		return Snapshot{}, false, err
	}
	if !found {
		return Snapshot{}, false, nil
	}
	snap, ok := unmarshalSnapshot(b)
	if !ok {
		log.Warn("persisted snapshot has an unrecognised version; ignoring")
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}
