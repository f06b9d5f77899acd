// Package router implements the Router Dispatcher (spec.md §4.8): the
// API surface the MIDI-I/O and application layers call, owning the
// actor handles, the config, the active page, and the driver registry.
package router

import (
	"errors"
	"sync"
	"time"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/feedback"
	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/page"
	"github.com/jdginn/xtouch-gw/persistence"
	"github.com/jdginn/xtouch-gw/state"
)

var log = logging.Get(logging.ROUTER)

// Surface is the narrow interface the Router needs of the X-Touch
// transport to emit refresh plans and feedback. The concrete
// implementation wraps the surface's output port in cmd/xtouch-gw.
type Surface interface {
	Send(m midi.Message) error
}

// Router owns the actors, the page model/planner, the feedback
// transformer, the indicator evaluator's inputs, and the driver
// registry. Its methods are synchronous from the caller's perspective;
// all cross-actor work happens via blocking queries.
type Router struct {
	mu sync.Mutex

	hw      *midi.HardwareMap
	mode    midi.XTouchMode
	state   *state.Actor
	persist *persistence.Actor
	fd      *fader.Scheduler
	model   *page.Model
	planner *page.Planner
	fbTx    *feedback.Transformer
	surface Surface

	drivers map[string]Driver
}

// New constructs a Router wired to its actors and page model. It
// subscribes the persistence actor to every state change so the
// debounced write-behind snapshot (spec.md §4.2) actually runs.
func New(hw *midi.HardwareMap, mode midi.XTouchMode, st *state.Actor, persist *persistence.Actor, fd *fader.Scheduler, model *page.Model, surface Surface) *Router {
	r := &Router{
		hw:      hw,
		mode:    mode,
		state:   st,
		persist: persist,
		fd:      fd,
		model:   model,
		planner: page.NewPlanner(hw, mode, st, fd),
		fbTx:    feedback.NewTransformer(model, st, fd, hw, mode),
		surface: surface,
		drivers: make(map[string]Driver),
	}
	st.Subscribe(func(appkey.AppKey, midi.StateEntry) {
		r.schedulePersist()
	})
	return r
}

// schedulePersist snapshots the state actor and hands it to the
// persistence actor's debounced Save. Run in its own goroutine because
// Subscribe's callback executes on the state actor's own command-loop
// goroutine -- calling the blocking Snapshot query synchronously from
// there would deadlock the actor against itself.
func (r *Router) schedulePersist() {
	go func() {
		r.persist.Save(persistence.Snapshot{
			Timestamp: time.Now().UnixMilli(),
			States:    r.state.Snapshot(),
		})
	}()
}

// RegisterDriver initialises d with a DriverContext and stores it under
// name. If Init fails, the driver is not stored and the error is
// returned to the caller.
func (r *Router) RegisterDriver(name string, d Driver, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := DriverContext{Config: r.model.Document(), ActivePage: r.model.ActivePage().Name}
	if err := d.Init(ctx); err != nil {
		log.Warn("driver init failed; not registered", "driver", name, "error", err)
		return err
	}
	r.drivers[name] = d
	log.Info("driver registered", "driver", name)
	return nil
}

// Driver looks up a registered driver by name.
func (r *Router) Driver(name string) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[name]
	return d, ok
}

// UpdateConfig atomically replaces the config, clamps the active page
// index, syncs every driver (logging but not aborting on failures),
// then refreshes the (possibly relocated) active page.
func (r *Router) UpdateConfig(doc *config.Document, now int64) {
	r.mu.Lock()
	r.model.SetDocument(doc)
	ctx := DriverContext{Config: doc, ActivePage: r.model.ActivePage().Name}
	for name, d := range r.drivers {
		if err := d.Sync(ctx); err != nil {
			log.Warn("driver sync failed during config reload", "driver", name, "error", err)
		}
	}
	r.mu.Unlock()

	r.RefreshPage(now)
}

// ShutdownAllDrivers iterates the registry shutting each driver down,
// collecting errors, and clears the registry. The persistence actor is
// flushed separately by the process outer layer.
func (r *Router) ShutdownAllDrivers() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	for name, d := range r.drivers {
		if err := d.Shutdown(); err != nil {
			errs = errors.Join(errs, err)
			log.Warn("driver shutdown failed", "driver", name, "error", err)
		}
	}
	r.drivers = make(map[string]Driver)
	return errs
}

// RefreshPage runs the full page-change control flow from spec.md §4.4:
// bump the page epoch, propagate it to the fader scheduler, clear the
// X-Touch shadow, build the refresh plan, and emit it Notes -> CCs -> PBs.
func (r *Router) RefreshPage(now int64) error {
	newEpoch := r.model.IncrementEpoch()
	r.fd.SetPageEpoch(newEpoch)
	r.state.ClearShadows()

	controls := r.model.ResolvedControls()
	plan := r.planner.BuildRefreshPlan(controls, now)

	var errs error
	for _, m := range plan.Notes {
		if err := r.surface.Send(m); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	for _, m := range plan.CCs {
		if err := r.surface.Send(m); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	for _, m := range plan.PBs {
		if err := r.surface.Send(m); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// NextPage advances the active page and refreshes.
func (r *Router) NextPage(now int64) error {
	r.model.Next()
	return r.RefreshPage(now)
}

// PrevPage retreats the active page and refreshes.
func (r *Router) PrevPage(now int64) error {
	r.model.Prev()
	return r.RefreshPage(now)
}

// JumpToPage sets the active page directly (ignored if out of range) and
// refreshes.
func (r *Router) JumpToPage(index int, now int64) error {
	if index < 0 || index >= r.model.NumPages() {
		log.Debug("direct page jump out of range; ignoring", "index", index)
		return nil
	}
	r.model.SetActiveIndex(index)
	return r.RefreshPage(now)
}

// HandleAppFeedback runs the feedback reverse-transform for a frame
// received from app over portID, emitting the resulting native message
// to the surface if one was produced.
func (r *Router) HandleAppFeedback(app appkey.AppKey, portID string, frame midi.Message, now int64) error {
	out, ok := r.fbTx.Process(app, portID, frame, now)
	if !ok {
		return nil
	}
	return r.surface.Send(out)
}
