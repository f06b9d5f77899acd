package page

import (
	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/state"
)

// Plan is the ordered refresh sequence a page change emits to the
// surface: Notes first to extinguish previous-page LEDs, then CC rings,
// then PB last so motors can begin travelling while the rest of the
// surface has already repainted.
type Plan struct {
	Notes []midi.Message
	CCs   []midi.Message
	PBs   []midi.Message
}

// Planner builds a Plan from the currently active page's control
// mappings, the per-app state store, and the fader scheduler's pending
// setpoints.
type Planner struct {
	hw    *midi.HardwareMap
	mode  midi.XTouchMode
	state *state.Actor
	fd    *fader.Scheduler
}

// NewPlanner constructs a Planner.
func NewPlanner(hw *midi.HardwareMap, mode midi.XTouchMode, st *state.Actor, fd *fader.Scheduler) *Planner {
	return &Planner{hw: hw, mode: mode, state: st, fd: fd}
}

// candidate is one priority-ranked option for a slot's final value.
type candidate struct {
	value    uint16
	ts       int64
	priority int
	found    bool
}

func best(a, b candidate) candidate {
	if !a.found {
		return b
	}
	if !b.found {
		return a
	}
	if a.priority != b.priority {
		if a.priority > b.priority {
			return a
		}
		return b
	}
	if a.ts >= b.ts {
		return a
	}
	return b
}

// BuildRefreshPlan constructs the refresh plan for the currently active
// page, per the priority table in spec.md §4.4. It walks every control
// the hardware map knows about, not only those the active page maps --
// a control left unmapped on the new page still needs to be painted to
// its baseline (Note Off / forced-zero ring) so it doesn't keep showing
// stale state from the previous page. now is used as the timestamp for
// forced-zero/baseline slots, which always lose any tie against a real
// state-derived or scheduled candidate.
func (p *Planner) BuildRefreshPlan(controls map[string]config.ControlMapping, now int64) Plan {
	var plan Plan
	for _, id := range p.hw.IDs() {
		desc, ok := p.hw.Descriptor(id, p.mode)
		if !ok {
			continue
		}

		var app *appkey.AppKey
		var ctrl config.ControlMapping
		if c, mapped := controls[id]; mapped {
			if a, ok := appkey.Parse(c.App); ok {
				app = &a
				ctrl = c
			}
		}

		switch desc.Status {
		case midi.StatusPB:
			plan.PBs = append(plan.PBs, p.planPB(app, ctrl, desc, now))
		case midi.StatusNote:
			plan.Notes = append(plan.Notes, p.planNote(app, ctrl, desc, now))
		case midi.StatusCC:
			plan.CCs = append(plan.CCs, midi.Message{
				Status:  midi.StatusCC,
				Channel: desc.Channel,
				Data1:   desc.Number,
				Value:   0,
			})
		}
	}
	return plan
}

// mappedCC resolves the app-side CC address this control's midi target
// describes, if any, and returns the known latest state for it. app is
// nil when no control on the active page maps this hardware slot.
func (p *Planner) mappedCC(app *appkey.AppKey, ctrl config.ControlMapping) (midi.StateEntry, bool) {
	if app == nil || ctrl.MidiTarget == nil || ctrl.MidiTarget.Type != "cc" || ctrl.MidiTarget.CC == nil {
		return midi.StateEntry{}, false
	}
	ch := uint8(ctrl.MidiTarget.Channel)
	cc := uint8(*ctrl.MidiTarget.CC)
	return p.state.GetKnownLatest(*app, midi.StatusCC, &ch, &cc)
}

func (p *Planner) planPB(app *appkey.AppKey, ctrl config.ControlMapping, desc midi.Descriptor, now int64) midi.Message {
	ch := desc.Channel

	var winner candidate

	if app != nil {
		if e, ok := p.state.GetKnownLatest(*app, midi.StatusPB, &ch, nil); ok {
			winner = best(winner, candidate{value: e.Value.Number, ts: e.TS, priority: 3, found: true})
		}
	}
	if e, ok := p.mappedCC(app, ctrl); ok {
		winner = best(winner, candidate{value: midi.CCToPB(uint8(e.Value.Number)), ts: e.TS, priority: 2, found: true})
	}
	// Fader setpoints are keyed by physical channel, not by app mapping --
	// a pending setpoint applies even to a slot the active page leaves
	// unmapped, since the motor doesn't know the page changed.
	if v, ts, ok := p.fd.Desired(ch); ok {
		winner = best(winner, candidate{value: v, ts: ts, priority: 2, found: true})
	}
	winner = best(winner, candidate{value: 0, ts: now, priority: 1, found: true})

	return midi.Message{Status: midi.StatusPB, Channel: ch, Data1: 0, Value: winner.value}
}

func (p *Planner) planNote(app *appkey.AppKey, ctrl config.ControlMapping, desc midi.Descriptor, now int64) midi.Message {
	var winner candidate

	if e, ok := p.mappedCC(app, ctrl); ok {
		winner = best(winner, candidate{value: uint16(midi.CCToVelocity(uint8(e.Value.Number))), ts: e.TS, priority: 2, found: true})
	}
	winner = best(winner, candidate{value: 0, ts: now, priority: 1, found: true})

	return midi.Message{Status: midi.StatusNote, Channel: desc.Channel, Data1: desc.Number, Value: winner.value}
}
