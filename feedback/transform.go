// Package feedback implements the reverse transform (spec.md §4.6): a raw
// MIDI frame received from an application becomes, at most, one native
// MIDI message toward the X-Touch surface.
package feedback

import (
	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/page"
	"github.com/jdginn/xtouch-gw/state"
)

var log = logging.Get(logging.FEEDBACK)

// Transformer binds the dependencies the reverse transform needs: the
// page model for epoch capture and control resolution, the state actor
// for anti-echo and state updates, the fader scheduler for motor
// setpoints, and the hardware map for the surface's native encoding.
type Transformer struct {
	model *page.Model
	state *state.Actor
	fd    *fader.Scheduler
	hw    *midi.HardwareMap
	mode  midi.XTouchMode

	// afterEpochCapture runs immediately after Process captures the page
	// epoch, if set. nil in production; tests use it to simulate a page
	// change landing between capture and the final epoch-currency check.
	afterEpochCapture func()
}

// NewTransformer constructs a Transformer.
func NewTransformer(model *page.Model, st *state.Actor, fd *fader.Scheduler, hw *midi.HardwareMap, mode midi.XTouchMode) *Transformer {
	return &Transformer{model: model, state: st, fd: fd, hw: hw, mode: mode}
}

// Process runs the full reverse-transform algorithm for a frame received
// from portID on behalf of app. It returns the native message to send to
// the surface and true, or false if the frame should be dropped (off-page
// app, anti-echo suppression, no matching control, a recent user touch or
// a superseded fader setpoint on the PB path, or epoch invalidated after
// a matching control was found).
func (t *Transformer) Process(app appkey.AppKey, portID string, frame midi.Message, now int64) (midi.Message, bool) {
	epoch := t.model.Epoch()
	if t.afterEpochCapture != nil {
		t.afterEpochCapture()
	}
	controls := t.model.ResolvedControls()

	if !appOnPage(app, controls) {
		log.Debug("dropping feedback from app not on active page", "app", app)
		return midi.Message{}, false
	}

	addr := midi.Addr{PortID: portID, Status: frame.Status, Channel: frame.Channel, Data1: frame.Data1}
	entry := midi.StateEntry{Addr: addr, Value: midi.NumericValue(frame.Value), TS: now}

	if t.state.ShouldSuppressAntiEcho(entry, now) {
		log.Debug("anti-echo suppressed feedback frame", "app", app, "addr", addr.Key())
		return midi.Message{}, false
	}
	t.state.UpdateState(app, entry)

	id, ctrl, ok := matchControl(controls, frame)
	if !ok {
		return midi.Message{}, false
	}

	desc, ok := t.hw.Descriptor(id, t.mode)
	if !ok {
		return midi.Message{}, false
	}

	var out midi.Message
	switch desc.Status {
	case midi.StatusCC:
		out = midi.Message{Status: midi.StatusCC, Channel: desc.Channel, Data1: desc.Number, Value: frame.Value}
	case midi.StatusNote:
		out = midi.Message{Status: midi.StatusNote, Channel: desc.Channel, Data1: desc.Number, Value: uint16(midi.CCToVelocity(uint8(frame.Value)))}
	case midi.StatusPB:
		var pb uint16
		if frame.Status == midi.StatusPB {
			pb = frame.Value
		} else {
			pb = midi.CCToPB(uint8(frame.Value))
		}
		// A recent physical touch on this fader wins over app feedback:
		// the state update above still records the app's value, but the
		// motor must not move.
		pbShadow := midi.StateEntry{Addr: midi.Addr{Status: midi.StatusPB, Channel: desc.Channel}}
		if t.state.ShouldSuppressLWW(pbShadow, now) {
			log.Debug("LWW suppressed feedback motor application", "app", app, "channel", desc.Channel)
			return midi.Message{}, false
		}
		fdEpoch := t.fd.Schedule(desc.Channel, pb, now)
		if _, apply := t.fd.ShouldApply(desc.Channel, fdEpoch, t.fd.PageEpoch()); !apply {
			log.Debug("fader scheduler discarded superseded feedback setpoint", "app", app, "channel", desc.Channel)
			return midi.Message{}, false
		}
		out = midi.Message{Status: midi.StatusPB, Channel: desc.Channel, Data1: 0, Value: pb}
	default:
		return midi.Message{}, false
	}

	_ = ctrl
	if !t.model.IsEpochCurrent(epoch) {
		log.Debug("page epoch advanced during feedback transform; discarding", "app", app)
		return midi.Message{}, false
	}
	return out, true
}

// appOnPage reports whether app appears among the resolved controls'
// app fields.
func appOnPage(app appkey.AppKey, controls map[string]config.ControlMapping) bool {
	for _, c := range controls {
		if k, ok := appkey.Parse(c.App); ok && k == app {
			return true
		}
	}
	return false
}

// matchControl walks controls looking for a midi_target matching frame
// exactly on type, channel, and cc/note number.
func matchControl(controls map[string]config.ControlMapping, frame midi.Message) (string, config.ControlMapping, bool) {
	for id, c := range controls {
		mt := c.MidiTarget
		if mt == nil {
			continue
		}
		if uint8(mt.Channel) != frame.Channel {
			continue
		}
		switch mt.Type {
		case "cc":
			if frame.Status == midi.StatusCC && mt.CC != nil && uint8(*mt.CC) == frame.Data1 {
				return id, c, true
			}
		case "note":
			if frame.Status == midi.StatusNote && mt.Note != nil && uint8(*mt.Note) == frame.Data1 {
				return id, c, true
			}
		case "pb":
			if frame.Status == midi.StatusPB {
				return id, c, true
			}
		}
	}
	return "", config.ControlMapping{}, false
}
