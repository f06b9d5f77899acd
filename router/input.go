package router

import (
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/midi"
)

// isToggleStyle reports whether controlID names a latching/toggle-style
// control whose Note On velocity 0 must be dropped rather than
// interpreted as a second trigger (spec.md §4.5 step 6).
func isToggleStyle(controlID string) bool {
	switch {
	case len(controlID) >= 4 && controlID[:4] == "mute":
		return true
	case len(controlID) >= 4 && controlID[:4] == "solo":
		return true
	case len(controlID) >= 3 && controlID[:3] == "rec":
		return true
	default:
		return false
	}
}

// HandleXTouchInput implements the full dispatch order from spec.md §4.5
// for one raw inbound frame from the surface.
func (r *Router) HandleXTouchInput(portID string, raw []byte, frame midi.Message, now int64) error {
	if len(raw) < 2 {
		return nil
	}

	doc := r.model.Document()

	if frame.Status == midi.StatusNote && frame.Value > 0 && frame.Channel == uint8(doc.Paging.Channel) {
		switch {
		case int(frame.Data1) == doc.Paging.PrevNote:
			return r.PrevPage(now)
		case int(frame.Data1) == doc.Paging.NextNote:
			return r.NextPage(now)
		case int(frame.Data1) >= doc.Paging.DirectBase && int(frame.Data1) < doc.Paging.DirectBase+8:
			return r.JumpToPage(int(frame.Data1)-doc.Paging.DirectBase, now)
		}
	}

	desc := midi.Descriptor{Status: frame.Status, Channel: frame.Channel, Number: frame.Data1}
	controlID, ok := r.hw.Lookup(r.mode, desc)
	if !ok {
		log.Debug("no control mapped to inbound frame; dropping", "status", frame.Status, "channel", frame.Channel, "data1", frame.Data1)
		return nil
	}

	addr := midi.Addr{PortID: portID, Status: frame.Status, Channel: frame.Channel, Data1: frame.Data1}
	r.state.MarkUserAction(addr.ShadowKey(), now)

	if frame.Status == midi.StatusPB {
		r.fd.Schedule(frame.Channel, frame.Value, now)
	}

	if frame.Status == midi.StatusNote && frame.Value == 0 && isToggleStyle(controlID) {
		return nil
	}

	controls := r.model.ResolvedControls()
	ctrl, ok := controls[controlID]
	if !ok {
		return nil
	}

	if ctrl.MidiTarget != nil {
		return r.forwardToDriver(ctrl.App, buildForwardMessage(*ctrl.MidiTarget, frame))
	}

	if ctrl.Action != "" {
		d, ok := r.Driver(ctrl.App)
		if !ok {
			log.Warn("action control references unregistered driver", "control", controlID, "app", ctrl.App)
			return nil
		}
		actx := ActionContext{
			ControlID:  controlID,
			Normalized: midi.Normalize(frame.Status, frame.Value),
			Raw:        frame.Value,
		}
		if err := d.InvokeAction(ctrl.Action, ctrl.Params, actx); err != nil {
			log.Warn("driver action failed", "control", controlID, "app", ctrl.App, "action", ctrl.Action, "error", err)
		}
		return nil
	}

	return nil
}

// buildForwardMessage renders the outgoing frame toward the app side of
// a midi_target, converting a 14-bit PB touch to 7-bit CC when the
// target expects CC.
func buildForwardMessage(mt config.MidiTarget, frame midi.Message) midi.Message {
	ch := uint8(mt.Channel)
	switch mt.Type {
	case "cc":
		val := frame.Value
		if frame.Status == midi.StatusPB {
			val = uint16(midi.PBToCC(frame.Value))
		}
		num := uint8(0)
		if mt.CC != nil {
			num = uint8(*mt.CC)
		}
		return midi.Message{Status: midi.StatusCC, Channel: ch, Data1: num, Value: val}
	case "note":
		num := uint8(0)
		if mt.Note != nil {
			num = uint8(*mt.Note)
		}
		return midi.Message{Status: midi.StatusNote, Channel: ch, Data1: num, Value: frame.Value}
	case "pb":
		return midi.Message{Status: midi.StatusPB, Channel: ch, Value: frame.Value}
	default: // "passthrough"
		return frame
	}
}

// HandleGamepadEvent is the control-dispatch entry point the gamepad
// collaborator feeds already-classified PTZ events into (spec.md's
// Non-goal carves out axis-to-MIDI mapping; classification happens in
// the driver, dispatch happens here). driverName names the registered
// driver the event targets, mirroring an action control's "app" field.
func (r *Router) HandleGamepadEvent(driverName, action string, params map[string]any) error {
	d, ok := r.Driver(driverName)
	if !ok {
		log.Debug("gamepad event references unregistered driver", "driver", driverName, "action", action)
		return nil
	}
	return d.InvokeAction(action, params, ActionContext{})
}

func (r *Router) forwardToDriver(appName string, m midi.Message) error {
	d, ok := r.Driver(appName)
	if !ok {
		log.Warn("midi_target control references unregistered driver", "app", appName)
		return nil
	}
	fwd, ok := d.(MidiForwarder)
	if !ok {
		log.Warn("driver does not accept raw midi forwarding", "app", appName)
		return nil
	}
	return fwd.Forward(m)
}
