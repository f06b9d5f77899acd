// Package midibridge implements the Router driver shared by the
// lighting console and the virtual mixer: both speak raw MIDI over a
// dedicated virtual cable rather than a richer app protocol.
package midibridge

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/router"
)

var log = logging.Get(logging.DRIVERS)

// FeedbackSink is called with every inbound frame so the router can run
// the reverse transform (spec.md §4.6).
type FeedbackSink func(app appkey.AppKey, portID string, frame midi.Message)

// Driver bridges one virtual MIDI in/out pair to a single AppKey. It
// implements both router.Driver and router.MidiForwarder.
type Driver struct {
	app    appkey.AppKey
	portID string
	in     drivers.In
	out    drivers.Out
	sink   FeedbackSink

	stop func()
}

// New constructs a Driver bound to app, reading from in and writing to
// out (already resolved by substring port-name match at startup).
func New(app appkey.AppKey, portID string, in drivers.In, out drivers.Out, sink FeedbackSink) *Driver {
	return &Driver{app: app, portID: portID, in: in, out: out, sink: sink}
}

func (d *Driver) Name() string { return d.app.String() }

func (d *Driver) Init(ctx router.DriverContext) error {
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("midibridge(%s): open in: %w", d.app, err)
	}
	if err := d.out.Open(); err != nil {
		return fmt.Errorf("midibridge(%s): open out: %w", d.app, err)
	}
	stop, err := gomidi.ListenTo(d.in, func(msg gomidi.Message, timestampms int32) {
		m, ok := midi.Parse(msg)
		if !ok {
			log.Debug("midibridge: unparseable inbound frame, dropping", "app", d.app)
			return
		}
		if d.sink != nil {
			d.sink(d.app, d.portID, m)
		}
	})
	if err != nil {
		return fmt.Errorf("midibridge(%s): listen: %w", d.app, err)
	}
	d.stop = stop
	log.Info("midibridge connected", "app", d.app, "in", d.in.String(), "out", d.out.String())
	return nil
}

// Sync is a no-op -- the bridge has no per-config state beyond the
// ports it already opened.
func (d *Driver) Sync(ctx router.DriverContext) error { return nil }

func (d *Driver) Shutdown() error {
	if d.stop != nil {
		d.stop()
	}
	_ = d.in.Close()
	_ = d.out.Close()
	return nil
}

// Forward sends m verbatim to the bridge's downstream app, implementing
// router.MidiForwarder for midi_target-mapped controls.
func (d *Driver) Forward(m midi.Message) error {
	return d.out.Send(midi.Encode(m))
}

// InvokeAction renders a named action as a raw MIDI message. Supported
// actions: "cc" (params: channel, cc, value), "note" (params: channel,
// note, velocity).
func (d *Driver) InvokeAction(action string, params map[string]any, actx router.ActionContext) error {
	ch := uint8(intParam(params, "channel", 1))
	switch action {
	case "cc":
		cc := uint8(intParam(params, "cc", 0))
		val := uint8(intParam(params, "value", 0))
		return d.out.Send(midi.Encode(midi.Message{Status: midi.StatusCC, Channel: ch, Data1: cc, Value: uint16(val)}))
	case "note":
		note := uint8(intParam(params, "note", 0))
		vel := uint8(intParam(params, "velocity", 127))
		return d.out.Send(midi.Encode(midi.Message{Status: midi.StatusNote, Channel: ch, Data1: note, Value: uint16(vel)}))
	default:
		return fmt.Errorf("midibridge(%s): unknown action %q", d.app, action)
	}
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}
