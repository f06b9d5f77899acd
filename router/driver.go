package router

import (
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/midi"
)

// DriverContext is handed to a driver at Init and on every Sync: the
// config handle, the active page's name, and an optional activity
// tracker the driver can use to report traffic for the tray presenter.
type DriverContext struct {
	Config      *config.Document
	ActivePage  string
	OnActivity  func()
}

// Driver is the interface every downstream application/transport
// adapter implements: OBS, or a MIDI bridge driving a lighting console
// or virtual mixer.
type Driver interface {
	Name() string
	Init(ctx DriverContext) error
	Sync(ctx DriverContext) error
	InvokeAction(action string, params map[string]any, ctx ActionContext) error
	Shutdown() error
}

// ActionContext carries the normalised value and originating control id
// for an action invocation triggered by a surface control.
type ActionContext struct {
	ControlID  string
	Normalized float64
	Raw        uint16
}

// MidiForwarder is implemented by drivers that speak raw MIDI toward
// their downstream app (the lighting console and virtual mixer
// bridges). Drivers without a native MIDI representation (OBS) do not
// implement it; a midi_target control addressed to such a driver is
// logged and dropped.
type MidiForwarder interface {
	Forward(m midi.Message) error
}
