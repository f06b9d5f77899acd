// Package gamepad reads a joystick/gamepad locally and classifies its
// axes and buttons into PTZ (pan/tilt/zoom) events, feeding them into
// the Router's control-dispatch entry point. Mapping gamepad axes to
// MIDI is explicitly out of scope for the core (spec.md's Non-goals) --
// classification happens here, in the collaborator.
package gamepad

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/jdginn/xtouch-gw/logging"
)

var log = logging.Get(logging.DRIVERS)

// Dispatcher is the subset of the Router's API the gamepad driver
// drives: one classified event at a time, addressed to a named driver
// the same way an action control addresses one.
type Dispatcher interface {
	HandleGamepadEvent(driverName, action string, params map[string]any) error
}

// Deadzone below which a pan or tilt reading is treated as
// centered/zero. The zoom axis has no deadzone.
const deadzone = 0.08

// PTZ axis assignments on a generic dual-stick gamepad: left stick
// pans/tilts, right trigger pair zooms.
const (
	axisPan  = 0
	axisTilt = 1
	axisZoom = 4
)

// Driver polls one SDL joystick on a dedicated OS thread (spec.md §5 --
// gamepad polling is blocking) and classifies its state into PTZ
// events dispatched to driverName.
type Driver struct {
	driverName string
	dispatch   Dispatcher

	mu       sync.Mutex
	pan      float64
	tilt     float64
	zoom     float64
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a gamepad driver that forwards classified PTZ events
// to driverName via dispatch.
func New(driverName string, dispatch Dispatcher) *Driver {
	return &Driver{driverName: driverName, dispatch: dispatch}
}

// Run initializes SDL's joystick subsystem and polls the first
// connected joystick until Stop is called. It must run on its own
// goroutine -- SDL's event loop is not safe to share with other SDL
// usage on a different thread.
func (d *Driver) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := sdl.Init(sdl.INIT_JOYSTICK); err != nil {
		return fmt.Errorf("gamepad: sdl init: %w", err)
	}
	defer sdl.Quit()

	if sdl.NumJoysticks() < 1 {
		return fmt.Errorf("gamepad: no joystick connected")
	}
	joy := sdl.JoystickOpen(0)
	if joy == nil {
		return fmt.Errorf("gamepad: failed to open joystick 0")
	}
	defer joy.Close()

	d.mu.Lock()
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()
	defer close(d.doneCh)

	log.Info("gamepad connected", "name", joy.Name())

	for {
		select {
		case <-d.stopCh:
			return nil
		default:
		}

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			d.handleEvent(event)
		}
		sdl.Delay(16)
	}
}

// Stop signals Run's poll loop to exit and waits for it to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	running := d.running
	stopCh := d.stopCh
	doneCh := d.doneCh
	d.running = false
	d.mu.Unlock()
	if !running {
		return
	}
	close(stopCh)
	<-doneCh
}

func (d *Driver) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.JoyAxisEvent:
		d.handleAxis(int(e.Axis), e.Value)
	case *sdl.JoyButtonEvent:
		if e.State == sdl.PRESSED {
			d.dispatchPreset(int(e.Button))
		}
	}
}

func (d *Driver) handleAxis(axis int, raw int16) {
	v := normalizeAxis(raw)
	if axis == axisPan || axis == axisTilt {
		if v > -deadzone && v < deadzone {
			v = 0
		}
	}

	d.mu.Lock()
	switch axis {
	case axisPan:
		d.pan = v
	case axisTilt:
		d.tilt = v
	case axisZoom:
		d.zoom = v
	default:
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if d.dispatch == nil {
		return
	}
	switch axis {
	case axisPan:
		_ = d.dispatch.HandleGamepadEvent(d.driverName, "ptz.pan", map[string]any{"value": v})
	case axisTilt:
		_ = d.dispatch.HandleGamepadEvent(d.driverName, "ptz.tilt", map[string]any{"value": v})
	case axisZoom:
		_ = d.dispatch.HandleGamepadEvent(d.driverName, "ptz.zoom", map[string]any{"value": v})
	}
}

func (d *Driver) dispatchPreset(button int) {
	if d.dispatch == nil {
		return
	}
	_ = d.dispatch.HandleGamepadEvent(d.driverName, "ptz.preset", map[string]any{"preset": button})
}

// Snapshot returns the most recently classified pan/tilt/zoom state.
func (d *Driver) Snapshot() (pan, tilt, zoom float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pan, d.tilt, d.zoom
}

// normalizeAxis converts a raw SDL int16 axis reading to [-1, 1].
func normalizeAxis(raw int16) float64 {
	if raw >= 0 {
		return float64(raw) / 32767.0
	}
	return float64(raw) / 32768.0
}
