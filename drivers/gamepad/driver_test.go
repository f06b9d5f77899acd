package gamepad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingDispatcher struct {
	calls []call
}

type call struct {
	driver string
	action string
	params map[string]any
}

func (r *recordingDispatcher) HandleGamepadEvent(driverName, action string, params map[string]any) error {
	r.calls = append(r.calls, call{driverName, action, params})
	return nil
}

func TestNormalizeAxisFullDeflection(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(1.0, normalizeAxis(32767), 0.001)
	assert.InDelta(-1.0, normalizeAxis(-32768), 0.001)
	assert.InDelta(0.0, normalizeAxis(0), 0.001)
}

func TestHandleAxisWithinDeadzoneReportsZero(t *testing.T) {
	assert := assert.New(t)
	disp := &recordingDispatcher{}
	d := New("ptz", disp)

	d.handleAxis(axisPan, 100) // well within the deadzone

	pan, _, _ := d.Snapshot()
	assert.Equal(0.0, pan)
	assert.Len(disp.calls, 1)
	assert.Equal(0.0, disp.calls[0].params["value"])
}

func TestHandleAxisPanDispatchesClassifiedEvent(t *testing.T) {
	assert := assert.New(t)
	disp := &recordingDispatcher{}
	d := New("ptz", disp)

	d.handleAxis(axisPan, 16384)

	pan, _, _ := d.Snapshot()
	assert.InDelta(0.5, pan, 0.01)
	assert.Equal("ptz.pan", disp.calls[0].action)
	assert.Equal("ptz", disp.calls[0].driver)
}

func TestHandleAxisTiltAndZoomUpdateIndependently(t *testing.T) {
	assert := assert.New(t)
	disp := &recordingDispatcher{}
	d := New("ptz", disp)

	d.handleAxis(axisTilt, -16384)
	d.handleAxis(axisZoom, 32767)

	pan, tilt, zoom := d.Snapshot()
	assert.Equal(0.0, pan)
	assert.InDelta(-0.5, tilt, 0.01)
	assert.InDelta(1.0, zoom, 0.01)
	assert.Len(disp.calls, 2)
	assert.Equal("ptz.tilt", disp.calls[0].action)
	assert.Equal("ptz.zoom", disp.calls[1].action)
}

func TestHandleAxisUnknownAxisIsIgnored(t *testing.T) {
	assert := assert.New(t)
	disp := &recordingDispatcher{}
	d := New("ptz", disp)

	d.handleAxis(7, 32767)

	assert.Empty(disp.calls)
}

func TestDispatchPresetSendsButtonIndex(t *testing.T) {
	assert := assert.New(t)
	disp := &recordingDispatcher{}
	d := New("ptz", disp)

	d.dispatchPreset(3)

	assert.Equal("ptz.preset", disp.calls[0].action)
	assert.Equal(3, disp.calls[0].params["preset"])
}

func TestStopWithoutRunIsNoop(t *testing.T) {
	d := New("ptz", nil)
	assert.NotPanics(t, func() { d.Stop() })
}
