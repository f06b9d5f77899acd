package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/page"
	"github.com/jdginn/xtouch-gw/state"
)

func ccMidiTarget(channel, cc int) *config.MidiTarget {
	return &config.MidiTarget{Type: "cc", Channel: channel, CC: &cc}
}

func pbMidiTarget(channel int) *config.MidiTarget {
	return &config.MidiTarget{Type: "pb", Channel: channel}
}

func newTestTransformer(t *testing.T, doc *config.Document) (*Transformer, *state.Actor, *fader.Scheduler, *page.Model) {
	t.Helper()
	st := state.New()
	go st.Run()
	t.Cleanup(st.Shutdown)
	fd := fader.New()
	hw := midi.NewXTouchHardwareMap()
	m := page.NewModel(doc)
	return NewTransformer(m, st, fd, hw, midi.ModeMCU), st, fd, m
}

func TestProcessCCToPBReverseTransform(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"fader2": {App: "mixer", MidiTarget: ccMidiTarget(3, 25)},
			}},
		},
	}
	tr, _, _, _ := newTestTransformer(t, doc)

	frame := midi.Message{Status: midi.StatusCC, Channel: 3, Data1: 25, Value: 64}
	out, ok := tr.Process(appkey.Mixer, "p", frame, 1000)

	assert.True(ok)
	assert.Equal(midi.StatusPB, out.Status)
	assert.Equal(uint8(2), out.Channel)
	assert.Equal(midi.CCToPB(64), out.Value)
	assert.Equal(uint16(8256), out.Value)
}

func TestProcessDropsFeedbackFromAppNotOnPage(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"fader1": {App: "obs"},
			}},
		},
	}
	tr, _, fd, _ := newTestTransformer(t, doc)

	frame := midi.Message{Status: midi.StatusPB, Channel: 1, Value: 500}
	_, ok := tr.Process(appkey.Lighting, "p", frame, 1000)

	assert.False(ok)
	_, _, scheduled := fd.Desired(1)
	assert.False(scheduled, "off-page feedback must not schedule a setpoint")
}

func TestProcessAntiEchoSuppressesMatchingEcho(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"fader1": {App: "obs", MidiTarget: pbMidiTarget(3)},
			}},
		},
	}
	tr, st, _, _ := newTestTransformer(t, doc)

	addr := midi.Addr{PortID: "p", Status: midi.StatusPB, Channel: 3}
	st.UpdateShadow(midi.StateEntry{Addr: addr, Value: midi.NumericValue(8192)}, 1000)

	frame := midi.Message{Status: midi.StatusPB, Channel: 3, Value: 8192}
	_, ok := tr.Process(appkey.Obs, "p", frame, 1050)
	assert.False(ok)

	_, ok = tr.Process(appkey.Obs, "p", frame, 1000+int64(state.WindowPB)+1)
	assert.True(ok)
}

func TestProcessLWWSuppressesFeedbackMotorApplication(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"fader1": {App: "obs", MidiTarget: pbMidiTarget(3)},
			}},
		},
	}
	tr, st, fd, _ := newTestTransformer(t, doc)

	// A physical touch on fader1 (surface channel 1) at t=1000.
	physical := midi.Addr{Status: midi.StatusPB, Channel: 1}
	st.MarkUserAction(physical.ShadowKey(), 1000)

	// App feedback for the same fader (app-side channel 3) arrives within
	// the LWW guard window.
	frame := midi.Message{Status: midi.StatusPB, Channel: 3, Value: 0}
	out, ok := tr.Process(appkey.Obs, "p", frame, 1000+int64(state.GuardPB)-1)

	assert.False(ok, "a recent user touch must suppress feedback motor application")
	assert.Equal(midi.Message{}, out)
	_, _, scheduled := fd.Desired(1)
	assert.False(scheduled, "suppressed feedback must not schedule a fader setpoint")

	entry, found := st.GetState(appkey.Obs, midi.Addr{PortID: "p", Status: midi.StatusPB, Channel: 3})
	assert.True(found, "state must still record the app's reported value")
	assert.Equal(uint16(0), entry.Value.Number)

	// Once the guard window has elapsed, feedback applies normally.
	out, ok = tr.Process(appkey.Obs, "p", frame, 1000+int64(state.GuardPB)+1)
	assert.True(ok)
	assert.Equal(midi.StatusPB, out.Status)
	assert.Equal(uint8(1), out.Channel)
}

func TestProcessEpochInvalidatedAfterPageChangeDiscardsResult(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"mute1": {App: "obs", MidiTarget: ccMidiTarget(1, 32)},
			}},
		},
	}
	tr, _, _, m := newTestTransformer(t, doc)

	// Simulate a page change landing between Process's epoch capture and
	// its final epoch-currency check.
	tr.afterEpochCapture = func() {
		m.IncrementEpoch()
	}

	frame := midi.Message{Status: midi.StatusCC, Channel: 1, Data1: 32, Value: 127}
	_, ok := tr.Process(appkey.Obs, "p", frame, 1000)
	assert.False(ok, "page change landing mid-transform must discard the result")
}

func TestProcessNoMatchingControlReturnsFalse(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"fader1": {App: "obs"},
			}},
		},
	}
	tr, _, _, _ := newTestTransformer(t, doc)

	frame := midi.Message{Status: midi.StatusCC, Channel: 1, Data1: 99, Value: 10}
	_, ok := tr.Process(appkey.Obs, "p", frame, 1000)
	assert.False(ok)
}
