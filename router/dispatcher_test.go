package router

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/page"
	"github.com/jdginn/xtouch-gw/persistence"
	"github.com/jdginn/xtouch-gw/state"
)

type recordingSurface struct {
	sent []midi.Message
}

func (s *recordingSurface) Send(m midi.Message) error {
	s.sent = append(s.sent, m)
	return nil
}

type fakeDriver struct {
	name         string
	initErr      error
	syncErr      error
	shutdownErr  error
	actions      []string
	forwarded    []midi.Message
	forwardIsSet bool
}

func (d *fakeDriver) Name() string                  { return d.name }
func (d *fakeDriver) Init(ctx DriverContext) error   { return d.initErr }
func (d *fakeDriver) Sync(ctx DriverContext) error   { return d.syncErr }
func (d *fakeDriver) Shutdown() error                { return d.shutdownErr }
func (d *fakeDriver) InvokeAction(action string, params map[string]any, ctx ActionContext) error {
	d.actions = append(d.actions, action)
	return nil
}

type forwardingDriver struct {
	fakeDriver
}

func (d *forwardingDriver) Forward(m midi.Message) error {
	d.forwarded = append(d.forwarded, m)
	return nil
}

func twoPageRouterDoc() *config.Document {
	return &config.Document{
		Paging: config.PagingConfig{Channel: 1, PrevNote: 46, NextNote: 47, DirectBase: 54},
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"mute1": {App: "obs", Action: "toggleMute"},
			}},
			{Name: "b", Controls: map[string]config.ControlMapping{}},
		},
	}
}

func newTestRouter(t *testing.T, doc *config.Document) (*Router, *recordingSurface) {
	t.Helper()
	st := state.New()
	go st.Run()
	t.Cleanup(st.Shutdown)

	store := newMemStoreForRouterTest()
	persist := persistence.New(store)
	go persist.Run()
	t.Cleanup(persist.Shutdown)

	fd := fader.New()
	hw := midi.NewXTouchHardwareMap()
	model := page.NewModel(doc)
	surface := &recordingSurface{}
	r := New(hw, midi.ModeMCU, st, persist, fd, model, surface)
	return r, surface
}

func TestRegisterDriverStoresOnSuccessNotOnFailure(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestRouter(t, twoPageRouterDoc())

	ok := &fakeDriver{name: "obs"}
	assert.NoError(r.RegisterDriver("obs", ok, 0))
	_, found := r.Driver("obs")
	assert.True(found)

	bad := &fakeDriver{name: "lighting", initErr: errors.New("boom")}
	assert.Error(r.RegisterDriver("lighting", bad, 0))
	_, found = r.Driver("lighting")
	assert.False(found)
}

func TestRefreshPageEmitsNotesBeforeCCsBeforePBs(t *testing.T) {
	assert := assert.New(t)
	doc := &config.Document{
		Paging: config.PagingConfig{Channel: 1, PrevNote: 46, NextNote: 47, DirectBase: 54},
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"mute1":    {App: "obs"},
				"encoder1": {App: "obs"},
				"fader1":   {App: "obs"},
			}},
		},
	}
	r, surface := newTestRouter(t, doc)

	assert.NoError(r.RefreshPage(1000))
	assert.NotEmpty(surface.sent)

	// Notes must all precede CCs, which must all precede PBs -- the full
	// surface is repainted on every refresh, so the exact counts depend on
	// the hardware map, but the emission order invariant must hold.
	lastNote, lastCC := -1, -1
	firstCC, firstPB := len(surface.sent), len(surface.sent)
	for i, m := range surface.sent {
		switch m.Status {
		case midi.StatusNote:
			lastNote = i
		case midi.StatusCC:
			lastCC = i
			if i < firstCC {
				firstCC = i
			}
		case midi.StatusPB:
			if i < firstPB {
				firstPB = i
			}
		}
	}
	if lastNote >= 0 && firstCC < len(surface.sent) {
		assert.Less(lastNote, firstCC)
	}
	if lastCC >= 0 && firstPB < len(surface.sent) {
		assert.Less(lastCC, firstPB)
	}
}

func TestPageChangeExtinguishesPreviousPageLED(t *testing.T) {
	// Page refresh extinguishes previous LEDs: page A maps mute1 to app X,
	// page B does not. Lighting mute1 on A then switching to B must emit a
	// Note Off for mute1 (ch0 note16 vel0 in wire terms; channel 1/note16
	// external).
	assert := assert.New(t)
	doc := &config.Document{
		Paging: config.PagingConfig{Channel: 1, PrevNote: 46, NextNote: 47, DirectBase: 54},
		Pages: []config.Page{
			{Name: "a", Controls: map[string]config.ControlMapping{
				"mute1": {App: "obs", MidiTarget: &config.MidiTarget{Type: "cc", Channel: 1, CC: intPtr(7)}},
			}},
			{Name: "b", Controls: map[string]config.ControlMapping{}},
		},
	}
	r, surface := newTestRouter(t, doc)

	r.state.UpdateState(mustParseApp("obs"), midi.StateEntry{
		Addr:  midi.Addr{PortID: "p", Status: midi.StatusCC, Channel: 1, Data1: 7},
		Value: midi.NumericValue(100),
		TS:    500,
	})
	assert.NoError(r.RefreshPage(600))
	// Precondition: mute1 is lit on page A.
	found := false
	for _, m := range surface.sent {
		if m.Status == midi.StatusNote && m.Data1 == 16 && m.Value == 127 {
			found = true
		}
	}
	assert.True(found, "mute1 should be lit on page A")

	surface.sent = nil
	assert.NoError(r.NextPage(700))
	found = false
	for _, m := range surface.sent {
		if m.Status == midi.StatusNote && m.Channel == 1 && m.Data1 == 16 && m.Value == 0 {
			found = true
		}
	}
	assert.True(found, "mute1 must be extinguished on page B")
}

func TestShutdownAllDriversClearsRegistryAndAggregatesErrors(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestRouter(t, twoPageRouterDoc())

	good := &fakeDriver{name: "obs"}
	bad := &fakeDriver{name: "lighting", shutdownErr: errors.New("stuck")}
	assert.NoError(r.RegisterDriver("obs", good, 0))
	assert.NoError(r.RegisterDriver("lighting", bad, 0))

	err := r.ShutdownAllDrivers()
	assert.Error(err)
	_, found := r.Driver("obs")
	assert.False(found)
}

func TestStateChangeSchedulesDebouncedPersistence(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st := state.New()
	go st.Run()
	t.Cleanup(st.Shutdown)

	store := newMemStoreForRouterTest()
	persist := persistence.New(store)
	go persist.Run()
	t.Cleanup(persist.Shutdown)

	fd := fader.New()
	hw := midi.NewXTouchHardwareMap()
	model := page.NewModel(twoPageRouterDoc())
	_ = New(hw, midi.ModeMCU, st, persist, fd, model, &recordingSurface{})

	st.UpdateState(mustParseApp("obs"), midi.StateEntry{
		Addr:  midi.Addr{PortID: "p", Status: midi.StatusCC, Channel: 1, Data1: 7},
		Value: midi.NumericValue(64),
		TS:    1000,
	})

	// The state-change subscriber hands the snapshot to the persistence
	// actor from its own goroutine (see Router.schedulePersist), so poll
	// rather than asserting immediately after the state write returns.
	require.Eventually(func() bool {
		persist.Flush()
		_, found, err := persist.Load()
		return err == nil && found
	}, time.Second, 5*time.Millisecond, "state change must schedule a persisted snapshot")

	loaded, found, err := persist.Load()
	require.NoError(err)
	require.True(found)
	assert.NotEmpty(loaded.States[mustParseApp("obs")])
}

func intPtr(n int) *int { return &n }
