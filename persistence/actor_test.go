package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/midi"
)

func startActor(t *testing.T) (*Actor, *memStore) {
	t.Helper()
	store := newMemStore()
	a := New(store)
	go a.Run()
	t.Cleanup(a.Shutdown)
	return a, store
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp: 1234,
		States: map[appkey.AppKey][]midi.StateEntry{
			appkey.Obs: {
				{
					Addr:  midi.Addr{PortID: "p", Status: midi.StatusPB, Channel: 1},
					Value: midi.NumericValue(8192),
					TS:    1000,
				},
			},
		},
	}
}

func TestFlushPersistsAndLoadReturnsIt(t *testing.T) {
	assert := assert.New(t)
	a, _ := startActor(t)

	a.Save(sampleSnapshot())
	assert.NoError(a.Flush())

	loaded, found, err := a.Load()
	assert.NoError(err)
	assert.True(found)
	assert.Equal(int64(1234), loaded.Timestamp)
	assert.Len(loaded.States[appkey.Obs], 1)
	assert.Equal(uint16(8192), loaded.States[appkey.Obs][0].Value.Number)
}

func TestSubsequentSavesWithinDebounceAreLastWriterWins(t *testing.T) {
	assert := assert.New(t)
	a, _ := startActor(t)

	first := sampleSnapshot()
	first.Timestamp = 1
	second := sampleSnapshot()
	second.Timestamp = 2

	a.Save(first)
	a.Save(second)
	assert.NoError(a.Flush())

	loaded, found, _ := a.Load()
	assert.True(found)
	assert.Equal(int64(2), loaded.Timestamp)
}

func TestLoadWithNoPriorSaveReturnsNotFound(t *testing.T) {
	assert := assert.New(t)
	a, _ := startActor(t)

	_, found, err := a.Load()
	assert.NoError(err)
	assert.False(found)
}

func TestShutdownFlushesPendingSnapshot(t *testing.T) {
	assert := assert.New(t)
	store := newMemStore()
	a := New(store)
	go a.Run()

	a.Save(sampleSnapshot())
	a.Shutdown()

	b, found, err := store.Get(snapshotKey)
	assert.NoError(err)
	assert.True(found)
	assert.NotEmpty(b)
}

func TestUnknownSnapshotVersionIsIgnored(t *testing.T) {
	assert := assert.New(t)
	store := newMemStore()
	store.Set(snapshotKey, []byte(`{"timestamp":1,"version":"99.0.0","states":{}}`))

	a := New(store)
	go a.Run()
	t.Cleanup(a.Shutdown)

	_, found, err := a.Load()
	assert.NoError(err)
	assert.False(found)
}
