package persistence

import (
	"encoding/json"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/midi"
)

// SnapshotVersion is the current persisted document version. Readers
// that see an unknown version must log and return empty rather than
// crash -- the version field exists to enable forward migration.
const SnapshotVersion = "1.0.0"

// snapshotKey is the single key this whole document lives under in the
// embedded store.
const snapshotKey = "xtouch-gw/state-snapshot"

// wireEntry is the JSON-serialisable shape of a midi.StateEntry.
type wireEntry struct {
	Port    string `json:"port"`
	Status  int    `json:"status"`
	Channel uint8  `json:"channel"`
	Data1   uint8  `json:"data1"`
	Kind    int    `json:"kind"`
	Number  uint16 `json:"number,omitempty"`
	Text    string `json:"text,omitempty"`
	Binary  []byte `json:"binary,omitempty"`
	TS      int64  `json:"ts"`
	Origin  int    `json:"origin"`
}

func toWire(e midi.StateEntry) wireEntry {
	return wireEntry{
		Port:    e.Addr.PortID,
		Status:  int(e.Addr.Status),
		Channel: e.Addr.Channel,
		Data1:   e.Addr.Data1,
		Kind:    int(e.Value.Kind),
		Number:  e.Value.Number,
		Text:    e.Value.Text,
		Binary:  e.Value.Binary,
		TS:      e.TS,
		Origin:  int(e.Origin),
	}
}

func fromWire(w wireEntry) midi.StateEntry {
	return midi.StateEntry{
		Addr: midi.Addr{
			PortID:  w.Port,
			Status:  midi.Status(w.Status),
			Channel: w.Channel,
			Data1:   w.Data1,
		},
		Value: midi.Value{
			Kind:   midi.ValueKind(w.Kind),
			Number: w.Number,
			Text:   w.Text,
			Binary: w.Binary,
		},
		TS:     w.TS,
		Origin: midi.Origin(w.Origin),
	}
}

// Document is the versioned document persisted to the embedded store.
type Document struct {
	Timestamp int64                      `json:"timestamp"`
	Version   string                     `json:"version"`
	States    map[string][]wireEntry     `json:"states"`
}

// Snapshot is the in-memory, typed equivalent of Document that callers
// build and receive. Keyed by AppKey rather than its string form.
type Snapshot struct {
	Timestamp int64
	States    map[appkey.AppKey][]midi.StateEntry
}

func (s Snapshot) marshal() ([]byte, error) {
	doc := Document{
		Timestamp: s.Timestamp,
		Version:   SnapshotVersion,
		States:    make(map[string][]wireEntry, len(s.States)),
	}
	for app, entries := range s.States {
		wire := make([]wireEntry, 0, len(entries))
		for _, e := range entries {
			wire = append(wire, toWire(e))
		}
		doc.States[app.String()] = wire
	}
	return json.Marshal(doc)
}

func unmarshalSnapshot(b []byte) (Snapshot, bool) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Snapshot{}, false
	}
	if doc.Version != SnapshotVersion {
		return Snapshot{}, false
	}
	states := make(map[appkey.AppKey][]midi.StateEntry, len(doc.States))
	for name, wire := range doc.States {
		app, ok := appkey.Parse(name)
		if !ok {
			continue
		}
		entries := make([]midi.StateEntry, 0, len(wire))
		for _, w := range wire {
			entries = append(entries, fromWire(w))
		}
		states[app] = entries
	}
	return Snapshot{Timestamp: doc.Timestamp, States: states}, true
}
