// Package midi holds the wire-level MIDI vocabulary shared by the whole
// router: addressing, values, state entries, and the pure transforms
// (CC<->PB, CC<->Note) the page planner and feedback path depend on.
package midi

import "fmt"

// Status identifies the kind of MIDI slot an address refers to.
type Status int

const (
	StatusNote Status = iota
	StatusCC
	StatusPB
	StatusSysEx
)

func (s Status) String() string {
	switch s {
	case StatusNote:
		return "Note"
	case StatusCC:
		return "CC"
	case StatusPB:
		return "PB"
	case StatusSysEx:
		return "SysEx"
	default:
		return "Unknown"
	}
}

// Addr is the identity of a MIDI slot: (port, status, channel, data1).
//
// Channel uses 1-based external semantics. For PB, Data1 is pinned to 0.
// For SysEx, Channel and Data1 are both zero/unused.
type Addr struct {
	PortID  string
	Status  Status
	Channel uint8 // 1..16, 0 means "none" (SysEx)
	Data1   uint8 // 0..127, 0 for PB
}

// Key returns the addr-map key used by the state actor: unique within a
// single app's state map. The port participates here (state identity),
// unlike the shadow key (see ShadowKey) which deliberately omits it.
func (a Addr) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d", a.PortID, a.Status, a.Channel, a.Data1)
}

// ShadowKey implements the spec's shadow-key construction:
// "{status}|{channel}|{data1}" -- the port is intentionally excluded.
func (a Addr) ShadowKey() string {
	return fmt.Sprintf("%s|%d|%d", a.Status, a.Channel, a.Data1)
}

// WireChannel converts the 1-based external channel to the 0-based wire
// channel used by the MIDI status byte's low nibble.
func WireChannel(channel uint8) uint8 {
	if channel == 0 {
		return 0
	}
	return channel - 1
}

// ExternalChannel converts a 0-based wire channel to the 1-based external
// channel used throughout addressing and config.
func ExternalChannel(wire uint8) uint8 {
	return wire + 1
}
