package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message is the decoded shape of a single channel-voice MIDI message,
// canonicalised to 1-based external channel numbers.
type Message struct {
	Status  Status
	Channel uint8 // 1..16, 0 for SysEx
	Data1   uint8 // note/cc number, 0 for PB
	Value   uint16 // velocity/cc value (0..127) or 14-bit PB value (0..16383)
	SysEx   []byte
}

// Encode renders m to wire bytes using the teacher's gomidi message
// builders. Note Off is always emitted as 0x9n velocity 0 per spec's wire
// encoding rule -- the X-Touch ignores true 0x8x Note Off status bytes.
func Encode(m Message) gomidi.Message {
	wireCh := WireChannel(m.Channel)
	switch m.Status {
	case StatusNote:
		return gomidi.NoteOn(wireCh, m.Data1, uint8(m.Value))
	case StatusCC:
		return gomidi.ControlChange(wireCh, m.Data1, uint8(m.Value))
	case StatusPB:
		return gomidi.Pitchbend(wireCh, int16(int32(m.Value)-0x2000))
	case StatusSysEx:
		return gomidi.SysEx(m.SysEx)
	default:
		return nil
	}
}

// Parse decodes a raw gomidi message into our canonical Message. ok is
// false for message types we don't route (e.g. non-channel system
// messages other than SysEx). The callers in this repository (the
// gateway's surface input loop, the MIDI bridge driver, the sniffers)
// drop such frames; none forwards their raw bytes.
func Parse(msg gomidi.Message) (Message, bool) {
	switch msg.Type() {
	case gomidi.NoteOnMsg:
		var ch, key, vel uint8
		if !msg.GetNoteOn(&ch, &key, &vel) {
			return Message{}, false
		}
		return Message{Status: StatusNote, Channel: ExternalChannel(ch), Data1: key, Value: uint16(vel)}, true
	case gomidi.NoteOffMsg:
		var ch, key, vel uint8
		if !msg.GetNoteOff(&ch, &key, &vel) {
			return Message{}, false
		}
		return Message{Status: StatusNote, Channel: ExternalChannel(ch), Data1: key, Value: 0}, true
	case gomidi.ControlChangeMsg:
		var ch, cc, val uint8
		if !msg.GetControlChange(&ch, &cc, &val) {
			return Message{}, false
		}
		return Message{Status: StatusCC, Channel: ExternalChannel(ch), Data1: cc, Value: uint16(val)}, true
	case gomidi.PitchBendMsg:
		var ch uint8
		var rel int16
		var abs uint16
		if !msg.GetPitchBend(&ch, &rel, &abs) {
			return Message{}, false
		}
		return Message{Status: StatusPB, Channel: ExternalChannel(ch), Data1: 0, Value: abs}, true
	case gomidi.SysExMsg:
		var data []byte
		if !msg.GetSysEx(&data) {
			return Message{}, false
		}
		return Message{Status: StatusSysEx, SysEx: append([]byte(nil), data...)}, true
	default:
		return Message{}, false
	}
}
