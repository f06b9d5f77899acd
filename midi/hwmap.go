package midi

import "strconv"

// XTouchMode selects which column of the hardware mapping database is
// active. MCU mode uses PB for faders and discrete Notes for buttons;
// Ctrl mode uses CCs throughout.
type XTouchMode int

const (
	ModeMCU XTouchMode = iota
	ModeCtrl
)

// Descriptor is one cell of the hardware mapping database: the native
// MIDI message a given control id sends/receives in a given mode.
type Descriptor struct {
	Status  Status
	Channel uint8 // 1-based; 0 for SysEx-less default where not applicable
	Number  uint8 // CC number or note number, 0 for PB
}

// ControlRow holds the two descriptors (MCU, Ctrl) for one logical
// control id, as described in §6: "a table keyed by logical control id
// ... with two values per row".
type ControlRow struct {
	MCU  Descriptor
	Ctrl Descriptor
}

// HardwareMap is the static, immutable table of control id -> {MCU, Ctrl}
// descriptors, derived from the X-Touch's two firmware modes.
type HardwareMap struct {
	rows   map[string]ControlRow
	byMCU  map[string]string // descriptor key -> control id
	byCtrl map[string]string
}

func descKey(d Descriptor) string {
	return d.Status.String() + "|" + strconv.Itoa(int(d.Channel)) + "|" + strconv.Itoa(int(d.Number))
}

// NewXTouchHardwareMap builds the standard Behringer X-Touch control table:
// 9 faders (8 channel + 1 master), 8 encoders (push + rotate surfaced
// separately by the caller), mute/solo/rec/select per channel, 8 F-keys,
// and the prev_page/next_page buttons. Transport buttons are not in the
// table.
func NewXTouchHardwareMap() *HardwareMap {
	hm := &HardwareMap{
		rows:   make(map[string]ControlRow),
		byMCU:  make(map[string]string),
		byCtrl: make(map[string]string),
	}
	add := func(id string, row ControlRow) {
		hm.rows[id] = row
		hm.byMCU[descKey(row.MCU)] = id
		hm.byCtrl[descKey(row.Ctrl)] = id
	}

	for i := uint8(0); i < 8; i++ {
		ch := i + 1
		add(faderID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusPB, Channel: ch},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 70 + i},
		})
		add(encoderID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusCC, Channel: 1, Number: 16 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 16 + i},
		})
		add(muteID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 16 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 32 + i},
		})
		add(soloID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 8 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 40 + i},
		})
		add(recID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 0 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 48 + i},
		})
		add(selectID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 24 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 56 + i},
		})
		add(fKeyID(i+1), ControlRow{
			MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 54 + i},
			Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 64 + i},
		})
	}
	// 9th (master) fader
	add(faderID(9), ControlRow{
		MCU:  Descriptor{Status: StatusPB, Channel: 9},
		Ctrl: Descriptor{Status: StatusCC, Channel: 1, Number: 78},
	})
	add("prev_page", ControlRow{
		MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 46},
		Ctrl: Descriptor{Status: StatusNote, Channel: 1, Number: 46},
	})
	add("next_page", ControlRow{
		MCU:  Descriptor{Status: StatusNote, Channel: 1, Number: 47},
		Ctrl: Descriptor{Status: StatusNote, Channel: 1, Number: 47},
	})
	return hm
}

func faderID(i int) string   { return "fader" + strconv.Itoa(i) }
func encoderID(i int) string { return "encoder" + strconv.Itoa(i) }
func muteID(i int) string    { return "mute" + strconv.Itoa(i) }
func soloID(i int) string    { return "solo" + strconv.Itoa(i) }
func recID(i int) string     { return "rec" + strconv.Itoa(i) }
func selectID(i int) string  { return "select" + strconv.Itoa(i) }
func fKeyID(i int) string    { return "f" + strconv.Itoa(i) }

// Row returns the descriptor row for a control id.
func (hm *HardwareMap) Row(controlID string) (ControlRow, bool) {
	r, ok := hm.rows[controlID]
	return r, ok
}

// IDs returns every control id the hardware map knows about, in no
// particular order. Used by the refresh planner to walk the full
// physical surface rather than only the controls the active page maps,
// so that controls left unmapped on the new page are still extinguished.
func (hm *HardwareMap) IDs() []string {
	ids := make([]string, 0, len(hm.rows))
	for id := range hm.rows {
		ids = append(ids, id)
	}
	return ids
}

// Descriptor returns the active-mode descriptor for a control id.
func (hm *HardwareMap) Descriptor(controlID string, mode XTouchMode) (Descriptor, bool) {
	row, ok := hm.rows[controlID]
	if !ok {
		return Descriptor{}, false
	}
	if mode == ModeCtrl {
		return row.Ctrl, true
	}
	return row.MCU, true
}

// Lookup finds the control id bound to a wire message in the given mode.
func (hm *HardwareMap) Lookup(mode XTouchMode, d Descriptor) (string, bool) {
	if mode == ModeCtrl {
		id, ok := hm.byCtrl[descKey(d)]
		return id, ok
	}
	id, ok := hm.byMCU[descKey(d)]
	return id, ok
}
