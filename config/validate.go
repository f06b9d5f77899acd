package config

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every validation failure so callers can errors.Is
// against it regardless of which specific rule fired.
var ErrInvalid = errors.New("invalid config")

// Validate enforces §6 "Validation at load time (fatal if violated)".
func Validate(doc *Document) error {
	if doc.Midi.InputPort == "" || doc.Midi.OutputPort == "" {
		return fmt.Errorf("%w: midi input_port and output_port must be non-empty", ErrInvalid)
	}
	if len(doc.Pages) == 0 {
		return fmt.Errorf("%w: at least one page is required", ErrInvalid)
	}
	if doc.Paging.Channel < 1 || doc.Paging.Channel > 16 {
		return fmt.Errorf("%w: paging channel %d out of range 1..16", ErrInvalid, doc.Paging.Channel)
	}
	seen := make(map[string]bool, len(doc.Pages))
	for i, p := range doc.Pages {
		if p.Name == "" {
			return fmt.Errorf("%w: page %d has an empty name", ErrInvalid, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate page name %q", ErrInvalid, p.Name)
		}
		seen[p.Name] = true
		for id, ctrl := range p.Controls {
			if err := validateControl(p.Name, id, ctrl); err != nil {
				return err
			}
		}
	}
	for id, ctrl := range doc.PagesGlobal {
		if err := validateControl("pages_global", id, ctrl); err != nil {
			return err
		}
	}
	return nil
}

func validateControl(page, id string, ctrl ControlMapping) error {
	hasAction := ctrl.Action != ""
	hasTarget := ctrl.MidiTarget != nil
	if !hasAction && !hasTarget {
		return fmt.Errorf("%w: control %q on page %q has neither action nor midi target", ErrInvalid, id, page)
	}
	if hasAction && hasTarget && ctrl.MidiTarget.Type != "passthrough" {
		return fmt.Errorf("%w: control %q on page %q sets both action and a non-passthrough midi target", ErrInvalid, id, page)
	}
	if hasTarget {
		t := ctrl.MidiTarget
		if t.Channel < 1 || t.Channel > 16 {
			return fmt.Errorf("%w: control %q on page %q has midi channel %d out of range 1..16", ErrInvalid, id, page, t.Channel)
		}
		if t.CC != nil && (*t.CC < 0 || *t.CC > 127) {
			return fmt.Errorf("%w: control %q on page %q has cc %d out of range 0..127", ErrInvalid, id, page, *t.CC)
		}
		if t.Note != nil && (*t.Note < 0 || *t.Note > 127) {
			return fmt.Errorf("%w: control %q on page %q has note %d out of range 0..127", ErrInvalid, id, page, *t.Note)
		}
	}
	if ctrl.Overlay != nil && (ctrl.Overlay.Color < 0 || ctrl.Overlay.Color > 7) {
		return fmt.Errorf("%w: control %q on page %q has lcd color %d out of range 0..7", ErrInvalid, id, page, ctrl.Overlay.Color)
	}
	return nil
}
