// Package config loads and validates the declarative document that binds
// surface controls to application actions or raw MIDI transforms.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MidiConfig describes the physical transport §6 "midi" section.
type MidiConfig struct {
	InputPort  string              `yaml:"input_port"`
	OutputPort string              `yaml:"output_port"`
	Apps       map[string]AppPorts `yaml:"apps,omitempty"`
}

// AppPorts lets an app use a dedicated MIDI bridge pair instead of the
// default input/output ports.
type AppPorts struct {
	InputPort  string `yaml:"input_port,omitempty"`
	OutputPort string `yaml:"output_port,omitempty"`
}

// XTouchConfig describes §6 "xtouch" section.
type XTouchConfig struct {
	Mode    string `yaml:"mode"` // "mcu" or "ctrl"
	Overlay struct {
		DurationMS int `yaml:"duration_ms"`
	} `yaml:"overlay,omitempty"`
}

// PagingConfig describes §6 "paging" section.
type PagingConfig struct {
	Channel    int `yaml:"channel"`
	PrevNote   int `yaml:"prev_note"`
	NextNote   int `yaml:"next_note"`
	DirectBase int `yaml:"direct_base,omitempty"`
}

// MidiTarget is a raw MIDI transform target for a control mapping.
type MidiTarget struct {
	Type    string `yaml:"type"` // "cc", "note", "pb", "passthrough"
	Channel int    `yaml:"channel"`
	CC      *int   `yaml:"cc,omitempty"`
	Note    *int   `yaml:"note,omitempty"`
}

// Indicator binds a driver signal name to a predicate deciding when a
// control's LED is lit.
type Indicator struct {
	Signal  string   `yaml:"signal"`
	Equals  any      `yaml:"equals,omitempty"`
	In      []any    `yaml:"in,omitempty"`
	Truthy  *bool    `yaml:"truthy,omitempty"`
}

// Overlay describes a transient LCD strip override for a control
// (supplemented feature, see SPEC_FULL.md). It is parsed and its color
// is validated; nothing in the router applies it to the surface.
type Overlay struct {
	Top      string `yaml:"top,omitempty"`
	Bottom   string `yaml:"bottom,omitempty"`
	Color    int    `yaml:"color,omitempty"`
	HoldMS   int    `yaml:"hold_ms,omitempty"`
}

// ControlMapping is one entry in a page's (or pages_global's) controls map.
type ControlMapping struct {
	App        string         `yaml:"app"`
	Action     string         `yaml:"action,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`
	MidiTarget *MidiTarget    `yaml:"midi,omitempty"`
	Indicator  *Indicator     `yaml:"indicator,omitempty"`
	Overlay    *Overlay       `yaml:"overlay,omitempty"`
}

// LCDConfig describes the scribble-strip layout for a page, opaque to the
// router beyond what the refresh planner needs.
type LCDConfig map[string]any

// Page is one immutable entry of the ordered pages list.
type Page struct {
	Name     string                    `yaml:"name"`
	Controls map[string]ControlMapping `yaml:"controls,omitempty"`
	LCD      LCDConfig                 `yaml:"lcd,omitempty"`
}

// Document is the whole config document, immutable once loaded.
// Reloading replaces the whole document atomically.
type Document struct {
	Midi        MidiConfig                `yaml:"midi"`
	XTouch      XTouchConfig              `yaml:"xtouch"`
	Paging      PagingConfig              `yaml:"paging"`
	Pages       []Page                    `yaml:"pages"`
	PagesGlobal map[string]ControlMapping `yaml:"pages_global,omitempty"`
}

// Load reads and validates a config document from path.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&doc)
	if err := Validate(&doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &doc, nil
}

func applyDefaults(doc *Document) {
	if doc.XTouch.Mode == "" {
		doc.XTouch.Mode = "mcu"
	}
	if doc.Paging.Channel == 0 {
		doc.Paging.Channel = 1
	}
	if doc.Paging.PrevNote == 0 {
		doc.Paging.PrevNote = 46
	}
	if doc.Paging.NextNote == 0 {
		doc.Paging.NextNote = 47
	}
	if doc.Paging.DirectBase == 0 {
		doc.Paging.DirectBase = 54
	}
}
