// Package sniffer implements the CLI and web MIDI sniffers spec.md §6
// names as collaborators invoked via --sniffer / --web-sniffer: both
// observe raw traffic on the X-Touch surface without participating in
// the Router's dispatch.
package sniffer

import (
	"fmt"
	"io"
	"time"

	"github.com/jdginn/xtouch-gw/midi"
)

// CLI prints every frame it's fed to its writer, one line per frame,
// timestamped relative to the first frame observed.
type CLI struct {
	w     io.Writer
	start time.Time
	armed bool
}

// NewCLI constructs a CLI sniffer writing to w.
func NewCLI(w io.Writer) *CLI {
	return &CLI{w: w}
}

// Observe is the frame hook the MIDI transport calls for every frame;
// cmd/xtouch-gw feeds it the frames arriving on the X-Touch input port.
func (c *CLI) Observe(portID string, frame midi.Message, now time.Time) {
	if !c.armed {
		c.start = now
		c.armed = true
	}
	rel := now.Sub(c.start)
	fmt.Fprintf(c.w, "[%8.3fs] %-12s %s ch=%-2d data1=%-3d value=%d\n",
		rel.Seconds(), portID, statusName(frame.Status), frame.Channel, frame.Data1, frame.Value)
}

func statusName(s midi.Status) string {
	switch s {
	case midi.StatusNote:
		return "note"
	case midi.StatusCC:
		return "cc"
	case midi.StatusPB:
		return "pitchbend"
	default:
		return "unknown"
	}
}
