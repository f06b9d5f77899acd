// Package fader implements the motorized-fader setpoint scheduler: a
// motor-arbitration primitive, not a value cache (spec.md §4.3, §9).
package fader

import (
	"sync"

	"github.com/jdginn/xtouch-gw/logging"
)

var log = logging.Get(logging.FADER)

type channelState struct {
	desired14 uint16
	epoch     uint32
	ts        int64
	pageEpoch uint64 // scheduler page epoch at the time of Schedule
}

// Scheduler tracks the desired 14-bit position for each motorized
// channel and rejects stale motor commands via per-channel epochs gated
// by a mirrored page epoch.
type Scheduler struct {
	mu         sync.Mutex
	channels   map[uint8]*channelState
	pageEpoch  uint64
}

// New constructs an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{channels: make(map[uint8]*channelState)}
}

func (s *Scheduler) state(channel uint8) *channelState {
	cs, ok := s.channels[channel]
	if !ok {
		cs = &channelState{}
		s.channels[channel] = cs
	}
	return cs
}

// Schedule records the desired value for channel and returns a fresh
// per-channel epoch. The caller holds that epoch until it is ready to
// emit MIDI to the surface.
func (s *Scheduler) Schedule(channel uint8, value14 uint16, ts int64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.state(channel)
	cs.desired14 = value14
	cs.ts = ts
	cs.pageEpoch = s.pageEpoch
	cs.epoch++
	log.Debug("scheduled fader setpoint", "channel", channel, "value14", value14, "epoch", cs.epoch)
	return cs.epoch
}

// ShouldApply returns the value iff the per-channel epoch matches, the
// setpoint was scheduled under the scheduler's current page epoch (no
// SetPageEpoch since Schedule), and that page epoch equals
// currentPageEpoch.
func (s *Scheduler) ShouldApply(channel uint8, epoch uint32, currentPageEpoch uint64) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.channels[channel]
	if !ok {
		return 0, false
	}
	if cs.epoch != epoch {
		return 0, false
	}
	if cs.pageEpoch != s.pageEpoch || s.pageEpoch != currentPageEpoch {
		return 0, false
	}
	return cs.desired14, true
}

// SetPageEpoch is called by the router before the refresh planner runs,
// invalidating any setpoint scheduled under a prior page epoch.
func (s *Scheduler) SetPageEpoch(newEpoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageEpoch = newEpoch
}

// PageEpoch returns the scheduler's currently recorded page epoch.
func (s *Scheduler) PageEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageEpoch
}

// Desired returns the last-scheduled value and timestamp for channel,
// without epoch checks -- used by the refresh planner's "fader setpoint"
// slot source.
func (s *Scheduler) Desired(channel uint8) (value uint16, ts int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.channels[channel]
	if !ok {
		return 0, 0, false
	}
	return cs.desired14, cs.ts, true
}
