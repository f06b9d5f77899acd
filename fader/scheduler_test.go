package fader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleThenShouldApplyMatchingEpochs(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.SetPageEpoch(1)

	epoch := s.Schedule(3, 8192, 100)
	val, ok := s.ShouldApply(3, epoch, 1)
	assert.True(ok)
	assert.Equal(uint16(8192), val)
}

func TestShouldApplyRejectsSupersededChannelEpoch(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.SetPageEpoch(1)

	old := s.Schedule(1, 1000, 100)
	s.Schedule(1, 2000, 200) // newer epoch supersedes

	_, ok := s.ShouldApply(1, old, 1)
	assert.False(ok)
}

func TestShouldApplyRejectsStalePageEpoch(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.SetPageEpoch(1)

	epoch := s.Schedule(5, 4000, 100)
	s.SetPageEpoch(2) // page changed after scheduling

	_, ok := s.ShouldApply(5, epoch, 2)
	assert.False(ok)
}

func TestLWWUserTouchSupersedesEarlierFeedbackSetpoint(t *testing.T) {
	// Mirrors the "LWW wins over feedback" scenario in spec.md §8: a user
	// touch schedules epoch N+1 after feedback scheduled epoch N, so the
	// feedback's epoch no longer applies.
	assert := assert.New(t)
	s := New()
	s.SetPageEpoch(1)

	feedbackEpoch := s.Schedule(1, 0, 100)     // app feedback says 0
	userEpoch := s.Schedule(1, 16000, 200) // user immediately moves it

	assert.NotEqual(feedbackEpoch, userEpoch)
	_, ok := s.ShouldApply(1, feedbackEpoch, 1)
	assert.False(ok)
	val, ok := s.ShouldApply(1, userEpoch, 1)
	assert.True(ok)
	assert.Equal(uint16(16000), val)
}

func TestDesiredReturnsLastScheduledValueAndTS(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.Schedule(2, 12345, 999)

	val, ts, ok := s.Desired(2)
	assert.True(ok)
	assert.Equal(uint16(12345), val)
	assert.Equal(int64(999), ts)
}
