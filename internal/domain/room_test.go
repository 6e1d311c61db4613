package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingSecondsRoundsUpToTheNextSecond(t *testing.T) {
	now := time.Now()
	end := now.Add(1500 * time.Millisecond)
	room := &Room{RoundPhaseEndTime: &end}
	assert.Equal(t, 2, room.RemainingSeconds(now))
}

func TestRemainingSecondsFloorsAtZero(t *testing.T) {
	now := time.Now()
	end := now.Add(-time.Second)
	room := &Room{RoundPhaseEndTime: &end}
	assert.Equal(t, 0, room.RemainingSeconds(now))
}

func TestRemainingSecondsZeroWithNoDeadline(t *testing.T) {
	room := &Room{}
	assert.Equal(t, 0, room.RemainingSeconds(time.Now()))
}

func TestCloneDeepCopiesMutableFields(t *testing.T) {
	end := time.Now()
	room := &Room{
		RoundPhaseEndTime: &end,
		Category:          []string{"animals"},
		DrawnUserIDs:       map[string]bool{"u1": true},
	}
	clone := room.Clone()

	clone.Category[0] = "mutated"
	clone.DrawnUserIDs["u2"] = true
	*clone.RoundPhaseEndTime = end.Add(time.Hour)

	assert.Equal(t, "animals", room.Category[0])
	assert.False(t, room.DrawnUserIDs["u2"])
	assert.Equal(t, end, *room.RoundPhaseEndTime)
}

func TestDurationForReturnsZeroForUntimedPhases(t *testing.T) {
	assert.Equal(t, time.Duration(0), DurationFor(PhaseNone))
	assert.Equal(t, DurationDrawing, DurationFor(PhaseDrawing))
}
