package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

func TestRewardForMatchesCeilRemainingOverEight(t *testing.T) {
	// Worked example E1: a guess at t=30s of an 80s drawing window has
	// remaining=50s, reward = ceil(50/8) = 7.
	assert.Equal(t, 7, rewardFor(50))
	// Worked example E2: remaining=60s, reward = ceil(60/8) = 8.
	assert.Equal(t, 8, rewardFor(60))
}

func TestRewardForFloorsNegativeRemainingAtZero(t *testing.T) {
	assert.Equal(t, 0, rewardFor(-5))
}

func TestRewardForClampsToMaxPointsPerRound(t *testing.T) {
	assert.Equal(t, maxPointsPerRound, rewardFor(1000))
}

func TestEveryoneGuessedIgnoresDrawerAndInactiveParticipants(t *testing.T) {
	participants := []*domain.Participant{
		{UserID: "drawer", IsActive: true},
		{UserID: "inactive", IsActive: false},
		{UserID: "guesser", IsActive: true, HasGuessedThisRound: true},
	}
	assert.True(t, everyoneGuessed(participants, "drawer", nil))
}

func TestEveryoneGuessedFalseWhenSomeoneHasNotGuessed(t *testing.T) {
	participants := []*domain.Participant{
		{UserID: "drawer", IsActive: true},
		{UserID: "guesser1", IsActive: true, HasGuessedThisRound: true},
		{UserID: "guesser2", IsActive: true},
	}
	assert.False(t, everyoneGuessed(participants, "drawer", nil))
}

func TestEveryoneGuessedCountsJustAwardedSet(t *testing.T) {
	participants := []*domain.Participant{
		{UserID: "drawer", IsActive: true},
		{UserID: "teammate1", IsActive: true},
		{UserID: "teammate2", IsActive: true},
	}
	assert.True(t, everyoneGuessed(participants, "drawer", []string{"teammate1", "teammate2"}))
}

func TestNormalizeGuessTrimsAndLowercases(t *testing.T) {
	assert.Equal(t, "banana", normalizeGuess("  Banana  "))
}
