package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

func TestRankingsBreaksScoreTiesByEarlierPointsUpdatedAt(t *testing.T) {
	now := time.Now()
	room := &domain.Room{GameMode: domain.ModeSolo, EntryPoints: 10}
	participants := []*domain.Participant{
		{UserID: "a", Score: 50, PointsUpdatedAt: now},
		{UserID: "b", Score: 70, PointsUpdatedAt: now.Add(2 * time.Second)},
		{UserID: "c", Score: 70, PointsUpdatedAt: now.Add(time.Second), Team: domain.TeamBlue},
		{UserID: "d", Score: 30, PointsUpdatedAt: now},
	}

	ranked := Rankings(room, participants)

	assert.Equal(t, "c", ranked[0].UserID, "tied on score, c reached it first")
	assert.Equal(t, 1, ranked[0].Place)
	assert.Equal(t, "b", ranked[1].UserID)
	assert.Equal(t, 2, ranked[1].Place, "every rank is distinct, never shared")
	assert.Equal(t, "a", ranked[2].UserID)
	assert.Equal(t, 3, ranked[2].Place)
	assert.Equal(t, "d", ranked[3].UserID)
	assert.Equal(t, 4, ranked[3].Place)
}

func TestRankingsTeamModeSumsPerTeamScoreToPickWinner(t *testing.T) {
	room := &domain.Room{GameMode: domain.ModeTeam, EntryPoints: 10}
	participants := []*domain.Participant{
		{UserID: "blue1", Score: 40, Team: domain.TeamBlue},
		{UserID: "blue2", Score: 40, Team: domain.TeamBlue},
		{UserID: "blue3", Score: 40, Team: domain.TeamBlue},
		{UserID: "orange1", Score: 100, Team: domain.TeamOrange},
		{UserID: "orange2", Score: 0, Team: domain.TeamOrange},
		{UserID: "orange3", Score: 0, Team: domain.TeamOrange},
	}

	ranked := Rankings(room, participants)
	total := map[string]int{}
	for _, r := range ranked {
		total[string(r.Team)] += r.Reward
	}
	// Blue's total (120) beats orange's (100), even though orange's
	// top individual score (100) beats any single blue member's (40).
	assert.Equal(t, 3*2*room.EntryPoints, total["blue"])
	assert.Zero(t, total["orange"])
}

func TestRankingsTeamModeTiedTotalsPayNobody(t *testing.T) {
	room := &domain.Room{GameMode: domain.ModeTeam, EntryPoints: 10}
	participants := []*domain.Participant{
		{UserID: "blue1", Score: 50, Team: domain.TeamBlue},
		{UserID: "orange1", Score: 50, Team: domain.TeamOrange},
	}

	ranked := Rankings(room, participants)
	for _, r := range ranked {
		assert.Zero(t, r.Reward)
	}
}

func TestRankingsSoloTwoPlayersWinnerTakesTwiceEntry(t *testing.T) {
	room := &domain.Room{GameMode: domain.ModeSolo, EntryPoints: 10}
	participants := []*domain.Participant{
		{UserID: "a", Score: 100},
		{UserID: "b", Score: 0},
	}

	ranked := Rankings(room, participants)
	assert.Equal(t, 2*room.EntryPoints, ranked[0].Reward)
	assert.Zero(t, ranked[1].Reward)
}

func TestRankingsSoloThreeOrMorePlayersPayFixedThreeTwoOneSchedule(t *testing.T) {
	room := &domain.Room{GameMode: domain.ModeSolo, EntryPoints: 10}
	participants := []*domain.Participant{
		{UserID: "a", Score: 100},
		{UserID: "b", Score: 80},
		{UserID: "c", Score: 60},
		{UserID: "d", Score: 40},
	}

	ranked := Rankings(room, participants)
	assert.Equal(t, 3*room.EntryPoints, ranked[0].Reward)
	assert.Equal(t, 2*room.EntryPoints, ranked[1].Reward)
	assert.Equal(t, room.EntryPoints, ranked[2].Reward)
	assert.Zero(t, ranked[3].Reward, "4th place and below receive nothing")
}
