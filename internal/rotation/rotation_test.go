package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

func participant(userID string, joinedAt time.Time) *domain.Participant {
	return &domain.Participant{UserID: userID, IsActive: true, JoinedAt: joinedAt}
}

func TestNextSoloRoundRobinDrawsEveryoneBeforeRepeating(t *testing.T) {
	base := time.Now()
	room := &domain.Room{GameMode: domain.ModeSolo}
	participants := []*domain.Participant{
		participant("a", base),
		participant("b", base.Add(time.Second)),
		participant("c", base.Add(2 * time.Second)),
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		drawer, drawn := Next(room, participants)
		require.False(t, seen[drawer], "drawer %q repeated before a full cycle", drawer)
		seen[drawer] = true
		room.DrawnUserIDs = drawn
	}
	assert.Len(t, seen, 3)

	// Fourth call completes the cycle: the drawn set resets and we see
	// the first drawer of the new cycle (order is stable, so it's "a").
	drawer, drawn := Next(room, participants)
	assert.Equal(t, "a", drawer)
	assert.Equal(t, map[string]bool{"a": true}, drawn)
}

func TestNextSkipsBannedAndInactiveParticipants(t *testing.T) {
	base := time.Now()
	banned := time.Now()
	room := &domain.Room{GameMode: domain.ModeSolo}
	participants := []*domain.Participant{
		participant("a", base),
		{UserID: "b", IsActive: true, BannedAt: &banned, JoinedAt: base.Add(time.Second)},
		{UserID: "c", IsActive: false, JoinedAt: base.Add(2 * time.Second)},
	}

	drawer, _ := Next(room, participants)
	assert.Equal(t, "a", drawer)
}

func TestNextReturnsEmptyWhenNoActiveParticipants(t *testing.T) {
	room := &domain.Room{GameMode: domain.ModeSolo}
	drawer, drawn := Next(room, nil)
	assert.Empty(t, drawer)
	assert.Equal(t, room.DrawnUserIDs, drawn)
}

func TestNextTeamModeAlternatesTeams(t *testing.T) {
	base := time.Now()
	room := &domain.Room{GameMode: domain.ModeTeam}
	participants := []*domain.Participant{
		{UserID: "blue1", Team: domain.TeamBlue, IsActive: true, JoinedAt: base},
		{UserID: "orange1", Team: domain.TeamOrange, IsActive: true, JoinedAt: base.Add(time.Second)},
		{UserID: "blue2", Team: domain.TeamBlue, IsActive: true, JoinedAt: base.Add(2 * time.Second)},
		{UserID: "orange2", Team: domain.TeamOrange, IsActive: true, JoinedAt: base.Add(3 * time.Second)},
	}

	var order []string
	for i := 0; i < 4; i++ {
		drawer, drawn := Next(room, participants)
		order = append(order, drawer)
		room.DrawnUserIDs = drawn
	}

	teamOf := map[string]domain.Team{
		"blue1": domain.TeamBlue, "blue2": domain.TeamBlue,
		"orange1": domain.TeamOrange, "orange2": domain.TeamOrange,
	}
	for i := 1; i < len(order); i++ {
		assert.NotEqual(t, teamOf[order[i-1]], teamOf[order[i]], "consecutive drawers %v, %v share a team", order[i-1], order[i])
	}
}

func TestNextTeamModeFallsBackToFlatWhenOneTeamEmpty(t *testing.T) {
	base := time.Now()
	room := &domain.Room{GameMode: domain.ModeTeam}
	participants := []*domain.Participant{
		{UserID: "blue1", Team: domain.TeamBlue, IsActive: true, JoinedAt: base},
		{UserID: "blue2", Team: domain.TeamBlue, IsActive: true, JoinedAt: base.Add(time.Second)},
	}

	drawer, _ := Next(room, participants)
	assert.Equal(t, "blue1", drawer)
}
