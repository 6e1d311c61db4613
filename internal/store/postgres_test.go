//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// newTestStore spins up a throwaway Postgres container and returns a
// RoomStore pointed at it, schema already applied. Gated behind the
// "integration" build tag since it needs a working Docker daemon.
func newTestStore(t *testing.T) *RoomStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("inkrush_test"),
		tcpostgres.WithUsername("inkrush"),
		tcpostgres.WithPassword("inkrush"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rs, err := NewRoomStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(rs.Close)

	return rs
}

func TestCreateRoomAndRoundTripByCodeAndID(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()

	room := &domain.Room{
		Code: "ABCDE", OwnerID: "owner-1", MaxPlayers: 8,
		GameMode: domain.ModeSolo, Language: "english", Script: "roman",
	}
	created, err := rs.CreateRoom(ctx, room)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, domain.StatusLobby, created.Status)

	byCode, err := rs.GetRoomByCode(ctx, "ABCDE")
	require.NoError(t, err)
	require.Equal(t, created.ID, byCode.ID)

	byID, err := rs.GetRoomByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Code, byID.Code)
}

func TestTransitionPhaseRejectsStalePhaseCAS(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()

	room, err := rs.CreateRoom(ctx, &domain.Room{Code: "FGHJK", OwnerID: "owner-1", MaxPlayers: 8, GameMode: domain.ModeSolo})
	require.NoError(t, err)

	_, err = rs.TransitionPhase(ctx, room.ID, domain.PhaseNone, domain.PhaseSelectingDrawer, PhaseUpdate{})
	require.NoError(t, err)

	// A second caller racing on the same "from" phase loses: the row
	// already moved on, so it gets ErrPhaseMismatch rather than silently
	// clobbering the winner's transition.
	_, err = rs.TransitionPhase(ctx, room.ID, domain.PhaseNone, domain.PhaseSelectingDrawer, PhaseUpdate{})
	require.ErrorIs(t, err, ErrPhaseMismatch)
}

func TestJoinRoomRejectsOnceAtCapacity(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()

	room, err := rs.CreateRoom(ctx, &domain.Room{Code: "LMNPQ", OwnerID: "owner-1", MaxPlayers: 1, GameMode: domain.ModeSolo})
	require.NoError(t, err)

	_, err = rs.JoinRoom(ctx, room.ID, "owner-1", "owner")
	require.NoError(t, err)

	_, err = rs.JoinRoom(ctx, room.ID, "user-2", "latecomer")
	var clientErr *domain.ClientError
	require.ErrorAs(t, err, &clientErr)
	require.Equal(t, domain.ErrRoomFull, clientErr.Kind)
}

func TestAwardPointsIsIdempotentPerCallNotDouble(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()

	room, err := rs.CreateRoom(ctx, &domain.Room{Code: "RSTUV", OwnerID: "owner-1", MaxPlayers: 8, GameMode: domain.ModeSolo})
	require.NoError(t, err)
	_, err = rs.JoinRoom(ctx, room.ID, "user-1", "alice")
	require.NoError(t, err)

	require.NoError(t, rs.AwardPoints(ctx, room.ID, []string{"user-1"}, 100))

	participants, err := rs.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	require.Equal(t, 100, participants[0].Score)
	require.True(t, participants[0].HasGuessedThisRound)

	require.NoError(t, rs.ResetGuessState(ctx, room.ID))
	participants, err = rs.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	require.False(t, participants[0].HasGuessedThisRound)
}
