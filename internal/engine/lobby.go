package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/store"
)

// readySet is one of the four process-local shared resources: which
// users in a room have flagged themselves ready to start. It never
// needs to survive a restart, only to gate the owner's start_game.
type readySet struct {
	mu    sync.Mutex
	rooms map[int64]map[string]bool
}

func newReadySet() *readySet {
	return &readySet{rooms: make(map[int64]map[string]bool)}
}

func (r *readySet) set(roomID int64, userID string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = map[string]bool{}
		r.rooms[roomID] = set
	}
	if ready {
		set[userID] = true
	} else {
		delete(set, userID)
	}
}

func (r *readySet) allReady(roomID int64, userIDs []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[roomID]
	for _, id := range userIDs {
		if !set[id] {
			return false
		}
	}
	return true
}

func (r *readySet) drop(roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// JoinRoom is the join_room handler: idempotent join, broadcasts the
// roster and sends the joiner their own room_joined snapshot.
func (e *Engine) JoinRoom(ctx context.Context, roomCode, userID, username string) (*domain.Room, error) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Status == domain.StatusClosed || room.Status == domain.StatusFinished {
		return nil, domain.NewClientError(domain.ErrRoomClosed, "")
	}
	banned, err := e.store.IsBanned(ctx, room.ID, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, domain.NewClientError(domain.ErrYouAreBanned, "")
	}

	if _, err := e.store.JoinRoom(ctx, room.ID, userID, username); err != nil {
		return nil, err
	}
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	joiner := findParticipant(participants, userID)

	e.bcast.SendToUser(roomCode, userID, "room_joined", domain.RoomJoinedData{
		Room: room, Participants: participants, YouAre: joiner,
	})
	e.bcast.BroadcastToRoomExcept(roomCode, userID, "player_joined", domain.PlayerJoinedData{Participant: joiner})
	e.bcast.BroadcastToRoom(roomCode, "room_participants", domain.RoomParticipantsData{Participants: participants})
	return room, nil
}

// LeaveRoom is the leave_room handler: the owner leaving deletes the
// room outright (Lifecycle.OwnerLeave); anyone else is marked inactive.
func (e *Engine) LeaveRoom(ctx context.Context, lc *Lifecycle, roomCode, userID string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.OwnerID == userID {
		return lc.OwnerLeave(ctx, room)
	}
	if room.CurrentDrawerID == userID && room.RoundPhase == domain.PhaseDrawing {
		if err := lc.DrawerLeave(ctx, roomCode); err != nil {
			e.log.Warnw("[Engine] drawer-leave abort failed", "room", roomCode, "error", err)
		}
	}
	if err := e.store.SetParticipantActive(ctx, room.ID, userID, false, nil); err != nil {
		return err
	}
	e.readySet.set(room.ID, userID, false)
	e.bcast.BroadcastToRoom(roomCode, "player_left", domain.PlayerLeftData{UserID: userID})
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(roomCode, "room_participants", domain.RoomParticipantsData{Participants: participants})
	return nil
}

// UpdateSettings is the update_settings handler: owner-only, lobby or
// waiting status only (enforced both here and by the store's WHERE
// guard so a racing game-start can't be clobbered).
func (e *Engine) UpdateSettings(ctx context.Context, roomCode, userID string, patch func(*domain.Room)) (*domain.Room, error) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, domain.NewClientError(domain.ErrOnlyOwnerCan, "update_settings")
	}
	if room.Status != domain.StatusLobby && room.Status != domain.StatusWaiting {
		return nil, domain.NewClientError(domain.ErrCannotUpdateAfterGameStarted, "")
	}
	if room.MaxPlayers < 2 || room.MaxPlayers > 24 {
		return nil, domain.NewClientError(domain.ErrInvalidMaxPlayers, "")
	}
	patch(room)
	updated, err := e.store.UpdateSettings(ctx, room.ID, room)
	if err != nil {
		return nil, err
	}
	e.bcast.BroadcastToRoom(roomCode, "settings_updated", domain.SettingsUpdatedData{Room: updated})
	return updated, nil
}

// SelectTeam is the select_team handler: lobby/waiting, team mode only.
func (e *Engine) SelectTeam(ctx context.Context, roomCode, userID string, team domain.Team) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.GameMode != domain.ModeTeam {
		return domain.NewClientError(domain.ErrNotTeamMode, "")
	}
	if room.Status != domain.StatusLobby && room.Status != domain.StatusWaiting {
		return domain.NewClientError(domain.ErrCannotChangeTeamAfterGameStarted, "")
	}
	if team != domain.TeamBlue && team != domain.TeamOrange {
		return domain.NewClientError(domain.ErrInvalidTeam, "")
	}
	if err := e.store.SetParticipantTeam(ctx, room.ID, userID, team); err != nil {
		return err
	}
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(roomCode, "room_participants", domain.RoomParticipantsData{Participants: participants})
	return nil
}

// SetReady is the set_ready/set_not_ready handler.
func (e *Engine) SetReady(ctx context.Context, roomCode, userID string, ready bool) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	e.readySet.set(room.ID, userID, ready)
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(roomCode, "room_participants", domain.RoomParticipantsData{Participants: participants})
	return nil
}

// RemoveParticipant is the remove_participant handler: owner-only, not
// while playing, owner cannot remove themselves.
func (e *Engine) RemoveParticipant(ctx context.Context, roomCode, ownerID, targetID string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.OwnerID != ownerID {
		return domain.NewClientError(domain.ErrOnlyOwnerCan, "remove_participant")
	}
	if targetID == ownerID {
		return domain.NewClientError(domain.ErrCannotRemoveSelf, "")
	}
	if room.Status == domain.StatusPlaying {
		return domain.NewClientError(domain.ErrCannotRemoveDuringGame, "")
	}
	if err := e.store.RemoveParticipant(ctx, room.ID, targetID); err != nil {
		return err
	}
	e.readySet.set(room.ID, targetID, false)
	e.bcast.BroadcastToRoom(roomCode, "player_removed", domain.PlayerRemovedData{UserID: targetID, Reason: "removed_by_owner"})
	return nil
}

// ContinueWaiting is the continue_waiting handler: the owner resets the
// lobby idle clock by touching updated_at, read by sweepLobbyIdle.
func (e *Engine) ContinueWaiting(ctx context.Context, roomCode, userID string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return domain.NewClientError(domain.ErrOnlyOwnerCan, "continue_waiting")
	}
	return e.store.TouchRoom(ctx, room.ID)
}

// StartGame is the start_game handler: owner-only, every non-owner
// participant must be ready, entry points are deducted before the
// first round starts.
func (e *Engine) StartGame(ctx context.Context, roomCode, userID string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return domain.NewClientError(domain.ErrOnlyOwnerCan, "start_game")
	}
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return err
	}
	if len(participants) < 2 {
		return domain.NewClientError(domain.ErrNotEnoughPlayers, "")
	}
	if room.GameMode == domain.ModeTeam {
		blue, orange := false, false
		for _, p := range participants {
			if p.Team == domain.TeamBlue {
				blue = true
			}
			if p.Team == domain.TeamOrange {
				orange = true
			}
		}
		if !blue || !orange {
			return domain.NewClientError(domain.ErrBothTeamsNeedPlayers, "")
		}
	}
	var nonOwner []string
	for _, p := range participants {
		if p.UserID != userID {
			nonOwner = append(nonOwner, p.UserID)
		}
	}
	if !e.readySet.allReady(room.ID, nonOwner) {
		return domain.NewClientError(domain.ErrNotAllReady, "")
	}
	if room.EntryPoints > 0 {
		for _, p := range participants {
			if p.Score < room.EntryPoints {
				return domain.NewClientError(domain.ErrInsufficientCoins, "")
			}
		}
		ids := make([]string, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.UserID)
		}
		if err := e.store.AwardPoints(ctx, room.ID, ids, -room.EntryPoints); err != nil {
			return fmt.Errorf("deduct entry: %w", err)
		}
		if err := e.store.ResetGuessState(ctx, room.ID); err != nil {
			return err
		}
	}
	status := domain.StatusWaiting
	if _, err := e.store.TransitionPhase(ctx, room.ID, room.RoundPhase, domain.PhaseNone, store.PhaseUpdate{Status: &status}); err != nil {
		return err
	}
	e.readySet.drop(room.ID)
	room.Status = status
	return e.StartRound(ctx, room)
}
