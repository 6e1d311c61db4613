package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// Lifecycle runs the periodic housekeeping sweeps that aren't tied to
// any single room's phase deadline: lobby idle timeout, insufficient-
// players detection, and the one-time startup pass that rebuilds every
// active room's PhaseClock timer after a process restart. That startup
// pass only re-arms timers; participants left marked active by the
// previous process are not reset.
//
// Per-round deadlines stay on phaseclock's one-shot timers; cron only
// drives the slower, room-spanning sweeps.
type Lifecycle struct {
	engine *Engine
	cron   *cron.Cron
}

func NewLifecycle(e *Engine) *Lifecycle {
	return &Lifecycle{engine: e, cron: cron.New()}
}

// Start schedules the recurring sweeps and runs the one-time
// startup rebuild immediately.
func (l *Lifecycle) Start(ctx context.Context) error {
	if _, err := l.cron.AddFunc("@every 30s", func() { l.sweepLobbyIdle(context.Background()) }); err != nil {
		return err
	}
	if _, err := l.cron.AddFunc("@every 15s", func() { l.sweepInsufficientPlayers(context.Background()) }); err != nil {
		return err
	}
	l.cron.Start()
	return l.RebuildOnStartup(ctx)
}

func (l *Lifecycle) Stop() {
	l.cron.Stop()
}

// RebuildOnStartup re-arms a PhaseClock timer for every room still in
// a timed phase, using its persisted RoundPhaseEndTime — a restarted
// process has lost all in-memory timers but the deadline survives in
// RoomStore.
func (l *Lifecycle) RebuildOnStartup(ctx context.Context) error {
	rooms, err := l.engine.store.ListActiveRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if !domain.TimedPhases[room.RoundPhase] || room.RoundPhaseEndTime == nil {
			continue
		}
		room := room
		l.engine.clock.Schedule(room.ID, room.Code, room.RoundPhase, room.CurrentRound, *room.RoundPhaseEndTime, func() {
			l.engine.dispatchExpiry(context.Background(), room.Code, room.RoundPhase)
		})
		l.engine.log.Infow("[Lifecycle] rebuilt timer on startup", "room", room.Code, "phase", room.RoundPhase)
	}
	return nil
}

// sweepLobbyIdle closes rooms that have sat in the lobby/waiting
// status past DurationLobbyTimeout with no round ever started.
func (l *Lifecycle) sweepLobbyIdle(ctx context.Context) {
	rooms, err := l.engine.store.ListActiveRooms(ctx)
	if err != nil {
		l.engine.log.Warnw("[Lifecycle] sweepLobbyIdle list failed", "error", err)
		return
	}
	now := time.Now()
	for _, room := range rooms {
		if room.Status != domain.StatusLobby && room.Status != domain.StatusWaiting {
			continue
		}
		if now.Sub(room.UpdatedAt) < domain.DurationLobbyTimeout {
			continue
		}
		l.engine.bcast.BroadcastToRoom(room.Code, "lobby_time_exceeded", domain.LobbyTimeExceededData{})
		l.engine.clock.CancelRoom(room.Code)
		if err := l.engine.store.DeleteRoom(ctx, room.ID); err != nil {
			l.engine.log.Warnw("[Lifecycle] delete idle lobby failed", "room", room.Code, "error", err)
		}
	}
}

// sweepInsufficientPlayers ends any in-progress game whose active
// participant count has dropped below the minimum needed to continue.
const minPlayersToContinue = 2

func (l *Lifecycle) sweepInsufficientPlayers(ctx context.Context) {
	rooms, err := l.engine.store.ListActiveRooms(ctx)
	if err != nil {
		l.engine.log.Warnw("[Lifecycle] sweepInsufficientPlayers list failed", "error", err)
		return
	}
	for _, room := range rooms {
		if room.Status != domain.StatusPlaying {
			continue
		}
		participants, err := l.engine.store.ListParticipants(ctx, room.ID)
		if err != nil {
			continue
		}
		active := 0
		for _, p := range participants {
			if p.IsActive {
				active++
			}
		}
		if active >= minPlayersToContinue {
			continue
		}
		l.engine.clock.CancelRoom(room.Code)
		l.engine.bcast.BroadcastToRoom(room.Code, "game_ended_insufficient_players", domain.GameEndedInsufficientPlayersData{
			Reason: "not enough active players",
		})
		status := domain.StatusFinished
		_, _ = l.engine.store.TransitionPhase(ctx, room.ID, room.RoundPhase, domain.PhaseNone, storePhaseUpdateFinished(status))
	}
}

// OwnerLeave deletes a room outright when its owner leaves, whatever
// the room's status — there is no handoff of ownership in this design.
func (l *Lifecycle) OwnerLeave(ctx context.Context, room *domain.Room) error {
	l.engine.clock.CancelRoom(room.Code)
	l.engine.bcast.BroadcastToRoom(room.Code, "room_closed", domain.RoomClosedData{Reason: "owner_left"})
	return l.engine.store.DeleteRoom(ctx, room.ID)
}

// DrawerLeave aborts the drawing phase early when the active drawer
// leaves mid-drawing, advancing straight to reveal through the same
// startReveal path as a drawing-timer expiry: the drawer's solo reward
// for guesses already made is still paid, and the room does not skip
// ahead to interval.
func (l *Lifecycle) DrawerLeave(ctx context.Context, roomCode string) error {
	room, err := l.engine.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.RoundPhase != domain.PhaseDrawing {
		return nil
	}
	l.engine.clock.Cancel(roomCode, domain.PhaseDrawing)
	return l.engine.startReveal(ctx, room)
}

// dispatchExpiry re-enters the phase-specific expiry handler for a
// rebuilt timer, keyed by the phase it was scheduled for.
func (e *Engine) dispatchExpiry(ctx context.Context, roomCode string, phase domain.RoundPhase) {
	switch phase {
	case domain.PhaseSelectingDrawer:
		e.onSelectingDrawerExpire(ctx, roomCode)
	case domain.PhaseChoosingWord:
		e.onChoosingWordExpire(ctx, roomCode)
	case domain.PhaseDrawing:
		e.onDrawingExpire(ctx, roomCode)
	case domain.PhaseReveal:
		e.onRevealExpire(ctx, roomCode)
	case domain.PhaseInterval:
		e.onIntervalExpire(ctx, roomCode)
	}
}
