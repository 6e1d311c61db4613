// Package engine implements the per-room round state machine
// (PhaseEngine), guess evaluation (GuessEvaluator), and the periodic
// housekeeping sweeps (Lifecycle).
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/phaseclock"
	"github.com/inkrush/inkrush-backend/internal/rotation"
	"github.com/inkrush/inkrush-backend/internal/store"
	"github.com/inkrush/inkrush-backend/internal/words"
)

// Broadcaster is implemented by the transport layer; the engine never
// touches a websocket connection directly.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgType string, data any)
	BroadcastToRoomExcept(roomCode string, exceptUserID string, msgType string, data any)
	SendToUser(roomCode, userID string, msgType string, data any)
}

// Engine wires RoomStore, RoomCache, PhaseClock and the word catalog
// into the round state machine described by the room-phase table.
type Engine struct {
	store   *store.RoomStore
	cache   store.RoomCache
	clock   *phaseclock.Clock
	words   *words.Catalog
	bcast   Broadcaster
	log     *zap.SugaredLogger
	reports *reportTracker
	hints   *hintTracker
	readySet *readySet
}

func New(rs *store.RoomStore, cache store.RoomCache, clock *phaseclock.Clock, catalog *words.Catalog, bcast Broadcaster, log *zap.SugaredLogger) *Engine {
	return &Engine{
		store: rs, cache: cache, clock: clock, words: catalog, bcast: bcast, log: log,
		reports: newReportTracker(), hints: newHintTracker(), readySet: newReadySet(),
	}
}

// wordOptionCount is the number of words offered in a word_options payload.
const wordOptionCount = 3

// StartRound transitions a room from interval/lobby into
// selecting_drawer, the entry point of every round.
func (e *Engine) StartRound(ctx context.Context, room *domain.Room) error {
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	nextDrawer, drawnSet := rotation.Next(room, participants)
	if nextDrawer == "" {
		return domain.NewClientError(domain.ErrNotEnoughPlayers, "")
	}

	deadline := time.Now().Add(domain.DurationSelectingDrawer)
	status := domain.StatusPlaying
	round := room.CurrentRound + 1
	updated, err := e.store.TransitionPhase(ctx, room.ID, room.RoundPhase, domain.PhaseSelectingDrawer, store.PhaseUpdate{
		Status:            &status,
		CurrentRound:      &round,
		RoundPhaseEndTime: deadlinePtr(deadline),
		CurrentDrawerID:   &nextDrawer,
		LastDrawerID:      &room.CurrentDrawerID,
		DrawnUserIDs:      &drawnSet,
	})
	if err != nil {
		return err
	}

	e.bcast.BroadcastToRoom(room.Code, "drawer_selected", domain.DrawerSelectedData{
		Drawer:          nextDrawer,
		PreviewDuration: int(domain.DurationSelectingDrawer.Seconds()),
	})
	e.scheduleTimed(updated, domain.PhaseSelectingDrawer, func() { e.onSelectingDrawerExpire(context.Background(), updated.Code) })
	return nil
}

func (e *Engine) onSelectingDrawerExpire(ctx context.Context, roomCode string) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		e.log.Warnw("[PhaseEngine] reload after selecting_drawer expiry failed", "room", roomCode, "error", err)
		return
	}
	if room.RoundPhase != domain.PhaseSelectingDrawer || !e.clock.StillScheduled(roomCode, domain.PhaseSelectingDrawer, room.CurrentRound) {
		return
	}
	if err := e.startChoosingWord(ctx, room); err != nil {
		e.log.Warnw("[PhaseEngine] startChoosingWord failed", "room", roomCode, "error", err)
	}
}

func (e *Engine) startChoosingWord(ctx context.Context, room *domain.Room) error {
	choices := e.words.Choose(room.Language, room.Script, pickCategory(room.Category), wordOptionCount, room.UsedWords)
	deadline := time.Now().Add(domain.DurationChoosingWord)

	updated, err := e.store.TransitionPhase(ctx, room.ID, domain.PhaseSelectingDrawer, domain.PhaseChoosingWord, store.PhaseUpdate{
		RoundPhaseEndTime:  deadlinePtr(deadline),
		CurrentWordOptions: &choices,
	})
	if err != nil {
		return err
	}

	e.bcast.SendToUser(room.Code, room.CurrentDrawerID, "word_options", domain.WordOptionsData{
		Words:        choices,
		DurationSecs: int(domain.DurationChoosingWord.Seconds()),
	})
	e.scheduleTimed(updated, domain.PhaseChoosingWord, func() { e.onChoosingWordExpire(context.Background(), updated.Code) })
	return nil
}

// ChooseWord handles the drawer's choose_word event. A client-bug
// precondition (wrong phase, wrong user, invalid word) returns a
// ClientError without mutating anything.
func (e *Engine) ChooseWord(ctx context.Context, roomCode, userID, word string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.RoundPhase != domain.PhaseChoosingWord {
		return domain.NewClientError(domain.ErrWrongPhase, "")
	}
	if room.CurrentDrawerID != userID {
		return domain.NewClientError(domain.ErrNotYourTurn, "")
	}
	if !contains(room.CurrentWordOptions, word) {
		return domain.NewClientError(domain.ErrInvalidWordChoice, word)
	}
	e.clock.Cancel(roomCode, domain.PhaseChoosingWord)
	return e.startDrawing(ctx, room, word)
}

// onChoosingWordExpire handles a drawer who let the word-choice window
// lapse: rather than auto-picking for them, the turn is skipped and
// their elimination count rises, per the drawer_skipped event.
// Reaching domain.DefaultEliminationCount removes them from the room.
func (e *Engine) onChoosingWordExpire(ctx context.Context, roomCode string) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil || room.RoundPhase != domain.PhaseChoosingWord || !e.clock.StillScheduled(roomCode, domain.PhaseChoosingWord, room.CurrentRound) {
		return
	}
	drawerID := room.CurrentDrawerID
	count, removed, err := e.store.BumpSkipCount(ctx, room.ID, drawerID, domain.DefaultEliminationCount)
	if err != nil {
		e.log.Warnw("[PhaseEngine] bump skip count failed", "room", roomCode, "error", err)
		return
	}
	e.bcast.BroadcastToRoom(roomCode, "drawer_skipped", domain.DrawerSkippedData{
		UserID: drawerID, EliminationCount: count, Removed: removed,
	})
	if err := e.StartRound(ctx, room); err != nil {
		e.log.Warnw("[PhaseEngine] restart after skip failed", "room", roomCode, "error", err)
	}
}

// SkipTurn is the skip_turn handler: the current drawer voluntarily
// gives up their turn during choosing_word or drawing. Reuses the same
// skip-count/elimination bookkeeping as a choose-word timeout.
func (e *Engine) SkipTurn(ctx context.Context, roomCode, userID string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.CurrentDrawerID != userID {
		return domain.NewClientError(domain.ErrNotYourTurn, "")
	}
	switch room.RoundPhase {
	case domain.PhaseChoosingWord:
		// Run the expiry handler while the choosing_word timer is still
		// registered (its StillScheduled guard needs it), then drop it.
		e.onChoosingWordExpire(ctx, roomCode)
		e.clock.Cancel(roomCode, domain.PhaseChoosingWord)
		return nil
	case domain.PhaseDrawing:
		count, removed, err := e.store.BumpSkipCount(ctx, room.ID, userID, domain.DefaultEliminationCount)
		if err != nil {
			return err
		}
		e.bcast.BroadcastToRoom(roomCode, "drawer_skipped", domain.DrawerSkippedData{
			UserID: userID, EliminationCount: count, Removed: removed,
		})
		return e.MaybeEndRoundEarly(ctx, roomCode)
	default:
		return domain.NewClientError(domain.ErrWrongPhase, "")
	}
}

func (e *Engine) startDrawing(ctx context.Context, room *domain.Room, word string) error {
	deadline := time.Now().Add(domain.DurationDrawing)
	usedWords := map[string]bool{}
	for k, v := range room.UsedWords {
		usedWords[k] = v
	}
	usedWords[word] = true

	updated, err := e.store.TransitionPhase(ctx, room.ID, domain.PhaseChoosingWord, domain.PhaseDrawing, store.PhaseUpdate{
		RoundPhaseEndTime: deadlinePtr(deadline),
		CurrentWord:       &word,
		UsedWords:         &usedWords,
	})
	if err != nil {
		return err
	}
	if err := e.store.ResetGuessState(ctx, room.ID); err != nil {
		return err
	}

	e.bcast.BroadcastToRoomExcept(room.Code, room.CurrentDrawerID, "phase_change", domain.PhaseChangeData{
		Phase: domain.PhaseDrawing, DurationSecs: int(domain.DurationDrawing.Seconds()),
		PhaseEndTime: deadline.UnixMilli(), Round: room.CurrentRound,
	})
	e.bcast.BroadcastToRoom(room.Code, "clear_chat", domain.ClearChatData{})
	e.scheduleTimed(updated, domain.PhaseDrawing, func() { e.onDrawingExpire(context.Background(), updated.Code) })
	e.hints.start(updated.Code, updated.CurrentRound, word, func(masked string) {
		e.bcast.BroadcastToRoomExcept(updated.Code, updated.CurrentDrawerID, "word_hint", domain.WordHintData{Masked: masked})
	})
	return nil
}

func (e *Engine) onDrawingExpire(ctx context.Context, roomCode string) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil || room.RoundPhase != domain.PhaseDrawing || !e.clock.StillScheduled(roomCode, domain.PhaseDrawing, room.CurrentRound) {
		return
	}
	if err := e.startReveal(ctx, room); err != nil {
		e.log.Warnw("[PhaseEngine] startReveal failed", "room", roomCode, "error", err)
	}
}

// MaybeEndRoundEarly is called by the guess evaluator once every
// active non-drawer participant has guessed correctly — ends the
// drawing phase ahead of its deadline.
func (e *Engine) MaybeEndRoundEarly(ctx context.Context, roomCode string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.RoundPhase != domain.PhaseDrawing {
		return nil
	}
	e.clock.Cancel(roomCode, domain.PhaseDrawing)
	return e.startReveal(ctx, room)
}

func (e *Engine) startReveal(ctx context.Context, room *domain.Room) error {
	e.hints.stop(room.Code)
	if err := e.awardDrawer(ctx, room); err != nil {
		return fmt.Errorf("award drawer: %w", err)
	}
	deadline := time.Now().Add(domain.DurationReveal)
	updated, err := e.store.TransitionPhase(ctx, room.ID, domain.PhaseDrawing, domain.PhaseReveal, store.PhaseUpdate{
		RoundPhaseEndTime: deadlinePtr(deadline),
	})
	if err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(room.Code, "phase_change", domain.PhaseChangeData{
		Phase: domain.PhaseReveal, DurationSecs: int(domain.DurationReveal.Seconds()),
		PhaseEndTime: deadline.UnixMilli(), Round: room.CurrentRound,
	})
	e.scheduleTimed(updated, domain.PhaseReveal, func() { e.onRevealExpire(context.Background(), updated.Code) })
	return nil
}

func (e *Engine) onRevealExpire(ctx context.Context, roomCode string) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil || room.RoundPhase != domain.PhaseReveal || !e.clock.StillScheduled(roomCode, domain.PhaseReveal, room.CurrentRound) {
		return
	}

	ended, err := e.checkGameEnd(ctx, room)
	if err != nil {
		e.log.Warnw("[PhaseEngine] checkGameEnd failed", "room", roomCode, "error", err)
		return
	}
	if ended {
		return
	}
	if err := e.startInterval(ctx, room); err != nil {
		e.log.Warnw("[PhaseEngine] startInterval failed", "room", roomCode, "error", err)
	}
}

func (e *Engine) startInterval(ctx context.Context, room *domain.Room) error {
	deadline := time.Now().Add(domain.DurationInterval)
	updated, err := e.store.TransitionPhase(ctx, room.ID, domain.PhaseReveal, domain.PhaseInterval, store.PhaseUpdate{
		RoundPhaseEndTime: deadlinePtr(deadline),
	})
	if err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(room.Code, "phase_change", domain.PhaseChangeData{
		Phase: domain.PhaseInterval, DurationSecs: int(domain.DurationInterval.Seconds()),
		PhaseEndTime: deadline.UnixMilli(), Round: room.CurrentRound,
	})
	e.scheduleTimed(updated, domain.PhaseInterval, func() { e.onIntervalExpire(context.Background(), updated.Code) })
	return nil
}

func (e *Engine) onIntervalExpire(ctx context.Context, roomCode string) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil || room.RoundPhase != domain.PhaseInterval || !e.clock.StillScheduled(roomCode, domain.PhaseInterval, room.CurrentRound) {
		return
	}
	if err := e.StartRound(ctx, room); err != nil {
		e.log.Warnw("[PhaseEngine] next round start failed", "room", roomCode, "error", err)
	}
}

func (e *Engine) scheduleTimed(room *domain.Room, phase domain.RoundPhase, onExpire func()) {
	if room.RoundPhaseEndTime == nil {
		return
	}
	e.clock.Schedule(room.ID, room.Code, phase, room.CurrentRound, *room.RoundPhaseEndTime, onExpire)
}

func pickCategory(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return categories[0]
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// deadlinePtr builds the **time.Time a PhaseUpdate expects for
// RoundPhaseEndTime: a pointer to "the new value of the *time.Time
// column", distinct from nil meaning "leave it untouched".
func deadlinePtr(t time.Time) **time.Time {
	p := &t
	return &p
}
