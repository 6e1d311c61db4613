package engine

import (
	"context"
	"sync"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// reportStrikeLimit is the number of distinct-reporter drawing-kind
// reports against one drawer before they're banned from the room; a
// first strike only aborts the current round, matching how a
// drawer-leave is handled.
const reportStrikeLimit = 2

// reports tracks in-flight (room, target) report aggregates. It is
// process-local; a (room, target) entry is removed only when that
// target is banned, not when the room closes. Reports don't need to
// survive a restart, only to gate the current session's drawer.
type reportTracker struct {
	mu    sync.Mutex
	table map[reportKey]*domain.Report
}

type reportKey struct {
	roomID   int64
	targetID string
	kind     domain.ReportKind
}

func newReportTracker() *reportTracker {
	return &reportTracker{table: make(map[reportKey]*domain.Report)}
}

// SubmitReport records a report from reporterID against targetID. A
// drawing-kind report's first strike aborts the round like a
// drawer-leave; its second strike bans the target from the room.
func (e *Engine) SubmitReport(ctx context.Context, roomCode, reporterID, targetID string, kind domain.ReportKind) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}

	k := reportKey{roomID: room.ID, targetID: targetID, kind: kind}
	e.reports.mu.Lock()
	rep, ok := e.reports.table[k]
	if !ok {
		rep = &domain.Report{RoomID: room.ID, TargetID: targetID, Kind: kind, Reporters: map[string]bool{}}
		e.reports.table[k] = rep
	}
	alreadyReported := rep.Reporters[reporterID]
	if !alreadyReported {
		rep.Reporters[reporterID] = true
		rep.StrikeCount++
	}
	strike := rep.StrikeCount
	e.reports.mu.Unlock()

	if alreadyReported || kind != domain.ReportDrawing {
		return nil
	}

	if strike == 1 {
		if room.CurrentDrawerID == targetID && room.RoundPhase == domain.PhaseDrawing {
			e.clock.Cancel(roomCode, domain.PhaseDrawing)
			return e.startReveal(ctx, room)
		}
		return nil
	}
	if strike >= reportStrikeLimit {
		if err := e.store.BanParticipant(ctx, room.ID, targetID); err != nil {
			return err
		}
		e.bcast.SendToUser(roomCode, targetID, "user_banned", domain.UserBannedData{Reason: "repeated_reports"})
		e.bcast.BroadcastToRoom(roomCode, "user_banned_from_room", domain.UserBannedFromRoomData{UserID: targetID})
		e.reports.mu.Lock()
		delete(e.reports.table, k)
		e.reports.mu.Unlock()
		if room.CurrentDrawerID == targetID && room.RoundPhase == domain.PhaseDrawing {
			e.clock.Cancel(roomCode, domain.PhaseDrawing)
			return e.startReveal(ctx, room)
		}
	}
	return nil
}
