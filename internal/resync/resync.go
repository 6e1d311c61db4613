// Package resync implements the canvas snapshot/resume protocol:
// the server records every stroke since the last clear, rejects
// out-of-order sequence numbers, and answers snapshot requests from
// joining or reconnecting viewers with the full backlog.
package resync

import (
	"sync"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// Tracker holds one CanvasState per room plus a single-in-flight-
// snapshot-request-per-socket guard.
type Tracker struct {
	mu      sync.Mutex
	canvas  map[string]*domain.CanvasState
	pending map[string]bool // socketID -> snapshot request in flight
}

func New() *Tracker {
	return &Tracker{
		canvas:  make(map[string]*domain.CanvasState),
		pending: make(map[string]bool),
	}
}

func (t *Tracker) stateFor(roomCode string) *domain.CanvasState {
	cs, ok := t.canvas[roomCode]
	if !ok {
		cs = &domain.CanvasState{}
		t.canvas[roomCode] = cs
	}
	return cs
}

// RecordStroke appends a stroke to the room's backlog if its sequence
// is the next expected one; a stale or replayed sequence is dropped
// silently (the sender's own ack already told them what landed).
func (t *Tracker) RecordStroke(roomCode string, stroke domain.DrawingData) (accepted bool, canvasVersion int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := t.stateFor(roomCode)
	if stroke.Sequence != cs.NextSequence {
		return false, cs.CanvasVersion
	}
	cs.Strokes = append(cs.Strokes, stroke)
	cs.NextSequence++
	return true, cs.CanvasVersion
}

// Clear bumps the canvas epoch and drops the recorded backlog.
func (t *Tracker) Clear(roomCode string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := t.stateFor(roomCode)
	cs.Reset()
	return cs.CanvasVersion
}

// ResetForRound clears the backlog at the start of every drawing
// phase without requiring a client-issued clear_canvas.
func (t *Tracker) ResetForRound(roomCode string) {
	t.Clear(roomCode)
}

// BeginSnapshotRequest claims the single-in-flight-request-per-socket
// guard; returns false if a request from this socket is already being
// served.
func (t *Tracker) BeginSnapshotRequest(socketID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[socketID] {
		return false
	}
	t.pending[socketID] = true
	return true
}

func (t *Tracker) EndSnapshotRequest(socketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, socketID)
}

// Snapshot returns the current backlog for a resync response.
func (t *Tracker) Snapshot(roomCode string) domain.CanvasResumeData {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs := t.stateFor(roomCode)
	return domain.CanvasResumeData{
		CanvasVersion: cs.CanvasVersion,
		Strokes:       append([]domain.DrawingData(nil), cs.Strokes...),
	}
}

// DropRoom releases a closed room's canvas state.
func (t *Tracker) DropRoom(roomCode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.canvas, roomCode)
}
