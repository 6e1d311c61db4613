package engine

import "github.com/inkrush/inkrush-backend/internal/domain"

// BroadcastCanvasCleared announces a clear_canvas's new epoch to the
// whole room.
func (e *Engine) BroadcastCanvasCleared(roomCode string, canvasVersion int64) {
	e.bcast.BroadcastToRoom(roomCode, "canvas_cleared", domain.CanvasClearedData{CanvasVersion: canvasVersion})
}

// SendCanvasResume relays a send_canvas_data payload to its target as
// canvas_resume — a direct peer-supplied resync used when the
// requesting socket is itself the current drawer.
func (e *Engine) SendCanvasResume(roomCode, targetUserID string, history []domain.DrawingData) {
	e.bcast.SendToUser(roomCode, targetUserID, "canvas_resume", domain.CanvasResumeData{Strokes: history})
}
