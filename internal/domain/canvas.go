package domain

// Canvas/resync wire types, carrying the sequence/canvasVersion
// fields the resync protocol needs.

type GridPosition struct {
	GridX int `json:"gridX"`
	GridY int `json:"gridY"`
}

type DrawingMessageType string

const (
	DrawingStroke DrawingMessageType = "stroke"
	DrawingBatch  DrawingMessageType = "batch"
	DrawingClear  DrawingMessageType = "clear"
)

// DrawingData is the "drawing_data" client->server and server->client
// payload. Sequence is assigned by the sender and must be strictly
// increasing; the server does not renumber it, only forwards and
// records the high-water mark.
type DrawingData struct {
	Type      DrawingMessageType `json:"type"`
	Points    []GridPosition     `json:"points,omitempty"`
	Color     string             `json:"color,omitempty"`
	Sequence  int64              `json:"sequence"`
	Timestamp int64              `json:"timestamp"`
}

// DrawingAckData backs "drawing_ack", the private echo to the sender
// confirming the sequence number the server recorded.
type DrawingAckData struct {
	Sequence int64 `json:"sequence"`
}

// CanvasClearedData backs "canvas_cleared".
type CanvasClearedData struct {
	CanvasVersion int64 `json:"canvasVersion"`
}

// SnapshotRequestData is the client->server request for the current
// canvas state, issued on join or reconnect before any live
// drawing_data is processed.
type SnapshotRequestData struct{}

// CanvasResumeData backs "canvas_resume", the server's answer to a
// snapshot request: every stroke since the last clear, in sequence
// order, plus the canvasVersion they belong to.
type CanvasResumeData struct {
	CanvasVersion int64         `json:"canvasVersion"`
	Strokes       []DrawingData `json:"strokes"`
}

// CanvasState is the server-held record of one room's current canvas:
// the clear-epoch counter and the ordered strokes since that epoch.
type CanvasState struct {
	CanvasVersion int64
	Strokes       []DrawingData
	NextSequence  int64
}

// Reset bumps CanvasVersion and drops all recorded strokes, called on
// clear_canvas and, through resync.Tracker.ResetForRound, when a
// chosen word starts a drawing phase.
func (c *CanvasState) Reset() {
	c.CanvasVersion++
	c.Strokes = c.Strokes[:0]
	c.NextSequence = 0
}
