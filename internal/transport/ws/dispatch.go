package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/engine"
	"github.com/inkrush/inkrush-backend/internal/resync"
	"github.com/inkrush/inkrush-backend/internal/session"
)

// Dispatcher turns inbound event envelopes into calls against the
// engine, session layer, and resync tracker.
type Dispatcher struct {
	engine   *engine.Engine
	lc       *engine.Lifecycle
	sessions *session.Layer
	resync   *resync.Tracker
	log      *zap.SugaredLogger

	mu        sync.Mutex
	resyncing map[string]bool // socketID -> mid-resync, skip live drawing_data
}

func NewDispatcher(e *engine.Engine, lc *engine.Lifecycle, sessions *session.Layer, rs *resync.Tracker, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{engine: e, lc: lc, sessions: sessions, resync: rs, log: log, resyncing: make(map[string]bool)}
}

func (d *Dispatcher) onDisconnect(c *Client) {
	roomCode, userID := c.RoomCode(), c.UserID()
	if roomCode == "" || userID == "" {
		return
	}
	d.mu.Lock()
	delete(d.resyncing, c.socketID)
	d.mu.Unlock()
	d.sessions.Disconnect(roomCode, userID, c.socketID, func() {
		if err := d.engine.LeaveRoom(context.Background(), d.lc, roomCode, userID); err != nil {
			d.log.Warnw("[ws] grace-window leave failed", "room", roomCode, "user", userID, "error", err)
		}
	})
}

func (d *Dispatcher) handle(c *Client, raw []byte) {
	var env domain.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		c.emitError(domain.ErrRoomNotFound, "malformed envelope")
		return
	}
	ctx := context.Background()

	// join_room is the only event a not-yet-bound socket may send.
	if env.Type == "join_room" {
		d.handleJoinRoom(ctx, c, env.Data)
		return
	}
	roomCode, userID := c.RoomCode(), c.UserID()
	if roomCode == "" || userID == "" {
		c.emitError(domain.ErrNotAuthenticated, "join_room required first")
		return
	}

	var err error
	switch env.Type {
	case "leave_room":
		err = d.engine.LeaveRoom(ctx, d.lc, roomCode, userID)
	case "update_settings":
		err = d.handleUpdateSettings(ctx, roomCode, userID, env.Data)
	case "select_team":
		err = d.handleSelectTeam(ctx, roomCode, userID, env.Data)
	case "set_ready":
		err = d.engine.SetReady(ctx, roomCode, userID, true)
	case "set_not_ready":
		err = d.engine.SetReady(ctx, roomCode, userID, false)
	case "remove_participant":
		err = d.handleRemoveParticipant(ctx, roomCode, userID, env.Data)
	case "continue_waiting":
		err = d.engine.ContinueWaiting(ctx, roomCode, userID)
	case "start_game":
		err = d.engine.StartGame(ctx, roomCode, userID)
	case "choose_word":
		err = d.handleChooseWord(ctx, roomCode, userID, env.Data)
	case "drawing_data":
		d.handleDrawingData(c, roomCode, env.Data)
	case "clear_canvas":
		d.handleClearCanvas(roomCode)
	case "send_canvas_data":
		d.handleSendCanvasData(roomCode, env.Data)
	case "snapshot_request":
		d.handleSnapshotRequest(c, roomCode)
	case "resync_done":
		d.mu.Lock()
		delete(d.resyncing, c.socketID)
		d.mu.Unlock()
	case "chat_message":
		err = d.handleChatMessage(ctx, roomCode, userID, c.username, env.Data)
	case "submit_guess":
		err = d.handleSubmitGuess(ctx, c, roomCode, userID, env.Data)
	case "skip_turn":
		err = d.engine.SkipTurn(ctx, roomCode, userID)
	case "word_hint":
		err = d.handleWordHint(ctx, roomCode, userID, env.Data)
	case "report":
		err = d.handleReport(ctx, roomCode, userID, env.Data)
	case "prepare_to_leave_permanently":
		d.sessions.Disconnect(roomCode, userID, c.socketID, func() {
			if e := d.engine.LeaveRoom(context.Background(), d.lc, roomCode, userID); e != nil {
				d.log.Warnw("[ws] prepare-to-leave grace expiry failed", "room", roomCode, "error", e)
			}
		})
	case "join_voice":
		// Accepted and ignored: no voice.Relay is wired into the
		// dispatcher, so the payload is not forwarded anywhere.
	default:
		d.log.Debugw("[ws] unhandled event type", "type", env.Type)
	}

	if err != nil {
		if ce, ok := err.(*domain.ClientError); ok {
			c.emitError(ce.Kind, ce.Details)
		} else {
			d.log.Errorw("[ws] handler failed", "type", env.Type, "room", roomCode, "error", err)
			c.emitError(domain.ErrServerSyncing, "")
		}
	}
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, c *Client, raw json.RawMessage) {
	var p struct {
		RoomCode string      `json:"roomCode"`
		Username string      `json:"username"`
		Team     domain.Team `json:"team"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		c.emitError(domain.ErrRoomNotFound, "malformed join_room")
		return
	}
	userID := c.UserID()
	if userID == "" {
		c.emitError(domain.ErrNotAuthenticated, "")
		return
	}
	if !d.sessions.TryLockJoin(p.RoomCode, userID) {
		return // a join for this (room, user) is already in flight
	}
	defer d.sessions.UnlockJoin(p.RoomCode, userID)

	username := p.Username
	if username == "" {
		username = c.username
	}
	if _, err := d.engine.JoinRoom(ctx, p.RoomCode, userID, username); err != nil {
		if ce, ok := err.(*domain.ClientError); ok {
			c.emitError(ce.Kind, ce.Details)
		} else {
			d.log.Errorw("[ws] join_room failed", "room", p.RoomCode, "error", err)
			c.emitError(domain.ErrRoomNotFound, "")
		}
		return
	}
	c.bind(p.RoomCode, userID, username)
	c.hub.register(c)
	d.sessions.Register(p.RoomCode, userID, c.socketID)
	if p.Team != domain.TeamNone {
		_ = d.engine.SelectTeam(ctx, p.RoomCode, userID, p.Team)
	}
}

func (d *Dispatcher) handleUpdateSettings(ctx context.Context, roomCode, userID string, raw json.RawMessage) error {
	var p struct {
		Settings struct {
			MaxPlayers   *int          `json:"maxPlayers"`
			IsPublic     *bool         `json:"isPublic"`
			GameMode     *domain.GameMode `json:"gameMode"`
			Language     *string       `json:"language"`
			Script       *string       `json:"script"`
			Country      *string       `json:"country"`
			Category     []string      `json:"category"`
			EntryPoints  *int          `json:"entryPoints"`
			TargetPoints *int          `json:"targetPoints"`
			VoiceEnabled *bool         `json:"voiceEnabled"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrRoomNotFound, "malformed update_settings")
	}
	_, err := d.engine.UpdateSettings(ctx, roomCode, userID, func(r *domain.Room) {
		if p.Settings.MaxPlayers != nil {
			r.MaxPlayers = *p.Settings.MaxPlayers
		}
		if p.Settings.IsPublic != nil {
			r.IsPublic = *p.Settings.IsPublic
		}
		if p.Settings.GameMode != nil {
			r.GameMode = *p.Settings.GameMode
		}
		if p.Settings.Language != nil {
			r.Language = *p.Settings.Language
		}
		if p.Settings.Script != nil {
			r.Script = *p.Settings.Script
		}
		if p.Settings.Country != nil {
			r.Country = *p.Settings.Country
		}
		if p.Settings.Category != nil {
			r.Category = p.Settings.Category
		}
		if p.Settings.EntryPoints != nil {
			r.EntryPoints = *p.Settings.EntryPoints
		}
		if p.Settings.TargetPoints != nil {
			r.TargetPoints = *p.Settings.TargetPoints
		}
		if p.Settings.VoiceEnabled != nil {
			r.VoiceEnabled = *p.Settings.VoiceEnabled
		}
	})
	return err
}

func (d *Dispatcher) handleSelectTeam(ctx context.Context, roomCode, userID string, raw json.RawMessage) error {
	var p struct {
		Team domain.Team `json:"team"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrInvalidTeam, "malformed select_team")
	}
	return d.engine.SelectTeam(ctx, roomCode, userID, p.Team)
}

func (d *Dispatcher) handleRemoveParticipant(ctx context.Context, roomCode, ownerID string, raw json.RawMessage) error {
	var p struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrRoomNotFound, "malformed remove_participant")
	}
	return d.engine.RemoveParticipant(ctx, roomCode, ownerID, p.UserID)
}

func (d *Dispatcher) handleChooseWord(ctx context.Context, roomCode, userID string, raw json.RawMessage) error {
	var p struct {
		Word string `json:"word"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrInvalidWordChoice, "malformed choose_word")
	}
	if err := d.engine.ChooseWord(ctx, roomCode, userID, p.Word); err != nil {
		return err
	}
	d.resync.ResetForRound(roomCode)
	return nil
}

func (d *Dispatcher) handleDrawingData(c *Client, roomCode string, raw json.RawMessage) {
	var p struct {
		Strokes       []domain.GridPosition `json:"strokes"`
		Color         string                `json:"color"`
		IsFinished    bool                  `json:"isFinished"`
		CanvasVersion int64                 `json:"canvasVersion"`
		Sequence      int64                 `json:"sequence"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	msgType := domain.DrawingStroke
	if p.IsFinished {
		msgType = domain.DrawingBatch
	}
	stroke := domain.DrawingData{
		Type: msgType, Points: p.Strokes, Color: p.Color,
		Sequence: p.Sequence, Timestamp: time.Now().UnixMilli(),
	}
	accepted, _ := d.resync.RecordStroke(roomCode, stroke)
	c.Emit("drawing_ack", domain.DrawingAckData{Sequence: p.Sequence})
	if !accepted {
		return
	}
	d.mu.Lock()
	skip := map[string]bool{c.socketID: true}
	for socketID := range d.resyncing {
		skip[socketID] = true
	}
	d.mu.Unlock()
	c.hub.BroadcastToRoomExceptSockets(roomCode, skip, "drawing_data", stroke)
}

func (d *Dispatcher) handleClearCanvas(roomCode string) {
	version := d.resync.Clear(roomCode)
	d.engine.BroadcastCanvasCleared(roomCode, version)
}

func (d *Dispatcher) handleSendCanvasData(roomCode string, raw json.RawMessage) {
	var p struct {
		TargetUserID string              `json:"targetUserId"`
		History      []domain.DrawingData `json:"history"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.TargetUserID == "" {
		return
	}
	d.engine.SendCanvasResume(roomCode, p.TargetUserID, p.History)
}

func (d *Dispatcher) handleSnapshotRequest(c *Client, roomCode string) {
	if !d.resync.BeginSnapshotRequest(c.socketID) {
		return
	}
	defer d.resync.EndSnapshotRequest(c.socketID)
	d.mu.Lock()
	d.resyncing[c.socketID] = true
	d.mu.Unlock()
	c.Emit("canvas_resume", d.resync.Snapshot(roomCode))
}

func (d *Dispatcher) handleChatMessage(ctx context.Context, roomCode, userID, username string, raw json.RawMessage) error {
	var p struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrRoomNotFound, "malformed chat_message")
	}
	return d.engine.Chat(ctx, roomCode, userID, username, p.Content)
}

func (d *Dispatcher) handleSubmitGuess(ctx context.Context, c *Client, roomCode, userID string, raw json.RawMessage) error {
	var p struct {
		Guess string `json:"guess"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrRoomNotFound, "malformed submit_guess")
	}
	_, _, err := d.engine.Guess(ctx, roomCode, userID, p.Guess)
	return err
}

func (d *Dispatcher) handleWordHint(ctx context.Context, roomCode, userID string, raw json.RawMessage) error {
	var p struct {
		RevealedWord string `json:"revealedWord"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrNotYourTurn, "malformed word_hint")
	}
	return d.engine.RelayHint(ctx, roomCode, userID, p.RevealedWord)
}

func (d *Dispatcher) handleReport(ctx context.Context, roomCode, reporterID string, raw json.RawMessage) error {
	var p struct {
		TargetUserID string            `json:"targetUserId"`
		Kind         domain.ReportKind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.NewClientError(domain.ErrRoomNotFound, "malformed report")
	}
	if p.Kind == "" {
		p.Kind = domain.ReportUser
	}
	return d.engine.SubmitReport(ctx, roomCode, reporterID, p.TargetUserID, p.Kind)
}
