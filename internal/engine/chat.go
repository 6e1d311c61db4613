package engine

import (
	"context"
	"time"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// Chat is the chat_message handler: persists the line for audit and
// broadcasts it to the room.
func (e *Engine) Chat(ctx context.Context, roomCode, userID, username, text string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if err := e.store.SaveMessage(ctx, room.ID, userID, username, text); err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(roomCode, "chat_message", domain.ChatMessageData{
		UserID: userID, Username: username, Text: text, Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// RelayHint is the word_hint client->server handler: the drawer may
// voluntarily reveal part of the word early, relayed to the rest of
// the room as-is.
func (e *Engine) RelayHint(ctx context.Context, roomCode, userID, masked string) error {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.CurrentDrawerID != userID {
		return domain.NewClientError(domain.ErrNotYourTurn, "")
	}
	e.bcast.BroadcastToRoomExcept(roomCode, userID, "word_hint", domain.WordHintData{Masked: masked})
	return nil
}
