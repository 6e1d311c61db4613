package domain

// This file rounds out the server->client event catalog that didn't
// already fit alongside the envelope in message.go.

// RoomJoinedData backs "room_joined", sent only to the joining socket.
type RoomJoinedData struct {
	Room         *Room          `json:"room"`
	Participants []*Participant `json:"participants"`
	YouAre       *Participant   `json:"you"`
}

// RoomParticipantsData backs "room_participants", a full snapshot
// broadcast after any roster change.
type RoomParticipantsData struct {
	Participants []*Participant `json:"participants"`
}

// PlayerJoinedData backs "player_joined".
type PlayerJoinedData struct {
	Participant *Participant `json:"participant"`
}

// PlayerLeftData backs "player_left".
type PlayerLeftData struct {
	UserID string `json:"userId"`
}

// SettingsUpdatedData backs "settings_updated".
type SettingsUpdatedData struct {
	Room *Room `json:"room"`
}

// DrawerSkippedData backs "drawer_skipped", emitted when a drawer's
// turn is skipped by a choose_word timeout or a skip_turn event.
// EliminationCount carries the drawer's skip count.
type DrawerSkippedData struct {
	UserID           string `json:"userId"`
	EliminationCount int    `json:"eliminationCount"`
	Removed          bool   `json:"removed"`
}

// ClearChatData backs "clear_chat", sent at the start of each round.
type ClearChatData struct{}

// ChatMessageData backs "chat_message".
type ChatMessageData struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// IncorrectGuessData backs "incorrect_guess", echoed only to the
// guesser so the UI can render it without revealing correctness to
// others.
type IncorrectGuessData struct {
	Text string `json:"text"`
}

// GuessResultData backs "guess_result", the private ack to the
// guesser distinct from the public "correct_guess" broadcast.
type GuessResultData struct {
	Correct bool `json:"correct"`
	Reward  int  `json:"reward,omitempty"`
}

// GameEndedInsufficientPlayersData backs
// "game_ended_insufficient_players".
type GameEndedInsufficientPlayersData struct {
	Reason string `json:"reason"`
}

// RoomClosedData backs "room_closed".
type RoomClosedData struct {
	Reason string `json:"reason"`
}

// UserBannedData backs "user_banned", sent to the banned socket.
type UserBannedData struct {
	Reason string `json:"reason"`
}

// UserBannedFromRoomData backs "user_banned_from_room", broadcast to
// the rest of the room.
type UserBannedFromRoomData struct {
	UserID string `json:"userId"`
}

// LobbyTimeExceededData backs "lobby_time_exceeded".
type LobbyTimeExceededData struct{}

// ExitedDueToInactivityData backs "exited_due_to_inactivity".
type ExitedDueToInactivityData struct{}

// ServerSyncingData backs a "server_syncing" event. No code path sends
// this event; the dispatcher reports any non-client handler failure as
// an error whose kind is server_syncing instead.
type ServerSyncingData struct{}

// RoomBackToLobbyData backs "room_back_to_lobby".
type RoomBackToLobbyData struct {
	Room *Room `json:"room"`
}

// WordHintData backs "word_hint", the periodic reveal broadcast
// during the drawing phase.
type WordHintData struct {
	Masked string `json:"masked"`
}
