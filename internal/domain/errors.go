package domain

// ErrorKind is the closed set of client-facing error codes. These are
// sent to the offending socket as
// {type: "error", data: {message, details?}} and never mutate state.
type ErrorKind string

const (
	ErrRoomNotFound                      ErrorKind = "room_not_found"
	ErrRoomClosed                        ErrorKind = "room_closed"
	ErrNotAuthenticated                  ErrorKind = "not_authenticated"
	ErrRoomFull                          ErrorKind = "room_full"
	ErrOnlyOwnerCan                      ErrorKind = "only_owner_can_*"
	ErrCannotUpdateAfterGameStarted      ErrorKind = "cannot_update_after_game_started"
	ErrInvalidTeam                       ErrorKind = "invalid_team"
	ErrNotTeamMode                       ErrorKind = "not_team_mode"
	ErrCannotChangeTeamAfterGameStarted  ErrorKind = "cannot_change_team_after_game_started"
	ErrNotEnoughPlayers                  ErrorKind = "not_enough_players"
	ErrBothTeamsNeedPlayers              ErrorKind = "both_teams_need_players"
	ErrNotAllReady                       ErrorKind = "not_all_ready"
	ErrInsufficientCoins                 ErrorKind = "insufficient_coins"
	ErrNotYourTurn                       ErrorKind = "not_your_turn"
	ErrWrongPhase                        ErrorKind = "wrong_phase"
	ErrInvalidWordChoice                 ErrorKind = "invalid_word_choice"
	ErrAlreadyGuessed                    ErrorKind = "already_guessed"
	ErrDrawerCannotGuess                 ErrorKind = "drawer_cannot_guess"
	ErrWrongTeam                         ErrorKind = "wrong_team"
	ErrRoundEnded                        ErrorKind = "round_ended"
	ErrYouAreBanned                      ErrorKind = "you_are_banned"
	ErrServerSyncing                     ErrorKind = "server_syncing"
	ErrInvalidMaxPlayers                 ErrorKind = "invalid_max_players"
	ErrCannotRemoveSelf                  ErrorKind = "cannot_remove_self"
	ErrCannotRemoveDuringGame            ErrorKind = "cannot_remove_during_game"
)

// ClientError is returned by handlers to indicate a soft, structured
// rejection: no state was mutated, and the caller should emit
// {type: "error", data: {message: Kind, details: Details}} to the
// originating socket only.
type ClientError struct {
	Kind    ErrorKind
	Details string
}

func (e *ClientError) Error() string {
	if e.Details == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Details
}

// NewClientError builds a ClientError, the soft-rejection path used
// throughout the engine/session/resync packages.
func NewClientError(kind ErrorKind, details string) error {
	return &ClientError{Kind: kind, Details: details}
}
