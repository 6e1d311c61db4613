package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// maxPointsPerRound caps both a guess reward and the solo-mode drawer
// reward computed at reveal.
const maxPointsPerRound = 100

// Guess handles an incoming "submit_guess" event. Preconditions that
// indicate client bugs (drawer guessing, already guessed, wrong phase)
// return a ClientError and mutate nothing.
func (e *Engine) Guess(ctx context.Context, roomCode, userID, text string) (correct bool, reward int, err error) {
	room, err := e.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return false, 0, err
	}
	if room.RoundPhase != domain.PhaseDrawing {
		return false, 0, domain.NewClientError(domain.ErrWrongPhase, "")
	}
	if room.CurrentDrawerID == userID {
		return false, 0, domain.NewClientError(domain.ErrDrawerCannotGuess, "")
	}

	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return false, 0, err
	}
	guesser := findParticipant(participants, userID)
	if guesser == nil {
		return false, 0, domain.NewClientError(domain.ErrRoomNotFound, "")
	}
	if guesser.HasGuessedThisRound {
		return false, 0, domain.NewClientError(domain.ErrAlreadyGuessed, "")
	}

	cleaned := normalizeGuess(text)
	target := normalizeGuess(room.CurrentWord)

	if target == "" || cleaned != target {
		e.bcast.SendToUser(roomCode, userID, "incorrect_guess", domain.IncorrectGuessData{Text: text})
		e.bcast.BroadcastToRoomExcept(roomCode, userID, "chat_message", domain.ChatMessageData{
			UserID: userID, Username: guesser.Username, Text: text, Timestamp: time.Now().UnixMilli(),
		})
		_ = e.store.SaveMessage(ctx, room.ID, userID, guesser.Username, text)
		return false, 0, nil
	}

	remaining := room.RemainingSeconds(time.Now())
	reward = rewardFor(remaining)

	awardees := []string{userID}
	if room.GameMode == domain.ModeTeam {
		awardees = teammateIDs(participants, guesser.Team)
	}
	if err := e.store.AwardPoints(ctx, room.ID, awardees, reward); err != nil {
		return false, 0, err
	}

	e.bcast.SendToUser(roomCode, userID, "guess_result", domain.GuessResultData{Correct: true, Reward: reward})
	e.bcast.BroadcastToRoomExcept(roomCode, userID, "correct_guess", domain.CorrectGuessData{
		UserID: userID, Username: guesser.Username, Reward: reward,
	})
	for _, uid := range awardees {
		e.bcast.BroadcastToRoom(roomCode, "score_update", domain.ScoreUpdateData{UserID: uid, Score: scoreFor(participants, uid) + reward})
	}

	if everyoneGuessed(participants, room.CurrentDrawerID, awardees) {
		if err := e.MaybeEndRoundEarly(ctx, roomCode); err != nil {
			return true, reward, fmt.Errorf("end round early: %w", err)
		}
	}
	return true, reward, nil
}

func normalizeGuess(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// rewardFor implements reward = min(ceil(remainingSecs/8), maxPointsPerRound).
func rewardFor(remainingSecs int) int {
	if remainingSecs < 0 {
		remainingSecs = 0
	}
	reward := int(math.Ceil(float64(remainingSecs) / 8.0))
	if reward > maxPointsPerRound {
		return maxPointsPerRound
	}
	return reward
}

func findParticipant(participants []*domain.Participant, userID string) *domain.Participant {
	for _, p := range participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func teammateIDs(participants []*domain.Participant, team domain.Team) []string {
	var out []string
	for _, p := range participants {
		if p.Team == team {
			out = append(out, p.UserID)
		}
	}
	return out
}

func scoreFor(participants []*domain.Participant, userID string) int {
	if p := findParticipant(participants, userID); p != nil {
		return p.Score
	}
	return 0
}

// everyoneGuessed reports whether every active non-drawer participant
// has now guessed correctly, accounting for the just-awarded set.
func everyoneGuessed(participants []*domain.Participant, drawerID string, justAwarded []string) bool {
	awarded := map[string]bool{}
	for _, id := range justAwarded {
		awarded[id] = true
	}
	for _, p := range participants {
		if p.UserID == drawerID || !p.IsActive {
			continue
		}
		if !p.HasGuessedThisRound && !awarded[p.UserID] {
			return false
		}
	}
	return true
}
