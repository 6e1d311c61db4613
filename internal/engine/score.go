package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/store"
)

func storePhaseUpdateFinished(status domain.RoomStatus) store.PhaseUpdate {
	return store.PhaseUpdate{Status: &status}
}

// awardDrawer pays the solo-mode drawer reward at drawing->reveal:
// min(20*G/max(1,N-1), maxPointsPerRound), where G is the number of
// active non-drawer participants who guessed correctly this round and
// N-1 is the count of active non-drawer participants. Team mode pays
// no drawer reward.
func (e *Engine) awardDrawer(ctx context.Context, room *domain.Room) error {
	if room.GameMode != domain.ModeSolo || room.CurrentDrawerID == "" {
		return nil
	}
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	correctGuessers, nonDrawerActive := 0, 0
	for _, p := range participants {
		if p.UserID == room.CurrentDrawerID || !p.IsActive {
			continue
		}
		nonDrawerActive++
		if p.HasGuessedThisRound {
			correctGuessers++
		}
	}
	if nonDrawerActive < 1 {
		nonDrawerActive = 1
	}
	reward := 20 * correctGuessers / nonDrawerActive
	if reward > maxPointsPerRound {
		reward = maxPointsPerRound
	}
	if reward <= 0 {
		return nil
	}

	if err := e.store.AwardPoints(ctx, room.ID, []string{room.CurrentDrawerID}, reward); err != nil {
		return err
	}
	e.bcast.BroadcastToRoom(room.Code, "score_update", domain.ScoreUpdateData{
		UserID: room.CurrentDrawerID, Score: scoreFor(participants, room.CurrentDrawerID) + reward,
	})
	return nil
}

// checkGameEnd ends the game once any single participant's score
// reaches TargetPoints, in either game mode. Team scores are not summed
// for this check, and a room with TargetPoints of 0 never ends here.
func (e *Engine) checkGameEnd(ctx context.Context, room *domain.Room) (bool, error) {
	participants, err := e.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return false, fmt.Errorf("list participants: %w", err)
	}

	ended := false
	if room.TargetPoints > 0 {
		for _, p := range participants {
			if p.Score >= room.TargetPoints {
				ended = true
				break
			}
		}
	}
	if !ended {
		return false, nil
	}

	rankings := Rankings(room, participants)
	status := domain.StatusFinished
	if _, err := e.store.TransitionPhase(ctx, room.ID, domain.PhaseReveal, domain.PhaseNone, storePhaseUpdateFinished(status)); err != nil {
		return false, err
	}
	e.bcast.BroadcastToRoom(room.Code, "game_ended", domain.GameEndedData{
		Rankings:  rankings,
		EntryCost: room.EntryPoints,
		GameMode:  room.GameMode,
	})
	return true, nil
}

// Rankings builds the sorted leaderboard used by "game_ended". Places
// are assigned by (score DESC, pointsUpdatedAt ASC) — earlier reaching
// a given score ranks higher — and since two participants share the
// same pointsUpdatedAt only when neither has ever been awarded, the
// sort yields strictly distinct ranks 1..N for any room with at least
// one scoring event.
func Rankings(room *domain.Room, participants []*domain.Participant) []domain.RankingEntry {
	sorted := append([]*domain.Participant(nil), participants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PointsUpdatedAt.Before(sorted[j].PointsUpdatedAt)
	})

	rewards := rewardsByPlace(room, sorted)
	out := make([]domain.RankingEntry, 0, len(sorted))
	for i, p := range sorted {
		out = append(out, domain.RankingEntry{
			UserID: p.UserID,
			Team:   p.Team,
			Score:  p.Score,
			Place:  i + 1,
			Reward: rewards[p.UserID],
		})
	}
	return out
}

// rewardsByPlace pays out room.EntryPoints-denominated winnings: in
// team mode, every member of the team with the higher total score
// gets 2*entry (a tie pays nobody); in solo mode, a 2-player room pays
// the winner 2*entry, and a 3+ player room pays 3*entry/2*entry/1*entry
// to 1st/2nd/3rd.
func rewardsByPlace(room *domain.Room, sorted []*domain.Participant) map[string]int {
	rewards := make(map[string]int, len(sorted))
	entry := room.EntryPoints

	if room.GameMode == domain.ModeTeam {
		blueTotal, orangeTotal := 0, 0
		for _, p := range sorted {
			switch p.Team {
			case domain.TeamBlue:
				blueTotal += p.Score
			case domain.TeamOrange:
				orangeTotal += p.Score
			}
		}
		var winner domain.Team
		switch {
		case blueTotal > orangeTotal:
			winner = domain.TeamBlue
		case orangeTotal > blueTotal:
			winner = domain.TeamOrange
		default:
			return rewards
		}
		for _, p := range sorted {
			if p.Team == winner {
				rewards[p.UserID] = 2 * entry
			}
		}
		return rewards
	}

	switch {
	case len(sorted) >= 3:
		rewards[sorted[0].UserID] = 3 * entry
		rewards[sorted[1].UserID] = 2 * entry
		rewards[sorted[2].UserID] = entry
	case len(sorted) == 2:
		rewards[sorted[0].UserID] = 2 * entry
	}
	return rewards
}
