// Package rotation picks the next drawer for a room: flat round-robin
// in solo mode, alternating-team merge order in team mode.
package rotation

import (
	"sort"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// Next returns the userID of the next drawer and the new DrawnUserIDs
// set to persist, given the current room and its participants; it
// keeps only active, non-banned participants and orders them by
// JoinedAt itself. A full cycle is detected when every active
// participant has drawn; DrawnUserIDs resets at that point.
func Next(room *domain.Room, participants []*domain.Participant) (nextDrawer string, drawnUserIDs map[string]bool) {
	active := activeParticipants(participants)
	if len(active) == 0 {
		return "", room.DrawnUserIDs
	}

	drawn := cloneSet(room.DrawnUserIDs)
	if allDrawn(active, drawn) {
		drawn = map[string]bool{}
	}

	var order []string
	if room.GameMode == domain.ModeTeam {
		order = teamMergeOrder(active)
	} else {
		order = flatOrder(active)
	}

	for _, uid := range order {
		if !drawn[uid] {
			drawn[uid] = true
			return uid, drawn
		}
	}

	// Every candidate already drawn this cycle after a reset is only
	// possible with zero active participants, already handled above.
	return order[0], map[string]bool{order[0]: true}
}

func flatOrder(active []*domain.Participant) []string {
	sort.Slice(active, func(i, j int) bool { return active[i].JoinedAt.Before(active[j].JoinedAt) })
	out := make([]string, len(active))
	for i, p := range active {
		out[i] = p.UserID
	}
	return out
}

// teamMergeOrder alternates blue/orange so consecutive drawers never
// belong to the same team, falling back to a flat rotation if one team
// has no active players (spec's team-mode edge case).
func teamMergeOrder(active []*domain.Participant) []string {
	var blue, orange []*domain.Participant
	for _, p := range active {
		switch p.Team {
		case domain.TeamBlue:
			blue = append(blue, p)
		case domain.TeamOrange:
			orange = append(orange, p)
		}
	}
	if len(blue) == 0 || len(orange) == 0 {
		return flatOrder(active)
	}
	sort.Slice(blue, func(i, j int) bool { return blue[i].JoinedAt.Before(blue[j].JoinedAt) })
	sort.Slice(orange, func(i, j int) bool { return orange[i].JoinedAt.Before(orange[j].JoinedAt) })

	var out []string
	for i := 0; i < len(blue) || i < len(orange); i++ {
		if i < len(blue) {
			out = append(out, blue[i].UserID)
		}
		if i < len(orange) {
			out = append(out, orange[i].UserID)
		}
	}
	return out
}

func activeParticipants(participants []*domain.Participant) []*domain.Participant {
	var out []*domain.Participant
	for _, p := range participants {
		if p.IsActive && p.BannedAt == nil {
			out = append(out, p)
		}
	}
	return out
}

func allDrawn(active []*domain.Participant, drawn map[string]bool) bool {
	for _, p := range active {
		if !drawn[p.UserID] {
			return false
		}
	}
	return true
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
