package views

import (
	"sort"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/google/uuid"
)

type Record struct {
	Wins    int
	Losses  int
	Expired int
}

type LobbyData struct {
	Available []duel.Summary
	Current   *duel.Summary
	Past      []duel.Summary
	Record    Record
}

// PrepareLobbyData splits the viewer's history into the duel they are in
// right now and finished ones, and tallies their record.
func PrepareLobbyData(viewerID uuid.UUID, available, history []duel.Summary) LobbyData {
	data := LobbyData{Available: available}

	for i := range history {
		s := history[i]
		switch {
		case !s.Status.Terminal():
			if data.Current == nil {
				data.Current = &s
			}
		case s.Status == duel.StatusExpired:
			data.Record.Expired++
			data.Past = append(data.Past, s)
		default:
			if s.Winner != nil && *s.Winner == duel.Human(viewerID) {
				data.Record.Wins++
			} else {
				data.Record.Losses++
			}
			data.Past = append(data.Past, s)
		}
	}

	sort.SliceStable(data.Past, func(i, j int) bool {
		return data.Past[i].CreatedAt.After(data.Past[j].CreatedAt)
	})
	return data
}

func (r Record) Played() int {
	return r.Wins + r.Losses + r.Expired
}
