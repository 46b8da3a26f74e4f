package views

import (
	"context"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/AdamBeresnev/code-duels/internal/middleware"
	users "github.com/AdamBeresnev/code-duels/internal/user"
	"github.com/google/uuid"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

// ResultFor describes a finished duel from the viewer's side.
func ResultFor(viewerID uuid.UUID, s duel.Summary) string {
	switch {
	case s.Status == duel.StatusExpired:
		return "Expired"
	case s.Status != duel.StatusCompleted:
		return "In progress"
	case s.Winner != nil && *s.Winner == duel.Human(viewerID):
		return "Won"
	}
	return "Lost"
}

func opponentLabel(s duel.Summary) string {
	if s.OpponentName == "" {
		return "Waiting for opponent"
	}
	return s.OpponentName
}
