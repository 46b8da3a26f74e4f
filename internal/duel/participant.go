package duel

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Participant is either a human (UserID set, BotTier zero) or a bot of a
// given tier (BotTier 1-5, UserID nil).
type Participant struct {
	UserID  uuid.UUID
	BotTier int
}

func Human(id uuid.UUID) Participant {
	return Participant{UserID: id}
}

func Bot(tier int) Participant {
	return Participant{BotTier: tier}
}

func (p Participant) IsBot() bool {
	return p.BotTier != 0
}

func (p Participant) String() string {
	if p.IsBot() {
		return fmt.Sprintf("bot:%d", p.BotTier)
	}
	return "user:" + p.UserID.String()
}

type participantJSON struct {
	Kind    string     `json:"kind"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	BotTier int        `json:"bot_tier,omitempty"`
}

func (p Participant) MarshalJSON() ([]byte, error) {
	if p.IsBot() {
		return json.Marshal(participantJSON{Kind: "bot", BotTier: p.BotTier})
	}
	id := p.UserID
	return json.Marshal(participantJSON{Kind: "human", UserID: &id})
}
