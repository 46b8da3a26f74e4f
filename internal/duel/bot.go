package duel

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	MinBotTier = 1
	MaxBotTier = 5

	maxBotSuccessRate = 0.95
	// Added to the bot's success rate when the human got it wrong
	wrongAnswerBoost = 0.2

	minJitterSeconds = -2
	maxJitterSeconds = 3
)

type BotProfile struct {
	Tier        int
	Name        string
	SuccessRate float64
	BaseSeconds int
}

var botProfiles = map[int]BotProfile{
	1: {Tier: 1, Name: "CodeBot Novice", SuccessRate: 0.30, BaseSeconds: 15},
	2: {Tier: 2, Name: "CodeBot Junior", SuccessRate: 0.50, BaseSeconds: 12},
	3: {Tier: 3, Name: "CodeBot Expert", SuccessRate: 0.70, BaseSeconds: 8},
	4: {Tier: 4, Name: "CodeBot Master", SuccessRate: 0.85, BaseSeconds: 5},
	5: {Tier: 5, Name: "CodeBot Grandmaster", SuccessRate: 0.95, BaseSeconds: 3},
}

func ProfileFor(tier int) BotProfile {
	if p, ok := botProfiles[tier]; ok {
		return p
	}
	return BotProfile{Tier: tier, Name: fmt.Sprintf("CodeBot Level %d", tier), SuccessRate: 0.5, BaseSeconds: 10}
}

// ClampTier maps a question difficulty onto a valid bot tier.
func ClampTier(difficulty int) int {
	return max(MinBotTier, min(MaxBotTier, difficulty))
}

func (p BotProfile) ChanceToSolve(humanCorrect bool) float64 {
	rate := p.SuccessRate
	if !humanCorrect {
		rate = math.Min(rate+wrongAnswerBoost, maxBotSuccessRate)
	}
	return rate
}

// BotRoll is drawn once per duel so every submission is judged against the
// same simulated bot.
type BotRoll struct {
	Roll            float64
	ResponseSeconds int
}

func (r BotRoll) Solved(p BotProfile, humanCorrect bool) bool {
	return r.Roll < p.ChanceToSolve(humanCorrect)
}

func RollBot(tier int) BotRoll {
	p := ProfileFor(tier)
	jitter := minJitterSeconds + rand.IntN(maxJitterSeconds-minJitterSeconds+1)
	return BotRoll{
		Roll:            rand.Float64(),
		ResponseSeconds: max(1, p.BaseSeconds+jitter),
	}
}
