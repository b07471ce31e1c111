package main

import "github.com/pkg/errors"

type PlayerType int

const (
	PlayerHuman PlayerType = iota
	PlayerAI
)

func (t PlayerType) String() string {
	if t == PlayerAI {
		return "AI"
	}
	return "Human"
}

// GameSettings describe one match. Per-side heuristics override the config
// weights for that side's AI, which is how the trainer pits variants.
type GameSettings struct {
	BoardSize       int              `json:"board_size"`
	BlackType       PlayerType       `json:"-"`
	WhiteType       PlayerType       `json:"-"`
	BlackHeuristics *HeuristicConfig `json:"black_heuristics,omitempty"`
	WhiteHeuristics *HeuristicConfig `json:"white_heuristics,omitempty"`
}

func DefaultGameSettings() GameSettings {
	return GameSettings{
		BoardSize: GetConfig().BoardSize,
		BlackType: PlayerHuman,
		WhiteType: PlayerAI,
	}
}

// ParseGameMode maps the API mode names onto player types.
func ParseGameMode(mode string) (PlayerType, PlayerType, error) {
	switch mode {
	case "", "human_vs_ai":
		return PlayerHuman, PlayerAI, nil
	case "ai_vs_human":
		return PlayerAI, PlayerHuman, nil
	case "human_vs_human":
		return PlayerHuman, PlayerHuman, nil
	case "ai_vs_ai":
		return PlayerAI, PlayerAI, nil
	default:
		return PlayerHuman, PlayerHuman, errors.Errorf("unknown mode %q", mode)
	}
}

func (s GameSettings) Mode() string {
	switch {
	case s.BlackType == PlayerAI && s.WhiteType == PlayerAI:
		return "ai_vs_ai"
	case s.BlackType == PlayerAI:
		return "ai_vs_human"
	case s.WhiteType == PlayerAI:
		return "human_vs_ai"
	default:
		return "human_vs_human"
	}
}
