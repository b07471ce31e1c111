package main

import "testing"

func mustParseBoard(t *testing.T, diagram string) Board {
	t.Helper()
	board, err := ParseBoard(diagram)
	if err != nil {
		t.Fatalf("parse board: %v", err)
	}
	return board
}

func mustApply(t *testing.T, state GameState, moves ...Move) GameState {
	t.Helper()
	for _, move := range moves {
		next, err := state.ApplyMove(move)
		if err != nil {
			t.Fatalf("apply %s: %v", move, err)
		}
		state = next
	}
	return state
}

// withConfig installs cfg for the duration of the test.
func withConfig(t *testing.T, cfg Config) {
	t.Helper()
	prev := GetConfig()
	configStore.Update(cfg)
	t.Cleanup(func() {
		configStore.Update(prev)
		FlushSharedTT()
	})
}

func containsMove(moves []Move, want Move) bool {
	for _, move := range moves {
		if move == want {
			return true
		}
	}
	return false
}
