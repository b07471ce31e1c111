package main

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateEmptyBoardIsZero(t *testing.T) {
	eval := NewEvaluator(DefaultHeuristics())
	if got := eval.Score(NewGameState(9), PlayerBlack); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}

func TestEvaluateLoneStone(t *testing.T) {
	board := NewBoard(5)
	board.Set(2, 2, CellBlack)
	state := GameStateFromBoard(board, PlayerWhite)
	eval := NewEvaluator(DefaultHeuristics())

	// one stone with four liberties: 1.0*1 + 0.4*4
	if got := eval.Score(state, PlayerBlack); !almostEqual(got, 2.6) {
		t.Fatalf("black score %f, want 2.6", got)
	}
	if got := eval.Score(state, PlayerWhite); !almostEqual(got, -2.6) {
		t.Fatalf("white score %f, want -2.6", got)
	}
}

func TestEvaluateAtariTerm(t *testing.T) {
	board := mustParseBoard(t, `
		@O...
		.....
		.....
		.....
		.....
	`)
	terms := CollectEvalTerms(board)
	if terms.BlackLiberties != 1 || terms.WhiteLiberties != 2 || terms.BlackInAtari != 1 || terms.WhiteInAtari != 0 {
		t.Fatalf("unexpected terms %+v", terms)
	}
	// stones 0, liberties -1, atari -1
	got := EvaluateBoard(board, PlayerBlack, DefaultHeuristics())
	if !almostEqual(got, -0.4-0.8) {
		t.Fatalf("score %f, want -1.2", got)
	}
}

func TestEvaluateUsesConfiguredWeights(t *testing.T) {
	board := NewBoard(5)
	board.Set(2, 2, CellBlack)
	weights := HeuristicConfig{Stones: 10, Liberties: 0, Atari: 0}
	if got := EvaluateBoard(board, PlayerBlack, weights); !almostEqual(got, 10) {
		t.Fatalf("score %f, want 10", got)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	state := GameStateFromBoard(mustParseBoard(t, koDiagram), PlayerBlack)
	eval := NewEvaluator(DefaultHeuristics())
	first := eval.Score(state, PlayerBlack)
	for i := 0; i < 3; i++ {
		if got := eval.Score(state, PlayerBlack); got != first {
			t.Fatalf("score changed between calls: %f vs %f", got, first)
		}
	}
}

func TestEvaluateResignationIsDecisive(t *testing.T) {
	state := mustApply(t, NewGameState(5), Play(2, 2), Resign())
	eval := NewEvaluator(DefaultHeuristics())
	if got := eval.Score(state, PlayerWhite); got != -resignScore {
		t.Fatalf("resigner score %f, want %f", got, -resignScore)
	}
	if got := eval.Score(state, PlayerBlack); got != resignScore {
		t.Fatalf("winner score %f, want %f", got, resignScore)
	}
}

func TestEvaluateOtherTerminalStatesUseBoardTerms(t *testing.T) {
	state := mustApply(t, NewGameState(5), Play(2, 2), Pass(), Pass())
	eval := NewEvaluator(DefaultHeuristics())
	want := EvaluateBoard(state.Board(), PlayerBlack, DefaultHeuristics())
	if got := eval.Score(state, PlayerBlack); !almostEqual(got, want) || !almostEqual(got, 2.6) {
		t.Fatalf("score %f, want %f", got, want)
	}
}
