package main

import (
	"testing"
	"time"
)

func fastAIConfig() Config {
	cfg := DefaultConfig()
	cfg.BoardSize = 5
	cfg.AiDepth = 1
	cfg.AiTimeBudgetSec = 1
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestAIPlayerChooseMoveIsLegal(t *testing.T) {
	withConfig(t, fastAIConfig())
	state := mustApply(t, NewGameState(5), Play(2, 2))
	move, ok := NewAIPlayer().ChooseMove(state)
	if !ok {
		t.Fatalf("ai must always produce a move")
	}
	if legal, reason := state.IsLegal(move); !legal {
		t.Fatalf("ai chose illegal move %s: %s", move, reason)
	}
}

func TestAIPlayerHeuristicsOverrideIsCopied(t *testing.T) {
	withConfig(t, fastAIConfig())
	weights := HeuristicConfig{Stones: 3, Liberties: 0, Atari: 0}
	ai := NewAIPlayer()
	ai.SetHeuristicsOverride(&weights)
	weights.Stones = 99
	if got := ai.searcher().Evaluator().Weights(); got.Stones != 3 {
		t.Fatalf("expected override to be copied, got %+v", got)
	}
	ai.SetHeuristicsOverride(nil)
	if got := ai.searcher().Evaluator().Weights(); got != DefaultHeuristics() {
		t.Fatalf("expected config weights after clearing override, got %+v", got)
	}
}

func TestAIPlayerThinksInBackground(t *testing.T) {
	withConfig(t, fastAIConfig())
	var reports []DepthReport
	ai := NewAIPlayer()
	ai.SetProgressSink(func(report DepthReport) {
		reports = append(reports, report)
	})
	state := NewGameState(5)
	ai.StartThinking(state)
	if !waitFor(t, 3*time.Second, ai.HasMoveReady) {
		t.Fatalf("ai did not finish thinking")
	}
	if ai.IsThinking() {
		t.Fatalf("expected thinking to be over once a move is ready")
	}
	result := ai.TakeMove()
	if legal, reason := state.IsLegal(result.Move); !legal {
		t.Fatalf("ai chose illegal move %s: %s", result.Move, reason)
	}
	if result.Depth != 1 || ai.HasMoveReady() {
		t.Fatalf("unexpected result depth %d ready=%v", result.Depth, ai.HasMoveReady())
	}
	if len(reports) != 1 || reports[0].Move != result.Move {
		t.Fatalf("expected one progress report for the chosen move, got %+v", reports)
	}
}

func TestAIPlayerStopThinkingCancelsSearch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AiDepth = 8
	cfg.AiTimeBudgetSec = 60
	withConfig(t, cfg)

	ai := NewAIPlayer()
	ai.StartThinking(NewGameState(9))
	start := time.Now()
	ai.StopThinking()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stop took %s", elapsed)
	}
	if ai.IsThinking() || ai.HasMoveReady() {
		t.Fatalf("expected no pending search after stop")
	}
}

func TestHumanPlayerHandsOverPendingMove(t *testing.T) {
	human := NewHumanPlayer()
	if _, ok := human.ChooseMove(NewGameState(5)); ok {
		t.Fatalf("expected no move before one is submitted")
	}
	human.SetPendingMove(Pass())
	if !human.HasPendingMove() {
		t.Fatalf("expected pending move")
	}
	move, ok := human.ChooseMove(NewGameState(5))
	if !ok || move != Pass() || human.HasPendingMove() {
		t.Fatalf("unexpected hand-over %s %v", move, ok)
	}
}
