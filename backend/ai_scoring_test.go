package main

import (
	"context"
	"testing"
	"time"
)

func testSearchConfig(depth int) SearchConfig {
	return SearchConfig{
		MaxDepth:           depth,
		UseAlphaBeta:       true,
		IterativeDeepening: true,
		MoveOrdering:       true,
		RootWorkers:        1,
		Weights:            DefaultHeuristics(),
	}
}

// atariPosition has a white stone at (2,0) whose last liberty is (2,1).
func atariPosition(t *testing.T) GameState {
	t.Helper()
	return GameStateFromBoard(mustParseBoard(t, `
		.@O@.
		.....
		.....
		.....
		.....
	`), PlayerBlack)
}

func midgamePosition(t *testing.T) GameState {
	t.Helper()
	return GameStateFromBoard(mustParseBoard(t, `
		.....
		.@O..
		.O@..
		..@O.
		.....
	`), PlayerBlack)
}

func TestSearchTakesTheCapture(t *testing.T) {
	state := atariPosition(t)
	result := NewSearcher(testSearchConfig(1)).Analyze(context.Background(), state, PlayerBlack)
	if result.Move != Play(2, 1) {
		t.Fatalf("expected capture at (2,1), got %s", result.Move)
	}
	if result.Depth != 1 {
		t.Fatalf("expected completed depth 1, got %d", result.Depth)
	}
}

func TestMoveOrderScoreRanksCapturesFirst(t *testing.T) {
	state := atariPosition(t)
	capture := MoveOrderScore(state, Play(2, 1))
	if capture < orderCaptureWeight {
		t.Fatalf("expected capture bonus, got %d", capture)
	}
	if other := MoveOrderScore(state, Play(4, 4)); other >= capture {
		t.Fatalf("quiet move scored %d, capture %d", other, capture)
	}

	searcher := NewSearcher(testSearchConfig(1))
	sc := &searchContext{ctx: context.Background(), stats: &SearchStats{}}
	moves := searcher.orderedMoves(sc, state)
	if moves[0] != Play(2, 1) {
		t.Fatalf("expected capture first, got %v", moves[:3])
	}
	if moves[len(moves)-2] != Pass() || moves[len(moves)-1] != Resign() {
		t.Fatalf("expected pass and resign last")
	}
}

func TestMoveOrderingDisabledKeepsBoardOrder(t *testing.T) {
	config := testSearchConfig(1)
	config.MoveOrdering = false
	searcher := NewSearcher(config)
	state := atariPosition(t)
	sc := &searchContext{ctx: context.Background(), stats: &SearchStats{}}
	moves := searcher.orderedMoves(sc, state)
	legal := state.LegalMoves()
	if len(moves) != len(legal) {
		t.Fatalf("expected %d moves, got %d", len(legal), len(moves))
	}
	for i := range legal {
		if moves[i] != legal[i] {
			t.Fatalf("move %d: got %s want %s", i, moves[i], legal[i])
		}
	}
}

func TestPruningDoesNotChangeTheAnswer(t *testing.T) {
	state := midgamePosition(t)
	pruned := NewSearcher(testSearchConfig(2)).Analyze(context.Background(), state, PlayerBlack)

	config := testSearchConfig(2)
	config.UseAlphaBeta = false
	full := NewSearcher(config).Analyze(context.Background(), state, PlayerBlack)

	if pruned.Move != full.Move || pruned.Score != full.Score {
		t.Fatalf("pruned %s (%f) differs from full %s (%f)", pruned.Move, pruned.Score, full.Move, full.Score)
	}
	if pruned.Stats.Nodes.Load() >= full.Stats.Nodes.Load() {
		t.Fatalf("expected pruning to visit fewer nodes: %d vs %d", pruned.Stats.Nodes.Load(), full.Stats.Nodes.Load())
	}
	if full.Stats.Cutoffs.Load() != 0 {
		t.Fatalf("expected no cutoffs with pruning disabled")
	}
}

func TestParallelRootMatchesSequential(t *testing.T) {
	state := midgamePosition(t)
	sequential := NewSearcher(testSearchConfig(2)).Analyze(context.Background(), state, PlayerBlack)

	config := testSearchConfig(2)
	config.RootWorkers = 4
	parallel := NewSearcher(config).Analyze(context.Background(), state, PlayerBlack)

	if sequential.Move != parallel.Move || sequential.Score != parallel.Score {
		t.Fatalf("parallel %s (%f) differs from sequential %s (%f)", parallel.Move, parallel.Score, sequential.Move, sequential.Score)
	}
}

func TestTranspositionTableKeepsScoreAndStoresRoot(t *testing.T) {
	state := midgamePosition(t)
	plain := NewSearcher(testSearchConfig(2)).Analyze(context.Background(), state, PlayerBlack)

	config := testSearchConfig(2)
	config.TT = NewTranspositionTable(1<<12, 2)
	cached := NewSearcher(config).Analyze(context.Background(), state, PlayerBlack)

	if plain.Score != cached.Score {
		t.Fatalf("tt changed the root score: %f vs %f", plain.Score, cached.Score)
	}
	entry, ok := config.TT.Probe(positionKey(state.Hash(), state.ToMove(), state.BoardSize()))
	if !ok {
		t.Fatalf("expected root entry in tt")
	}
	if entry.Depth != 2 || entry.BestMove != cached.Move {
		t.Fatalf("unexpected root entry depth=%d best=%s, search chose %s", entry.Depth, entry.BestMove, cached.Move)
	}
	if cached.Stats.TTProbes.Load() == 0 {
		t.Fatalf("expected tt probes during ordering")
	}
}

func TestSearchWithTinyBudgetReturnsLegalMove(t *testing.T) {
	config := testSearchConfig(6)
	config.HasDeadline = true
	config.TimeBudget = time.Nanosecond
	state := mustApply(t, NewGameState(9), Play(4, 4), Play(3, 4))

	start := time.Now()
	move := NewSearcher(config).Search(context.Background(), state, state.ToMove())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("search overran its budget by %s", elapsed)
	}
	if ok, reason := state.IsLegal(move); !ok {
		t.Fatalf("search returned illegal move %s: %s", move, reason)
	}
}

func TestSearchWithZeroBudgetStopsAtOnce(t *testing.T) {
	config := testSearchConfig(8)
	config.HasDeadline = true
	config.TimeBudget = 0
	state := mustApply(t, NewGameState(9), Play(4, 4), Play(3, 3))

	start := time.Now()
	result := NewSearcher(config).Analyze(context.Background(), state, state.ToMove())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("zero budget search ran for %s", elapsed)
	}
	if result.Move != Pass() || result.Depth != 0 || !result.Stats.TimedOut {
		t.Fatalf("expected an immediate pass, got %s depth %d", result.Move, result.Depth)
	}
}

func TestSearchHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := NewSearcher(testSearchConfig(4)).Analyze(ctx, NewGameState(9), PlayerBlack)
	if result.Move != Pass() || result.Depth != 0 {
		t.Fatalf("expected pass without a completed depth, got %s depth %d", result.Move, result.Depth)
	}
}

func TestSearchOnTerminalStateReturnsPass(t *testing.T) {
	state := mustApply(t, NewGameState(5), Play(2, 2), Pass(), Pass())
	if move := NewSearcher(testSearchConfig(2)).Search(context.Background(), state, state.ToMove()); move != Pass() {
		t.Fatalf("expected pass on terminal state, got %s", move)
	}
}

func TestSearchWithoutDeepeningRunsMaxDepthOnce(t *testing.T) {
	config := testSearchConfig(2)
	config.IterativeDeepening = false
	var depths []int
	config.OnDepth = func(report DepthReport) {
		depths = append(depths, report.Depth)
	}
	result := NewSearcher(config).Analyze(context.Background(), midgamePosition(t), PlayerBlack)
	if len(depths) != 1 || depths[0] != 2 || result.Depth != 2 {
		t.Fatalf("expected a single depth-2 pass, got %v", depths)
	}
}

func TestIterativeDeepeningReportsEachDepth(t *testing.T) {
	config := testSearchConfig(2)
	var reports []DepthReport
	config.OnDepth = func(report DepthReport) {
		reports = append(reports, report)
	}
	result := NewSearcher(config).Analyze(context.Background(), midgamePosition(t), PlayerBlack)
	if len(reports) != 2 || reports[0].Depth != 1 || reports[1].Depth != 2 {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if reports[1].Move != result.Move || reports[1].Player != PlayerBlack {
		t.Fatalf("last report %+v does not match result %s", reports[1], result.Move)
	}
	if result.Stats.CompletedDepths != 2 || len(result.Stats.DepthDurations) != 2 {
		t.Fatalf("unexpected stats %d %v", result.Stats.CompletedDepths, result.Stats.DepthDurations)
	}
}

func TestSearchAvoidsResigning(t *testing.T) {
	// Black has no legal play, so the choice is between pass and resign.
	state := GameStateFromBoard(mustParseBoard(t, `
		.O.O.
		OOOOO
		O.O.O
		OOOOO
		.O.O.
	`), PlayerBlack)
	for _, move := range state.LegalMoves() {
		if move.IsPlay() {
			t.Fatalf("fixture should leave black without plays, found %s", move)
		}
	}
	if move := NewSearcher(testSearchConfig(2)).Search(context.Background(), state, PlayerBlack); move != Pass() {
		t.Fatalf("expected pass, got %s", move)
	}
}
