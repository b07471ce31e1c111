package main

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	orderCaptureWeight  = 1000
	orderAtariWeight    = 50
	orderProximityRange = 2
)

// SearchConfig is everything a Searcher needs; it never consults the global
// config store.
type SearchConfig struct {
	MaxDepth           int
	HasDeadline        bool
	TimeBudget         time.Duration // with HasDeadline, <= 0 is already expired
	UseAlphaBeta       bool
	IterativeDeepening bool
	MoveOrdering       bool
	RootWorkers        int
	Weights            HeuristicConfig
	TT                 *TranspositionTable
	LogStats           bool
	OnDepth            func(DepthReport)
}

func SearchConfigFromConfig(cfg Config, tt *TranspositionTable) SearchConfig {
	cfg = cfg.Validate()
	return SearchConfig{
		MaxDepth:           cfg.AiDepth,
		HasDeadline:        true,
		TimeBudget:         cfg.TimeBudget(),
		UseAlphaBeta:       cfg.AiUseAlphaBeta,
		IterativeDeepening: cfg.AiIterativeDeepening,
		MoveOrdering:       cfg.AiMoveOrdering,
		RootWorkers:        cfg.AiRootWorkers,
		Weights:            cfg.Heuristics,
		TT:                 tt,
		LogStats:           cfg.AiLogSearchStats,
	}
}

// DepthReport is published after every completed deepening iteration.
type DepthReport struct {
	Player  PlayerColor
	Depth   int
	Move    Move
	Score   float64
	Elapsed time.Duration
}

type SearchStats struct {
	Start           time.Time
	Nodes           atomic.Int64
	Leaves          atomic.Int64
	Cutoffs         atomic.Int64
	TTProbes        atomic.Int64
	TTHits          atomic.Int64
	CompletedDepths int
	DepthDurations  []time.Duration
	TimedOut        bool
}

type SearchResult struct {
	Move  Move
	Score float64
	Depth int
	Stats *SearchStats
}

type Searcher struct {
	config    SearchConfig
	evaluator Evaluator
}

func NewSearcher(config SearchConfig) *Searcher {
	if config.MaxDepth < 1 {
		config.MaxDepth = 1
	}
	if config.RootWorkers < 1 {
		config.RootWorkers = 1
	}
	if config.Weights == (HeuristicConfig{}) {
		config.Weights = DefaultHeuristics()
	}
	return &Searcher{config: config, evaluator: NewEvaluator(config.Weights)}
}

func (s *Searcher) Config() SearchConfig {
	return s.config
}

func (s *Searcher) Evaluator() Evaluator {
	return s.evaluator
}

// Search returns the move chosen for player, or Pass when nothing was found.
func (s *Searcher) Search(ctx context.Context, state GameState, player PlayerColor) Move {
	return s.Analyze(ctx, state, player).Move
}

type searchContext struct {
	ctx         context.Context
	start       time.Time
	deadline    time.Time
	hasDeadline bool
	player      PlayerColor
	stats       *SearchStats
}

type rootResult struct {
	move  Move
	score float64
	found bool
}

// Analyze runs the full search and reports the chosen move together with
// its score and the deepest completed depth.
func (s *Searcher) Analyze(ctx context.Context, state GameState, player PlayerColor) SearchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	stats := &SearchStats{Start: time.Now()}
	sc := &searchContext{ctx: ctx, start: stats.Start, player: player, stats: stats}
	if s.config.HasDeadline {
		sc.deadline = sc.start.Add(max(s.config.TimeBudget, 0))
		sc.hasDeadline = true
	}
	if s.config.TT != nil {
		s.config.TT.NextGeneration()
	}
	result := SearchResult{Move: Pass(), Stats: stats}
	if state.IsTerminal() {
		return result
	}

	firstDepth := 1
	if !s.config.IterativeDeepening {
		firstDepth = s.config.MaxDepth
	}
	var partial rootResult
	for depth := firstDepth; depth <= s.config.MaxDepth; depth++ {
		if s.timedOut(sc) {
			break
		}
		depthStart := time.Now()
		root, completed := s.searchRoot(sc, state, depth)
		if !completed {
			partial = root
			break
		}
		if root.found {
			result.Move = root.move
			result.Score = root.score
			result.Depth = depth
		}
		elapsed := time.Since(depthStart)
		stats.CompletedDepths = depth
		stats.DepthDurations = append(stats.DepthDurations, elapsed)
		if s.config.OnDepth != nil && root.found {
			s.config.OnDepth(DepthReport{Player: player, Depth: depth, Move: root.move, Score: root.score, Elapsed: elapsed})
		}
	}
	if result.Depth == 0 && partial.found {
		result.Move = partial.move
		result.Score = partial.score
	}
	stats.TimedOut = s.timedOut(sc)
	if s.config.LogStats {
		logSearchStats("search", stats, s.config)
	}
	return result
}

// timedOut is polled at every node. Cancellation is cooperative only.
func (s *Searcher) timedOut(sc *searchContext) bool {
	if sc.hasDeadline && !time.Now().Before(sc.deadline) {
		return true
	}
	return sc.ctx.Err() != nil
}

func (s *Searcher) searchRoot(sc *searchContext, state GameState, depth int) (rootResult, bool) {
	moves := s.orderedMoves(sc, state)
	if s.config.RootWorkers > 1 && len(moves) > 1 {
		return s.searchRootParallel(sc, state, depth, moves)
	}
	alpha := math.Inf(-1)
	beta := math.Inf(1)
	best := rootResult{score: math.Inf(-1)}
	for _, move := range moves {
		if s.timedOut(sc) {
			return best, false
		}
		child, err := state.ApplyMove(move)
		if err != nil {
			log.Error().Str("component", "ai").Err(err).Msg("root move rejected")
			continue
		}
		value := s.alphaBeta(sc, child, depth-1, alpha, beta)
		if !best.found || value > best.score {
			best = rootResult{move: move, score: value, found: true}
		}
		alpha = math.Max(alpha, best.score)
	}
	if s.timedOut(sc) {
		return best, false
	}
	s.storeTT(state, depth, best.score, TTExact, best)
	return best, true
}

// searchRootParallel searches each root move on its own goroutine with a
// full window. Every branch owns the child state it builds, so no board is
// shared. Ties resolve to the earlier move, matching the sequential order.
func (s *Searcher) searchRootParallel(sc *searchContext, state GameState, depth int, moves []Move) (rootResult, bool) {
	values := make([]float64, len(moves))
	done := make([]bool, len(moves))
	var g errgroup.Group
	g.SetLimit(s.config.RootWorkers)
	for i, move := range moves {
		i, move := i, move
		g.Go(func() error {
			if s.timedOut(sc) {
				return nil
			}
			child, err := state.ApplyMove(move)
			if err != nil {
				return err
			}
			values[i] = s.alphaBeta(sc, child, depth-1, math.Inf(-1), math.Inf(1))
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		log.Error().Str("component", "ai").Err(err).Msg("parallel root search failed")
	}
	best := rootResult{score: math.Inf(-1)}
	complete := err == nil
	for i, move := range moves {
		if !done[i] {
			complete = false
			continue
		}
		if !best.found || values[i] > best.score {
			best = rootResult{move: move, score: values[i], found: true}
		}
	}
	if !complete || s.timedOut(sc) {
		return best, false
	}
	s.storeTT(state, depth, best.score, TTExact, best)
	return best, true
}

func (s *Searcher) alphaBeta(sc *searchContext, state GameState, depth int, alpha, beta float64) float64 {
	sc.stats.Nodes.Add(1)
	if s.timedOut(sc) || depth == 0 || state.IsTerminal() {
		sc.stats.Leaves.Add(1)
		return s.evaluator.Score(state, sc.player)
	}
	alphaOrig, betaOrig := alpha, beta
	maximizing := state.ToMove() == sc.player
	best := rootResult{}
	value := math.Inf(1)
	if maximizing {
		value = math.Inf(-1)
	}
	for _, move := range s.orderedMoves(sc, state) {
		if best.found && s.timedOut(sc) {
			break
		}
		child, err := state.ApplyMove(move)
		if err != nil {
			continue
		}
		v := s.alphaBeta(sc, child, depth-1, alpha, beta)
		if maximizing {
			if !best.found || v > value {
				value = v
				best = rootResult{move: move, score: v, found: true}
			}
			alpha = math.Max(alpha, value)
			if s.config.UseAlphaBeta && alpha >= beta {
				sc.stats.Cutoffs.Add(1)
				break
			}
			continue
		}
		if !best.found || v < value {
			value = v
			best = rootResult{move: move, score: v, found: true}
		}
		beta = math.Min(beta, value)
		if s.config.UseAlphaBeta && beta <= alpha {
			sc.stats.Cutoffs.Add(1)
			break
		}
	}
	flag := TTExact
	if value <= alphaOrig {
		flag = TTUpper
	} else if value >= betaOrig {
		flag = TTLower
	}
	s.storeTT(state, depth, value, flag, best)
	return value
}

func (s *Searcher) storeTT(state GameState, depth int, score float64, flag TTFlag, best rootResult) {
	if s.config.TT == nil || !best.found || !best.move.IsPlay() {
		return
	}
	key := positionKey(state.Hash(), state.ToMove(), state.BoardSize())
	s.config.TT.Store(key, depth, score, flag, best.move)
}

type scoredMove struct {
	move  Move
	score int
}

// orderedMoves lists the legal plays, best-first when ordering is enabled,
// followed by Pass and Resign. A remembered best move from the TT goes
// first. Ordering changes only the pruning yield, never the result.
func (s *Searcher) orderedMoves(sc *searchContext, state GameState) []Move {
	plays := state.legalPlays()
	if s.config.MoveOrdering && len(plays) > 1 {
		scored := make([]scoredMove, len(plays))
		for i, move := range plays {
			scored[i] = scoredMove{move: move, score: MoveOrderScore(state, move)}
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].score > scored[j].score
		})
		for i := range scored {
			plays[i] = scored[i].move
		}
		s.promoteTTMove(sc, state, plays)
	}
	return append(plays, Pass(), Resign())
}

func (s *Searcher) promoteTTMove(sc *searchContext, state GameState, plays []Move) {
	if s.config.TT == nil {
		return
	}
	sc.stats.TTProbes.Add(1)
	entry, ok := s.config.TT.Probe(positionKey(state.Hash(), state.ToMove(), state.BoardSize()))
	if !ok {
		return
	}
	for i, move := range plays {
		if move != entry.BestMove {
			continue
		}
		sc.stats.TTHits.Add(1)
		copy(plays[1:i+1], plays[:i])
		plays[0] = move
		return
	}
}

// MoveOrderScore ranks a legal play for the side to move: stones captured,
// then opponent groups left in atari, then nearby stones.
func MoveOrderScore(state GameState, move Move) int {
	board := state.board
	next := board.Clone()
	captured := NewRules().place(&next, state.toMove, move.X, move.Y)
	atari := countGroupsInAtari(next, CellFromPlayer(otherPlayer(state.toMove)))
	return orderCaptureWeight*len(captured) + orderAtariWeight*atari + proximity(board, move.X, move.Y)
}

// proximity counts occupied points in the box of radius orderProximityRange
// around (x, y).
func proximity(board Board, x, y int) int {
	count := 0
	for dy := -orderProximityRange; dy <= orderProximityRange; dy++ {
		for dx := -orderProximityRange; dx <= orderProximityRange; dx++ {
			nx, ny := x+dx, y+dy
			if board.InBounds(nx, ny) && board.At(nx, ny) != CellEmpty {
				count++
			}
		}
	}
	return count
}

func logSearchStats(tag string, stats *SearchStats, config SearchConfig) {
	if stats == nil {
		return
	}
	elapsed := time.Since(stats.Start)
	nodes := stats.Nodes.Load()
	nps := 0.0
	if elapsed > 0 {
		nps = float64(nodes) / elapsed.Seconds()
	}
	ttHitRate := 0.0
	if probes := stats.TTProbes.Load(); probes > 0 {
		ttHitRate = float64(stats.TTHits.Load()) * 100.0 / float64(probes)
	}
	ttSize := 0
	if config.TT != nil {
		ttSize = config.TT.Count()
	}
	depthTimes := make([]int64, 0, len(stats.DepthDurations))
	for _, d := range stats.DepthDurations {
		depthTimes = append(depthTimes, d.Milliseconds())
	}
	log.Info().
		Str("component", "ai").
		Str("tag", tag).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Int("depth", config.MaxDepth).
		Int("completed", stats.CompletedDepths).
		Int64("nodes", nodes).
		Int64("leaves", stats.Leaves.Load()).
		Float64("nps", nps).
		Int64("cutoffs", stats.Cutoffs.Load()).
		Float64("tt_hit_rate", ttHitRate).
		Int("tt_size", ttSize).
		Ints64("depth_times_ms", depthTimes).
		Bool("timed_out", stats.TimedOut).
		Msg("search-stats")
}
