package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// AIPlayer chooses moves with a Searcher built from the config snapshot
// taken when the search starts. It can search synchronously through
// ChooseMove or on a background goroutine driven by the game tick.
type AIPlayer struct {
	moveMutex  sync.Mutex
	workerDone chan struct{}
	cancel     context.CancelFunc
	thinking   atomic.Bool
	moveReady  atomic.Bool
	readyMove  SearchResult
	heuristics *HeuristicConfig
	onDepth    func(DepthReport)
}

func NewAIPlayer() *AIPlayer {
	return &AIPlayer{}
}

func (a *AIPlayer) IsHuman() bool {
	return false
}

// SetHeuristicsOverride replaces the config weights for this player only.
// nil restores the config weights.
func (a *AIPlayer) SetHeuristicsOverride(weights *HeuristicConfig) {
	if weights == nil {
		a.heuristics = nil
		return
	}
	copied := *weights
	a.heuristics = &copied
}

// SetProgressSink receives a report after every completed search depth.
func (a *AIPlayer) SetProgressSink(sink func(DepthReport)) {
	a.onDepth = sink
}

func (a *AIPlayer) searcher() *Searcher {
	config := GetConfig()
	searchConfig := SearchConfigFromConfig(config, SharedTT(config))
	if a.heuristics != nil {
		searchConfig.Weights = *a.heuristics
	}
	if config.AiSearchProgress {
		searchConfig.OnDepth = a.onDepth
	}
	return NewSearcher(searchConfig)
}

func (a *AIPlayer) ChooseMove(state GameState) (Move, bool) {
	result := a.Analyze(context.Background(), state)
	return result.Move, true
}

// Analyze searches state for the side to move and returns the full result.
func (a *AIPlayer) Analyze(ctx context.Context, state GameState) SearchResult {
	return a.searcher().Analyze(ctx, state, state.ToMove())
}

func (a *AIPlayer) StartThinking(state GameState) {
	if a.thinking.Load() {
		return
	}
	if a.workerDone != nil {
		<-a.workerDone
	}
	a.thinking.Store(true)
	a.moveReady.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	done := make(chan struct{})
	a.workerDone = done
	searcher := a.searcher()
	go func() {
		defer close(done)
		defer cancel()
		result := searcher.Analyze(ctx, state, state.ToMove())
		if ctx.Err() != nil {
			log.Debug().Str("component", "ai").Msg("thinking cancelled")
			a.thinking.Store(false)
			return
		}
		a.moveMutex.Lock()
		a.readyMove = result
		a.moveMutex.Unlock()
		a.moveReady.Store(true)
		a.thinking.Store(false)
	}()
}

func (a *AIPlayer) IsThinking() bool {
	return a.thinking.Load()
}

func (a *AIPlayer) HasMoveReady() bool {
	return a.moveReady.Load()
}

func (a *AIPlayer) TakeMove() SearchResult {
	a.moveMutex.Lock()
	defer a.moveMutex.Unlock()
	a.moveReady.Store(false)
	return a.readyMove
}

// StopThinking cancels a running search, waits for its goroutine and drops
// any result it produced.
func (a *AIPlayer) StopThinking() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.workerDone != nil {
		<-a.workerDone
		a.workerDone = nil
	}
	a.cancel = nil
	a.thinking.Store(false)
	a.moveReady.Store(false)
}
