package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// GameController serialises access to the single game served by the
// backend.
type GameController struct {
	mu   sync.Mutex
	game Game
}

func NewGameController(settings GameSettings) *GameController {
	return &GameController{game: NewGame(settings)}
}

// SetProgressPublisher forwards every completed search depth of the AI
// players to publish.
func (gc *GameController) SetProgressPublisher(publish func(gameID string, report DepthReport)) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.SetProgressSink(publish)
}

func (gc *GameController) ApplyHumanMove(move Move) (bool, string) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if !gc.game.CurrentPlayerIsHuman() {
		return false, "not human turn"
	}
	return gc.game.TryApplyMove(move)
}

func (gc *GameController) Tick() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Tick()
}

func (gc *GameController) State() GameState {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.State()
}

func (gc *GameController) Status() GameStatus {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Status()
}

func (gc *GameController) GameID() uuid.UUID {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.ID()
}

func (gc *GameController) Settings() GameSettings {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Settings()
}

func (gc *GameController) History() MoveHistory {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.History()
}

func (gc *GameController) LastMessage() string {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.LastMessage()
}

func (gc *GameController) LatestHistoryEntry() (HistoryEntry, bool) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.History().Last()
}

func (gc *GameController) AiThinking() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.AiThinking()
}

func (gc *GameController) Reset(settings GameSettings) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Reset(settings)
}

func (gc *GameController) StartGame(settings GameSettings) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Reset(settings)
	gc.game.Start()
}

func (gc *GameController) StopGame() {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Stop()
}

// UpdateSettings swaps the player setup. The current position survives
// unless reset is set or the board size changed.
func (gc *GameController) UpdateSettings(update GameSettings, reset bool) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if reset || update.BoardSize != gc.game.settings.BoardSize {
		gc.game.Reset(update)
		return
	}
	gc.game.stopThinking()
	gc.game.settings = update
	gc.game.createPlayers()
}

func (gc *GameController) ResetForConfigChange() {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.ResetForConfigChange()
}

// Analyze runs a one-off search for the side to move with cfg. The lock is
// released while searching so the game keeps ticking.
func (gc *GameController) Analyze(ctx context.Context, cfg Config) (SearchResult, GameState) {
	state := gc.State()
	searcher := NewSearcher(SearchConfigFromConfig(cfg, SharedTT(cfg)))
	return searcher.Analyze(ctx, state, state.ToMove()), state
}

// gameSnapshot is a consistent view of the game taken under one lock.
type gameSnapshot struct {
	ID              uuid.UUID
	Settings        GameSettings
	State           GameState
	Status          GameStatus
	History         MoveHistory
	LastMessage     string
	AiThinking      bool
	TurnStartedAtMs int64
}

func (gc *GameController) Snapshot() gameSnapshot {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gameSnapshot{
		ID:              gc.game.ID(),
		Settings:        gc.game.Settings(),
		State:           gc.game.State(),
		Status:          gc.game.Status(),
		History:         gc.game.History(),
		LastMessage:     gc.game.LastMessage(),
		AiThinking:      gc.game.AiThinking(),
		TurnStartedAtMs: gc.game.TurnStartedAtMs(),
	}
}
