package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type GameStatus int

const (
	StatusNotStarted GameStatus = iota
	StatusRunning
	StatusBlackWon
	StatusWhiteWon
	StatusEnded
)

func (s GameStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusBlackWon:
		return "black_won"
	case StatusWhiteWon:
		return "white_won"
	case StatusEnded:
		return "ended"
	default:
		return "running"
	}
}

// Game drives one match: it owns the current GameState, asks the player on
// turn for a move on every tick and records what was played.
type Game struct {
	id          uuid.UUID
	settings    GameSettings
	state       GameState
	status      GameStatus
	history     MoveHistory
	blackPlayer IPlayer
	whitePlayer IPlayer
	turnStart   time.Time
	lastMessage string
	onProgress  func(gameID string, report DepthReport)
}

func NewGame(settings GameSettings) Game {
	g := Game{}
	g.Reset(settings)
	return g
}

func (g *Game) Reset(settings GameSettings) {
	g.stopThinking()
	if settings.BoardSize == 0 {
		settings.BoardSize = GetConfig().BoardSize
	}
	g.settings = settings
	g.id = uuid.New()
	g.state = NewGameState(settings.BoardSize)
	g.status = StatusNotStarted
	g.history.Clear()
	g.lastMessage = ""
	g.createPlayers()
	g.turnStart = time.Now()
	g.logMatchup()
}

func (g *Game) Start() {
	if g.status == StatusNotStarted {
		g.status = StatusRunning
		g.turnStart = time.Now()
	}
}

// Stop ends the game without a winner.
func (g *Game) Stop() {
	g.stopThinking()
	if g.status == StatusRunning {
		g.status = StatusEnded
	}
}

func (g *Game) ID() uuid.UUID {
	return g.id
}

func (g *Game) Settings() GameSettings {
	return g.settings
}

func (g *Game) State() GameState {
	return g.state
}

func (g *Game) Status() GameStatus {
	return g.status
}

func (g *Game) History() MoveHistory {
	return g.history
}

func (g *Game) LastMessage() string {
	return g.lastMessage
}

func (g *Game) TurnStartedAtMs() int64 {
	if g.turnStart.IsZero() {
		return 0
	}
	return g.turnStart.UnixMilli()
}

// TryApplyMove plays move for the side to move. The reason is empty when the
// move was applied.
func (g *Game) TryApplyMove(move Move) (bool, string) {
	return g.applyMove(move, false, 0)
}

func (g *Game) applyMove(move Move, isAi bool, depth int) (bool, string) {
	if g.status != StatusRunning {
		return false, "game not running"
	}
	if ok, reason := g.state.IsLegal(move); !ok {
		g.lastMessage = "Illegal move: " + reason
		return false, g.lastMessage
	}
	player := g.state.ToMove()
	next, err := g.state.ApplyMove(move)
	if err != nil {
		// IsLegal and ApplyMove share the rules, so this is a bug.
		log.Error().Str("component", "game").Err(err).Msg("legal move rejected")
		g.lastMessage = errors.Cause(err).Error()
		return false, g.lastMessage
	}
	elapsedMs := float64(time.Since(g.turnStart).Milliseconds())
	g.state = next
	g.lastMessage = ""
	entry := HistoryEntry{
		Move:              move,
		Player:            player,
		CapturedPositions: next.LastCaptures(),
		ElapsedMs:         elapsedMs,
		IsAi:              isAi,
		Depth:             depth,
	}
	g.history.Push(entry)
	g.logMovePlayed(entry)
	g.updateStatus()
	g.turnStart = time.Now()
	return true, ""
}

func (g *Game) updateStatus() {
	if !g.state.IsTerminal() {
		return
	}
	if resigned, ok := g.state.Resigned(); ok {
		if resigned == PlayerBlack {
			g.status = StatusWhiteWon
		} else {
			g.status = StatusBlackWon
		}
		g.logWin(otherPlayer(resigned), "resign")
		return
	}
	g.status = StatusEnded
	log.Info().Str("component", "game").Str("game_id", g.id.String()).Msg("game ended by two passes")
}

// Tick advances the game by at most one move. It reports whether a move was
// applied.
func (g *Game) Tick() bool {
	if g.status != StatusRunning {
		g.stopThinking()
		return false
	}
	player := g.currentPlayer()
	if player == nil {
		return false
	}
	if player.IsHuman() {
		move, ok := player.ChooseMove(g.state)
		if !ok {
			return false
		}
		applied, _ := g.TryApplyMove(move)
		return applied
	}
	ai, ok := player.(*AIPlayer)
	if !ok {
		move, ok := player.ChooseMove(g.state)
		if !ok {
			return false
		}
		applied, _ := g.applyMove(move, true, 0)
		return applied
	}
	if ai.HasMoveReady() {
		result := ai.TakeMove()
		applied, reason := g.applyMove(result.Move, true, result.Depth)
		if !applied {
			log.Warn().Str("component", "game").Str("move", result.Move.String()).Str("reason", reason).Msg("ai move rejected")
		}
		return applied
	}
	if !ai.IsThinking() {
		ai.StartThinking(g.state)
	}
	return false
}

func (g *Game) SubmitHumanMove(move Move) bool {
	player := g.currentPlayer()
	human, ok := player.(*HumanPlayer)
	if !ok {
		return false
	}
	human.SetPendingMove(move)
	return true
}

func (g *Game) CurrentPlayerIsHuman() bool {
	player := g.currentPlayer()
	return player != nil && player.IsHuman()
}

func (g *Game) AiThinking() bool {
	ai, ok := g.currentPlayer().(*AIPlayer)
	return ok && ai.IsThinking()
}

// SetProgressSink forwards search progress of both AI players, tagged with
// the game id.
func (g *Game) SetProgressSink(sink func(gameID string, report DepthReport)) {
	g.stopThinking()
	g.onProgress = sink
	for _, player := range []IPlayer{g.blackPlayer, g.whitePlayer} {
		if ai, ok := player.(*AIPlayer); ok {
			ai.SetProgressSink(g.progressFor())
		}
	}
}

func (g *Game) progressFor() func(DepthReport) {
	sink := g.onProgress
	if sink == nil {
		return nil
	}
	id := g.id.String()
	return func(report DepthReport) {
		sink(id, report)
	}
}

// CapturedBy is the number of stones player has captured so far.
func (g *Game) CapturedBy(player PlayerColor) int {
	return g.history.CapturedBy(player)
}

func (g *Game) currentPlayer() IPlayer {
	return g.playerForColor(g.state.ToMove())
}

func (g *Game) playerForColor(color PlayerColor) IPlayer {
	if color == PlayerBlack {
		return g.blackPlayer
	}
	return g.whitePlayer
}

func (g *Game) createPlayers() {
	g.blackPlayer = g.newPlayer(g.settings.BlackType, g.settings.BlackHeuristics)
	g.whitePlayer = g.newPlayer(g.settings.WhiteType, g.settings.WhiteHeuristics)
}

func (g *Game) newPlayer(kind PlayerType, heuristics *HeuristicConfig) IPlayer {
	if kind == PlayerHuman {
		return NewHumanPlayer()
	}
	ai := NewAIPlayer()
	ai.SetHeuristicsOverride(heuristics)
	ai.SetProgressSink(g.progressFor())
	return ai
}

// ResetForConfigChange drops searches started with the previous config.
func (g *Game) ResetForConfigChange() {
	g.stopThinking()
}

func (g *Game) stopThinking() {
	for _, player := range []IPlayer{g.blackPlayer, g.whitePlayer} {
		if ai, ok := player.(*AIPlayer); ok {
			ai.StopThinking()
		}
	}
}

func (g *Game) logMatchup() {
	log.Info().
		Str("component", "game").
		Str("game_id", g.id.String()).
		Int("board_size", g.settings.BoardSize).
		Str("black", g.settings.BlackType.String()).
		Str("white", g.settings.WhiteType.String()).
		Msg("new game")
}

func (g *Game) logMovePlayed(entry HistoryEntry) {
	log.Debug().
		Str("component", "game").
		Str("game_id", g.id.String()).
		Int("ply", g.history.Size()).
		Str("player", entry.Player.String()).
		Str("move", entry.Move.String()).
		Int("captured", len(entry.CapturedPositions)).
		Float64("elapsed_ms", entry.ElapsedMs).
		Bool("ai", entry.IsAi).
		Int("depth", entry.Depth).
		Msg("move played")
}

func (g *Game) logWin(player PlayerColor, reason string) {
	log.Info().
		Str("component", "game").
		Str("game_id", g.id.String()).
		Str("winner", player.String()).
		Str("reason", reason).
		Msg("game won")
}
