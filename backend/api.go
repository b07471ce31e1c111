package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"unsafe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type StatusResponse struct {
	GameID          string            `json:"game_id"`
	Settings        GameSettingsDTO   `json:"settings"`
	Config          Config            `json:"config"`
	Status          string            `json:"status"`
	Terminal        bool              `json:"terminal"`
	NextPlayer      int               `json:"next_player"`
	Winner          int               `json:"winner"`
	BoardSize       int               `json:"board_size"`
	Board           [][]int           `json:"board"`
	MoveCount       int               `json:"move_count"`
	History         []historyEntryDTO `json:"history"`
	CapturedBlack   int               `json:"captured_black"`
	CapturedWhite   int               `json:"captured_white"`
	StonesBlack     int               `json:"stones_black"`
	StonesWhite     int               `json:"stones_white"`
	LastMessage     string            `json:"last_message,omitempty"`
	AiThinking      bool              `json:"ai_thinking"`
	TurnStartedAtMs int64             `json:"turn_started_at_ms"`
}

type GameSettingsDTO struct {
	Mode            string           `json:"mode"`
	BoardSize       int              `json:"board_size,omitempty"`
	BlackHeuristics *HeuristicConfig `json:"black_heuristics,omitempty"`
	WhiteHeuristics *HeuristicConfig `json:"white_heuristics,omitempty"`
}

type apiMove struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type historyEntryDTO struct {
	Move              Move         `json:"move"`
	Player            int          `json:"player"`
	ElapsedMs         float64      `json:"elapsed_ms"`
	IsAi              bool         `json:"is_ai"`
	CapturedCount     int          `json:"captured_count"`
	CapturedPositions []Move       `json:"captured_positions"`
	Changes           []cellChange `json:"changes"`
	Depth             int          `json:"depth"`
}

type historyPayload struct {
	History []historyEntryDTO `json:"history"`
}

type cellChange struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Value int `json:"value"`
}

type settingsPayload struct {
	Settings GameSettingsDTO `json:"settings"`
	Config   Config          `json:"config"`
}

type legalMovesResponse struct {
	NextPlayer int    `json:"next_player"`
	Moves      []Move `json:"moves"`
}

type analyzeRequest struct {
	Depth         int      `json:"depth"`
	TimeBudgetSec *float64 `json:"time_budget_s"`
}

type analyzeResponse struct {
	Move      Move    `json:"move"`
	Score     float64 `json:"score"`
	Depth     int     `json:"depth"`
	Player    int     `json:"player"`
	Nodes     int64   `json:"nodes"`
	Cutoffs   int64   `json:"cutoffs"`
	TTHits    int64   `json:"tt_hits"`
	ElapsedMs int64   `json:"elapsed_ms"`
	TimedOut  bool    `json:"timed_out"`
}

type ttCacheStatusResponse struct {
	Enabled       bool    `json:"enabled"`
	Count         int     `json:"count"`
	Capacity      int     `json:"capacity"`
	Usage         float64 `json:"usage"`
	Full          bool    `json:"full"`
	Generation    uint32  `json:"generation"`
	EntryBytes    uint64  `json:"entry_bytes"`
	UsedBytes     uint64  `json:"used_bytes"`
	CapacityBytes uint64  `json:"capacity_bytes"`
}

type ttCacheEntryDTO struct {
	Hash        string  `json:"hash"`
	Hits        uint32  `json:"hits"`
	Depth       int     `json:"depth"`
	Score       float64 `json:"score"`
	Flag        string  `json:"flag"`
	BestMove    Move    `json:"best_move"`
	GenWritten  uint32  `json:"gen_written"`
	GenLastUsed uint32  `json:"gen_last_used"`
}

type ttCacheEntriesResponse struct {
	Items  []ttCacheEntryDTO `json:"items"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Total  int               `json:"total"`
}

// newRouter wires the HTTP API and websocket endpoints around controller.
func newRouter(controller *GameController, hub *Hub, searchHub *SearchHub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controllerStatus(controller))
	})

	r.Post("/api/start", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Settings GameSettingsDTO `json:"settings"`
		}
		if err := decodeOptionalJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		settings, err := settingsFromDTO(payload.Settings, controller.Settings())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		controller.StartGame(settings)
		status := controllerStatus(controller)
		hub.BroadcastReset(status)
		writeJSON(w, http.StatusOK, status)
	})

	r.Post("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		controller.StopGame()
		status := controllerStatus(controller)
		hub.BroadcastStatus(status)
		writeJSON(w, http.StatusOK, status)
	})

	r.Post("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Settings *GameSettingsDTO `json:"settings"`
			Config   *Config          `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if payload.Config != nil {
			configStore.Update(*payload.Config)
			controller.ResetForConfigChange()
			applyLogLevel(GetConfig())
		}
		if payload.Settings != nil {
			settings, err := settingsFromDTO(*payload.Settings, controller.Settings())
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			controller.UpdateSettings(settings, false)
		}
		hub.BroadcastSettings(settingsPayload{
			Settings: settingsToDTO(controller.Settings()),
			Config:   GetConfig(),
		})
		writeJSON(w, http.StatusOK, controllerStatus(controller))
	})

	r.Post("/api/move", func(w http.ResponseWriter, r *http.Request) {
		var payload apiMove
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		move, err := moveFromAPI(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if size := controller.State().BoardSize(); !move.IsValid(size) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("move %s outside %dx%d board", move, size, size))
			return
		}
		applied, reason := controller.ApplyHumanMove(move)
		if !applied {
			writeError(w, http.StatusBadRequest, reason)
			return
		}
		if entry, ok := controller.LatestHistoryEntry(); ok {
			hub.BroadcastHistory(historyPayload{History: []historyEntryDTO{historyEntryToDTO(entry)}})
		}
		status := controllerStatus(controller)
		hub.BroadcastStatus(status)
		writeJSON(w, http.StatusOK, status)
	})

	r.Get("/api/legal", func(w http.ResponseWriter, r *http.Request) {
		state := controller.State()
		writeJSON(w, http.StatusOK, legalMovesResponse{
			NextPlayer: playerToInt(state.ToMove()),
			Moves:      state.LegalMoves(),
		})
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var payload analyzeRequest
		if err := decodeOptionalJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		cfg := GetConfig()
		if payload.Depth > 0 {
			cfg.AiDepth = payload.Depth
		}
		if payload.TimeBudgetSec != nil {
			cfg.AiTimeBudgetSec = *payload.TimeBudgetSec
		}
		result, state := controller.Analyze(r.Context(), cfg.Validate())
		writeJSON(w, http.StatusOK, analyzeResponseFrom(result, state))
	})

	r.Get("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ttCacheStatus())
	})
	r.Delete("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		FlushSharedTT()
		log.Info().Str("component", "cache").Msg("tt flushed")
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	})
	r.Get("/api/cache/tt/entries", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		if offset < 0 {
			offset = 0
		}
		writeJSON(w, http.StatusOK, ttCacheEntries(offset, limit))
	})
	r.Delete("/api/cache/tt/entries/{hash}", func(w http.ResponseWriter, r *http.Request) {
		hash, err := parseTTKey(chi.URLParam(r, "hash"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hash")
			return
		}
		deleted := false
		if tt := SharedTT(GetConfig()); tt != nil {
			deleted = tt.DeleteByKey(hash)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted": deleted,
			"hash":    fmt.Sprintf("0x%016x", hash),
		})
	})

	r.Get("/ws/", func(w http.ResponseWriter, r *http.Request) {
		serveWS(hub, controller, w, r)
	})
	r.Get("/ws/search", func(w http.ResponseWriter, r *http.Request) {
		serveSearchWS(searchHub, w, r)
	})
	return r
}

func serveWS(hub *Hub, controller *GameController, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "backend").Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)
	client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controllerStatus(controller))})

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			log.Debug().Str("component", "backend").Err(err).Msg("websocket write failed")
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_status":
			client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controllerStatus(controller))})
		}
	}
}

func controllerStatus(controller *GameController) StatusResponse {
	snap := controller.Snapshot()
	state := snap.State
	board := state.Board()
	return StatusResponse{
		GameID:          snap.ID.String(),
		Settings:        settingsToDTO(snap.Settings),
		Config:          GetConfig(),
		Status:          snap.Status.String(),
		Terminal:        state.IsTerminal(),
		NextPlayer:      playerToInt(state.ToMove()),
		Winner:          winnerFromStatus(snap.Status),
		BoardSize:       board.Size(),
		Board:           boardToSlice(board),
		MoveCount:       state.MoveCount(),
		History:         historyToDTO(snap.History),
		CapturedBlack:   snap.History.CapturedBy(PlayerBlack),
		CapturedWhite:   snap.History.CapturedBy(PlayerWhite),
		StonesBlack:     board.Count(CellBlack),
		StonesWhite:     board.Count(CellWhite),
		LastMessage:     snap.LastMessage,
		AiThinking:      snap.AiThinking,
		TurnStartedAtMs: snap.TurnStartedAtMs,
	}
}

func settingsFromDTO(dto GameSettingsDTO, base GameSettings) (GameSettings, error) {
	settings := base
	if dto.Mode != "" {
		black, white, err := ParseGameMode(dto.Mode)
		if err != nil {
			return base, err
		}
		settings.BlackType = black
		settings.WhiteType = white
	}
	if dto.BoardSize != 0 {
		if dto.BoardSize < minBoardSize || dto.BoardSize > maxBoardSize {
			return base, errors.Errorf("board size %d outside %d..%d", dto.BoardSize, minBoardSize, maxBoardSize)
		}
		settings.BoardSize = dto.BoardSize
	}
	if dto.BlackHeuristics != nil {
		settings.BlackHeuristics = dto.BlackHeuristics
	}
	if dto.WhiteHeuristics != nil {
		settings.WhiteHeuristics = dto.WhiteHeuristics
	}
	return settings, nil
}

func settingsToDTO(settings GameSettings) GameSettingsDTO {
	return GameSettingsDTO{
		Mode:            settings.Mode(),
		BoardSize:       settings.BoardSize,
		BlackHeuristics: settings.BlackHeuristics,
		WhiteHeuristics: settings.WhiteHeuristics,
	}
}

func moveFromAPI(payload apiMove) (Move, error) {
	if payload.Kind == "" {
		return Play(payload.X, payload.Y), nil
	}
	kind, err := parseMoveKind(payload.Kind)
	if err != nil {
		return Move{}, err
	}
	switch kind {
	case MovePass:
		return Pass(), nil
	case MoveResign:
		return Resign(), nil
	default:
		return Play(payload.X, payload.Y), nil
	}
}

func analyzeResponseFrom(result SearchResult, state GameState) analyzeResponse {
	response := analyzeResponse{
		Move:   result.Move,
		Score:  result.Score,
		Depth:  result.Depth,
		Player: playerToInt(state.ToMove()),
	}
	if stats := result.Stats; stats != nil {
		response.Nodes = stats.Nodes.Load()
		response.Cutoffs = stats.Cutoffs.Load()
		response.TTHits = stats.TTHits.Load()
		response.TimedOut = stats.TimedOut
		for _, d := range stats.DepthDurations {
			response.ElapsedMs += d.Milliseconds()
		}
	}
	return response
}

func boardToSlice(board Board) [][]int {
	size := board.Size()
	rows := make([][]int, size)
	for y := 0; y < size; y++ {
		rows[y] = make([]int, size)
		for x := 0; x < size; x++ {
			rows[y][x] = cellToInt(board.At(x, y))
		}
	}
	return rows
}

func cellToInt(cell Cell) int {
	switch cell {
	case CellBlack:
		return 1
	case CellWhite:
		return 2
	default:
		return 0
	}
}

func playerToInt(player PlayerColor) int {
	if player == PlayerBlack {
		return 1
	}
	return 2
}

func winnerFromStatus(status GameStatus) int {
	switch status {
	case StatusBlackWon:
		return 1
	case StatusWhiteWon:
		return 2
	default:
		return 0
	}
}

func historyToDTO(history MoveHistory) []historyEntryDTO {
	entries := history.All()
	result := make([]historyEntryDTO, 0, len(entries))
	for _, entry := range entries {
		result = append(result, historyEntryToDTO(entry))
	}
	return result
}

func historyEntryToDTO(entry HistoryEntry) historyEntryDTO {
	return historyEntryDTO{
		Move:              entry.Move,
		Player:            playerToInt(entry.Player),
		ElapsedMs:         entry.ElapsedMs,
		IsAi:              entry.IsAi,
		CapturedCount:     len(entry.CapturedPositions),
		CapturedPositions: append([]Move{}, entry.CapturedPositions...),
		Changes:           changesFromEntry(entry),
		Depth:             entry.Depth,
	}
}

// changesFromEntry lists the cells a history entry touched. Pass and resign
// change nothing.
func changesFromEntry(entry HistoryEntry) []cellChange {
	if !entry.Move.IsPlay() {
		return []cellChange{}
	}
	changes := []cellChange{{
		X:     entry.Move.X,
		Y:     entry.Move.Y,
		Value: playerToInt(entry.Player),
	}}
	for _, captured := range entry.CapturedPositions {
		changes = append(changes, cellChange{X: captured.X, Y: captured.Y, Value: 0})
	}
	return changes
}

func ttCacheStatus() ttCacheStatusResponse {
	tt := SharedTT(GetConfig())
	if tt == nil {
		return ttCacheStatusResponse{}
	}
	count := tt.Count()
	capacity := tt.Capacity()
	entryBytes := uint64(unsafe.Sizeof(TTEntry{}))
	response := ttCacheStatusResponse{
		Enabled:       true,
		Count:         count,
		Capacity:      capacity,
		Generation:    tt.Generation(),
		EntryBytes:    entryBytes,
		UsedBytes:     uint64(count) * entryBytes,
		CapacityBytes: uint64(capacity) * entryBytes,
	}
	if capacity > 0 {
		response.Usage = float64(count) / float64(capacity)
		response.Full = count >= capacity
	}
	return response
}

func ttCacheEntries(offset int, limit int) ttCacheEntriesResponse {
	response := ttCacheEntriesResponse{Items: []ttCacheEntryDTO{}, Offset: offset, Limit: limit}
	tt := SharedTT(GetConfig())
	if tt == nil {
		return response
	}
	entries, total := tt.TopEntriesByHits(offset, limit)
	for _, entry := range entries {
		response.Items = append(response.Items, ttEntryToDTO(entry))
	}
	response.Total = total
	return response
}

func ttEntryToDTO(entry TTEntry) ttCacheEntryDTO {
	return ttCacheEntryDTO{
		Hash:        fmt.Sprintf("0x%016x", entry.Key),
		Hits:        entry.Hits,
		Depth:       entry.Depth,
		Score:       entry.Score,
		Flag:        ttFlagString(entry.Flag),
		BestMove:    entry.BestMove,
		GenWritten:  entry.GenWritten,
		GenLastUsed: entry.GenLastUsed,
	}
}

func ttFlagString(flag TTFlag) string {
	switch flag {
	case TTExact:
		return "EXACT"
	case TTLower:
		return "LOWER"
	case TTUpper:
		return "UPPER"
	default:
		return "UNKNOWN"
	}
}

func parseTTKey(raw string) (uint64, error) {
	if raw == "" {
		return 0, errors.New("empty hash")
	}
	return strconv.ParseUint(raw, 0, 64)
}

// decodeOptionalJSON accepts an empty body as "no overrides".
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
