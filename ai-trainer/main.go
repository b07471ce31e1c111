package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"
)

type trainer struct {
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	logger       zerolog.Logger
	mode         string
	apiAddr      string
	outputDir    string

	boardSize          int
	gamesPerRound      int
	openingPlies       int
	maxPlies           int
	gameTimeout        time.Duration
	aiDepth            int
	aiTimeBudgetSec    float64
	mutationStrength   float64
	promotionPassRate  float64
	originalConfig     map[string]any
	configOverridden   bool
	configOverrideLock sync.Mutex

	statusMu  sync.RWMutex
	status    trainerStatus
	jobMu     sync.Mutex
	jobCancel context.CancelFunc
	jobDone   chan struct{}
}

type statusResponse struct {
	Status      string          `json:"status"`
	Terminal    bool            `json:"terminal"`
	Winner      int             `json:"winner"`
	BoardSize   int             `json:"board_size"`
	MoveCount   int             `json:"move_count"`
	StonesBlack int             `json:"stones_black"`
	StonesWhite int             `json:"stones_white"`
	CapturedB   int             `json:"captured_black"`
	CapturedW   int             `json:"captured_white"`
	Config      map[string]any  `json:"config"`
	Settings    settingsPayload `json:"settings"`
}

type settingsPayload struct {
	Mode            string           `json:"mode"`
	BoardSize       int              `json:"board_size,omitempty"`
	BlackHeuristics *heuristicConfig `json:"black_heuristics,omitempty"`
	WhiteHeuristics *heuristicConfig `json:"white_heuristics,omitempty"`
}

type legalMove struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type legalResponse struct {
	Moves []legalMove `json:"moves"`
}

type heuristicConfig struct {
	Stones    float64 `json:"stones"`
	Liberties float64 `json:"liberties"`
	Atari     float64 `json:"atari"`
}

type trainerStatus struct {
	Running             bool            `json:"running"`
	Mode                string          `json:"mode"`
	Phase               string          `json:"phase"`
	Message             string          `json:"message"`
	StartedAt           string          `json:"started_at"`
	UpdatedAt           string          `json:"updated_at"`
	Round               int             `json:"round"`
	GamesPlayed         int             `json:"games_played"`
	BlackWins           int             `json:"black_wins"`
	WhiteWins           int             `json:"white_wins"`
	Draws               int             `json:"draws"`
	LastChallengerRate  float64         `json:"last_challenger_rate"`
	PromotionThreshold  float64         `json:"promotion_threshold"`
	ChampionHeuristic   heuristicConfig `json:"champion_heuristic"`
	ChallengerHeuristic heuristicConfig `json:"challenger_heuristic"`
	CurrentMatch        *trainerMatch   `json:"current_match,omitempty"`
}

type trainerMatch struct {
	Game    int    `json:"game"`
	Black   string `json:"black"`
	White   string `json:"white"`
	Opening int    `json:"opening_plies"`
}

// gameOutcome is scored from black's point of view: 1 win, 0.5 draw, 0 loss.
type gameOutcome struct {
	Result   float64
	Plies    int
	Margin   int
	Resigned bool
	Capped   bool
}

func main() {
	logger, closeLog := buildLogger(getenv("TRAINER_LOG_FILE", ""))
	defer closeLog()

	t := &trainer{
		client:            &http.Client{Timeout: 10 * time.Second},
		baseURL:           getenv("BACKEND_URL", "http://backend:8080"),
		pollInterval:      time.Duration(getenvInt("POLL_INTERVAL_MS", 200)) * time.Millisecond,
		logger:            logger,
		mode:              getenv("TRAINER_MODE", "match"),
		apiAddr:           getenv("TRAINER_API_ADDR", ":8090"),
		outputDir:         getenv("TRAINER_OUTPUT_DIR", "/logs"),
		boardSize:         clampInt(getenvInt("TRAINER_BOARD_SIZE", 9), 5, 19),
		gamesPerRound:     getenvInt("TRAINER_GAMES_PER_ROUND", 10),
		openingPlies:      getenvInt("TRAINER_OPENING_PLIES", 4),
		maxPlies:          getenvInt("TRAINER_MAX_PLIES", 120),
		gameTimeout:       time.Duration(getenvInt("TRAINER_GAME_TIMEOUT_SEC", 180)) * time.Second,
		aiDepth:           getenvInt("TRAINER_AI_DEPTH", 2),
		aiTimeBudgetSec:   getenvFloat("TRAINER_AI_TIME_BUDGET_S", 0.5),
		mutationStrength:  getenvFloat("TRAINER_MUTATION_STRENGTH", 0.15),
		promotionPassRate: getenvFloat("TRAINER_PROMOTION_PASS_RATE", 0.55),
	}
	if t.gamesPerRound%2 != 0 {
		t.gamesPerRound++
	}
	if t.promotionPassRate <= 0 || t.promotionPassRate > 1 {
		t.promotionPassRate = 0.55
	}
	now := time.Now().UTC().Format(time.RFC3339)
	t.status = trainerStatus{
		Mode:               t.mode,
		Phase:              "idle",
		Message:            "service ready",
		StartedAt:          now,
		UpdatedAt:          now,
		PromotionThreshold: t.promotionPassRate,
	}

	t.logger.Info().
		Str("backend", t.baseURL).
		Str("mode", t.mode).
		Int("board_size", t.boardSize).
		Dur("poll_interval", t.pollInterval).
		Msg("trainer started")
	t.startStatusAPI()

	if autostart := getenv("TRAINER_AUTOSTART", ""); autostart != "" {
		mode := autostart
		if autostart == "1" || autostart == "true" || autostart == "yes" {
			mode = t.mode
		}
		if err := t.startTraining(mode); err != nil {
			t.logger.Error().Err(err).Msg("autostart failed")
		}
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	<-sigCtx.Done()
	_ = t.stopTraining("shutdown")
	t.logger.Info().Msg("trainer stopping")
}

func (t *trainer) startStatusAPI() {
	r := chi.NewRouter()
	r.Get("/api/trainer/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": t.getStatus().Running})
	})
	r.Get("/api/trainer/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	r.Post("/api/trainer/start", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Mode string `json:"mode"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mode := payload.Mode
		if mode == "" {
			mode = t.mode
		}
		if err := t.startTraining(mode); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	r.Post("/api/trainer/stop", func(w http.ResponseWriter, r *http.Request) {
		if err := t.stopTraining("requested via api"); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, t.getStatus())
	})
	server := &http.Server{Addr: t.apiAddr, Handler: r}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error().Err(err).Msg("trainer api server error")
		}
	}()
}

func (t *trainer) getStatus() trainerStatus {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return t.status
}

func (t *trainer) updateStatus(mutator func(*trainerStatus)) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	mutator(&t.status)
	t.status.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

func (t *trainer) startTraining(mode string) error {
	if mode != "match" && mode != "tune" {
		return errors.Errorf("unknown trainer mode %q", mode)
	}
	t.jobMu.Lock()
	defer t.jobMu.Unlock()
	if t.jobCancel != nil {
		return errors.New("training already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.jobCancel = cancel
	t.jobDone = done
	t.updateStatus(func(s *trainerStatus) {
		s.Running = true
		s.Mode = mode
		s.Phase = "starting"
		s.Message = "waiting for backend"
		s.Round = 0
		s.GamesPlayed = 0
		s.BlackWins, s.WhiteWins, s.Draws = 0, 0, 0
	})
	go func() {
		defer close(done)
		err := t.runMode(ctx, mode)
		phase, message := "idle", "finished"
		switch {
		case errors.Is(err, context.Canceled):
			message = "stopped"
		case err != nil:
			phase, message = "error", err.Error()
			t.logger.Error().Err(err).Str("mode", mode).Msg("training failed")
		}
		t.updateStatus(func(s *trainerStatus) {
			s.Running = false
			s.Phase = phase
			s.Message = message
			s.CurrentMatch = nil
		})
		t.jobMu.Lock()
		t.jobCancel = nil
		t.jobMu.Unlock()
	}()
	return nil
}

func (t *trainer) stopTraining(reason string) error {
	t.jobMu.Lock()
	cancel := t.jobCancel
	done := t.jobDone
	t.jobMu.Unlock()
	if cancel == nil {
		return errors.New("training not running")
	}
	t.logger.Info().Str("reason", reason).Msg("stopping training")
	cancel()
	<-done
	if err := t.restoreConfigOverride(); err != nil {
		t.logger.Warn().Err(err).Msg("backend config not restored")
	}
	return nil
}

func (t *trainer) runMode(ctx context.Context, mode string) error {
	if err := t.waitBackendReady(ctx); err != nil {
		return errors.Wrap(err, "backend not ready")
	}
	if err := t.applyConfigOverride(); err != nil {
		return errors.Wrap(err, "apply trainer config")
	}
	defer func() {
		if err := t.restoreConfigOverride(); err != nil {
			t.logger.Warn().Err(err).Msg("backend config not restored")
		}
	}()
	if mode == "tune" {
		return t.runTuning(ctx)
	}
	return t.runMatches(ctx)
}

// runMatches plays rounds of self-play with the backend weights on both
// sides and reports the tallies.
func (t *trainer) runMatches(ctx context.Context) error {
	t.updateStatus(func(s *trainerStatus) {
		s.Phase = "running"
		s.Message = "self-play running"
	})
	for round := 1; ; round++ {
		t.updateStatus(func(s *trainerStatus) { s.Round = round })
		for game := 0; game < t.gamesPerRound; game++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			outcome, err := t.playGame(ctx, game, nil, nil)
			if err != nil {
				return err
			}
			t.recordOutcome(outcome)
		}
		st := t.getStatus()
		t.logger.Info().
			Int("round", round).
			Int("games", st.GamesPlayed).
			Int("black_wins", st.BlackWins).
			Int("white_wins", st.WhiteWins).
			Int("draws", st.Draws).
			Msg("round finished")
	}
}

// runTuning pits a mutated challenger against the champion weights and
// promotes it when it scores above the promotion rate.
func (t *trainer) runTuning(ctx context.Context) error {
	champion := t.baseHeuristics()
	t.updateStatus(func(s *trainerStatus) {
		s.Phase = "running"
		s.Message = "weight tuning running"
		s.ChampionHeuristic = champion
	})
	for round := 1; ; round++ {
		challenger := t.mutateHeuristics(champion)
		t.updateStatus(func(s *trainerStatus) {
			s.Round = round
			s.ChallengerHeuristic = challenger
		})
		rate, err := t.playSeries(ctx, challenger, champion)
		if err != nil {
			return err
		}
		promoted := rate >= t.promotionPassRate
		if promoted {
			champion = challenger
		}
		t.updateStatus(func(s *trainerStatus) {
			s.LastChallengerRate = rate
			s.ChampionHeuristic = champion
		})
		if err := t.writeHeuristicFile("champion_heuristics.json", champion); err != nil {
			t.logger.Warn().Err(err).Msg("champion weights not written")
		}
		t.logger.Info().
			Int("round", round).
			Float64("challenger_rate", rate).
			Bool("promoted", promoted).
			Float64("stones", champion.Stones).
			Float64("liberties", champion.Liberties).
			Float64("atari", champion.Atari).
			Msg("tuning round finished")
	}
}

// playSeries returns the challenger's score rate over gamesPerRound games,
// alternating colours on the same opening.
func (t *trainer) playSeries(ctx context.Context, challenger, champion heuristicConfig) (float64, error) {
	points := 0.0
	for game := 0; game < t.gamesPerRound; game++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		challengerBlack := game%2 == 0
		black, white := champion, challenger
		if challengerBlack {
			black, white = challenger, champion
		}
		outcome, err := t.playGame(ctx, game, &black, &white)
		if err != nil {
			return 0, err
		}
		t.recordOutcome(outcome)
		if challengerBlack {
			points += outcome.Result
		} else {
			points += 1 - outcome.Result
		}
	}
	return points / float64(t.gamesPerRound), nil
}

func (t *trainer) recordOutcome(outcome gameOutcome) {
	t.logger.Debug().
		Float64("result", outcome.Result).
		Int("plies", outcome.Plies).
		Int("margin", outcome.Margin).
		Bool("resigned", outcome.Resigned).
		Bool("capped", outcome.Capped).
		Msg("game finished")
	t.updateStatus(func(s *trainerStatus) {
		s.GamesPlayed++
		switch outcome.Result {
		case 1:
			s.BlackWins++
		case 0:
			s.WhiteWins++
		default:
			s.Draws++
		}
		s.CurrentMatch = nil
	})
}

func (t *trainer) playGame(ctx context.Context, game int, black, white *heuristicConfig) (gameOutcome, error) {
	blackName, whiteName := "backend", "backend"
	if black != nil && white != nil {
		blackName, whiteName = "variant", "variant"
		if *black == t.getStatus().ChampionHeuristic {
			blackName = "champion"
		} else {
			whiteName = "champion"
		}
	}
	t.updateStatus(func(s *trainerStatus) {
		s.CurrentMatch = &trainerMatch{Game: game, Black: blackName, White: whiteName, Opening: t.openingPlies}
	})
	if err := t.startSeededGame(black, white); err != nil {
		return gameOutcome{}, err
	}
	deadline := time.Now().Add(t.gameTimeout)
	for {
		if ctx.Err() != nil {
			_ = t.stopGame()
			return gameOutcome{}, ctx.Err()
		}
		status, err := t.fetchStatus()
		if err != nil {
			return gameOutcome{}, err
		}
		if status.Terminal || status.Status != "running" {
			return scoreOutcome(status, false), nil
		}
		if t.maxPlies > 0 && status.MoveCount >= t.maxPlies {
			if err := t.stopGame(); err != nil {
				return gameOutcome{}, err
			}
			return scoreOutcome(status, true), nil
		}
		if t.gameTimeout > 0 && time.Now().After(deadline) {
			_ = t.stopGame()
			return gameOutcome{}, errors.Errorf("game timeout after %s", t.gameTimeout)
		}
		if !sleepWithContext(ctx, t.pollInterval) {
			_ = t.stopGame()
			return gameOutcome{}, ctx.Err()
		}
	}
}

// scoreOutcome decides a game. Resignation decides it outright, otherwise
// the material margin (stones on board plus captures) does. This is a
// training signal only; the backend itself never scores territory.
func scoreOutcome(status statusResponse, capped bool) gameOutcome {
	margin := (status.StonesBlack + status.CapturedB) - (status.StonesWhite + status.CapturedW)
	outcome := gameOutcome{Plies: status.MoveCount, Margin: margin, Capped: capped}
	switch status.Winner {
	case 1:
		outcome.Result = 1
		outcome.Resigned = true
		return outcome
	case 2:
		outcome.Result = 0
		outcome.Resigned = true
		return outcome
	}
	switch {
	case margin > 0:
		outcome.Result = 1
	case margin < 0:
		outcome.Result = 0
	default:
		outcome.Result = 0.5
	}
	return outcome
}

// startSeededGame plays openingPlies random legal stones as two humans, then
// hands both sides to the AI.
func (t *trainer) startSeededGame(black, white *heuristicConfig) error {
	if err := t.postJSON("/api/start", map[string]any{
		"settings": settingsPayload{Mode: "human_vs_human", BoardSize: t.boardSize},
	}, nil); err != nil {
		return err
	}
	for ply := 0; ply < t.openingPlies; ply++ {
		move, ok, err := t.randomOpeningMove()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := t.postJSON("/api/move", move, nil); err != nil {
			return err
		}
	}
	return t.postJSON("/api/settings", map[string]any{
		"settings": settingsPayload{
			Mode:            "ai_vs_ai",
			BlackHeuristics: black,
			WhiteHeuristics: white,
		},
	}, nil)
}

func (t *trainer) randomOpeningMove() (legalMove, bool, error) {
	var legal legalResponse
	if err := t.getJSON("/api/legal", &legal); err != nil {
		return legalMove{}, false, err
	}
	plays := make([]legalMove, 0, len(legal.Moves))
	for _, move := range legal.Moves {
		if move.Kind == "play" {
			plays = append(plays, move)
		}
	}
	if len(plays) == 0 {
		return legalMove{}, false, nil
	}
	return plays[frand.Intn(len(plays))], true, nil
}

func (t *trainer) fetchStatus() (statusResponse, error) {
	var status statusResponse
	if err := t.getJSON("/api/status", &status); err != nil {
		return statusResponse{}, err
	}
	return status, nil
}

func (t *trainer) baseHeuristics() heuristicConfig {
	if saved, err := t.readHeuristicFile("champion_heuristics.json"); err == nil {
		return saved
	}
	return defaultHeuristics()
}

func defaultHeuristics() heuristicConfig {
	return heuristicConfig{Stones: 1.0, Liberties: 0.4, Atari: 0.8}
}

func (t *trainer) mutateHeuristics(base heuristicConfig) heuristicConfig {
	mutate := func(v float64) float64 {
		factor := 1 + (frand.Float64()*2-1)*t.mutationStrength
		next := v * factor
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= 0 {
			return v
		}
		return next
	}
	return heuristicConfig{
		Stones:    mutate(base.Stones),
		Liberties: mutate(base.Liberties),
		Atari:     mutate(base.Atari),
	}
}

func (t *trainer) writeHeuristicFile(name string, heuristics heuristicConfig) error {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	raw, err := json.MarshalIndent(heuristics, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	path := filepath.Join(t.outputDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return os.Rename(tmp, path)
}

func (t *trainer) readHeuristicFile(name string) (heuristicConfig, error) {
	raw, err := os.ReadFile(filepath.Join(t.outputDir, name))
	if err != nil {
		return heuristicConfig{}, err
	}
	var cfg heuristicConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return heuristicConfig{}, errors.Wrapf(err, "decode %s", name)
	}
	return cfg, nil
}

// applyConfigOverride pins the search depth and budget for training games
// and remembers the backend config so it can be put back.
func (t *trainer) applyConfigOverride() error {
	t.configOverrideLock.Lock()
	defer t.configOverrideLock.Unlock()
	status, err := t.fetchStatus()
	if err != nil {
		return err
	}
	if status.Config == nil {
		return nil
	}
	if !t.configOverridden {
		t.originalConfig = cloneConfig(status.Config)
	}
	cfg := cloneConfig(status.Config)
	cfg["ai_depth"] = t.aiDepth
	cfg["ai_time_budget_s"] = t.aiTimeBudgetSec
	cfg["board_size"] = t.boardSize
	if err := t.postJSON("/api/settings", map[string]any{"config": cfg}, nil); err != nil {
		return err
	}
	t.configOverridden = true
	return nil
}

func (t *trainer) restoreConfigOverride() error {
	t.configOverrideLock.Lock()
	defer t.configOverrideLock.Unlock()
	if !t.configOverridden {
		return nil
	}
	if err := t.postJSON("/api/settings", map[string]any{"config": t.originalConfig}, nil); err != nil {
		return err
	}
	t.configOverridden = false
	return nil
}

func cloneConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

func (t *trainer) waitBackendReady(ctx context.Context) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.getJSON("/api/ping", &map[string]bool{}); err == nil {
			return nil
		}
		if !sleepWithContext(ctx, time.Second) {
			return ctx.Err()
		}
	}
	return errors.New("timeout after 60s")
}

func (t *trainer) stopGame() error {
	return t.postJSON("/api/stop", map[string]any{}, nil)
}

func (t *trainer) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *trainer) postJSON(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("POST %s -> %d: %s", path, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// buildLogger logs to stderr and, when path is set, to that file as well.
func buildLogger(path string) (zerolog.Logger, func()) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if path == "" {
		return zerolog.New(console).With().Timestamp().Str("component", "trainer").Logger(), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger := zerolog.New(console).With().Timestamp().Str("component", "trainer").Logger()
		logger.Warn().Err(err).Msg("log file disabled")
		return logger, func() {}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := zerolog.New(console).With().Timestamp().Str("component", "trainer").Logger()
		logger.Warn().Err(err).Msg("log file disabled")
		return logger, func() {}
	}
	writer := zerolog.MultiLevelWriter(console, file)
	return zerolog.New(writer).With().Timestamp().Str("component", "trainer").Logger(), func() { _ = file.Close() }
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
