package main

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	minBoardSize = 5
	maxBoardSize = 19
)

type Config struct {
	BoardSize             int             `json:"board_size"`
	AiDepth               int             `json:"ai_depth"`
	AiTimeBudgetSec       float64         `json:"ai_time_budget_s"`
	AiUseAlphaBeta        bool            `json:"ai_use_alpha_beta"`
	AiIterativeDeepening  bool            `json:"ai_iterative_deepening"`
	AiMoveOrdering        bool            `json:"ai_move_ordering"`
	AiRootWorkers         int             `json:"ai_root_workers"`
	AiLogSearchStats      bool            `json:"ai_log_search_stats"`
	AiSearchProgress      bool            `json:"ai_search_progress"`
	AiTtEnabled           bool            `json:"ai_tt_enabled"`
	AiTtSize              int             `json:"ai_tt_size"`
	AiTtBuckets           int             `json:"ai_tt_buckets"`
	AiEnableTtPersistence bool            `json:"ai_enable_tt_persistence"`
	AiTtPersistencePath   string          `json:"ai_tt_persistence_path"`
	LogLevel              string          `json:"log_level"`
	LogPretty             bool            `json:"log_pretty"`
	TickIntervalMs        int             `json:"tick_interval_ms"`
	Heuristics            HeuristicConfig `json:"heuristics"`
}

// HeuristicConfig weights the three evaluation terms.
type HeuristicConfig struct {
	Stones    float64 `json:"stones"`
	Liberties float64 `json:"liberties"`
	Atari     float64 `json:"atari"`
}

type ConfigStore struct {
	mu      sync.RWMutex
	config  Config
	changed chan struct{}
}

func DefaultConfig() Config {
	return Config{
		BoardSize: 9,

		AiDepth:              2,
		AiTimeBudgetSec:      2.0,
		AiUseAlphaBeta:       true,
		AiIterativeDeepening: true,
		AiMoveOrdering:       true,
		AiRootWorkers:        1,

		AiLogSearchStats: false,
		AiSearchProgress: true,

		// The TT only reorders moves, so its size trades memory for speed.
		AiTtEnabled:           true,
		AiTtSize:              1 << 16,
		AiTtBuckets:           2,
		AiEnableTtPersistence: false,
		AiTtPersistencePath:   "tt_cache.gob",

		LogLevel:       "info",
		LogPretty:      false,
		TickIntervalMs: 50,

		Heuristics: DefaultHeuristics(),
	}
}

func DefaultHeuristics() HeuristicConfig {
	return HeuristicConfig{
		Stones:    1.0,
		Liberties: 0.4,
		Atari:     0.8,
	}
}

// Validate clamps values that would make the engine misbehave. It returns
// the corrected config.
func (c Config) Validate() Config {
	if c.BoardSize < minBoardSize {
		c.BoardSize = minBoardSize
	}
	if c.BoardSize > maxBoardSize {
		c.BoardSize = maxBoardSize
	}
	if c.AiDepth < 1 {
		c.AiDepth = 1
	}
	if c.AiTimeBudgetSec < 0 {
		c.AiTimeBudgetSec = 0
	}
	if c.AiRootWorkers < 1 {
		c.AiRootWorkers = 1
	}
	if c.AiTtBuckets < 1 {
		c.AiTtBuckets = 1
	}
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = 50
	}
	if c.Heuristics == (HeuristicConfig{}) {
		c.Heuristics = DefaultHeuristics()
	}
	return c
}

func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.AiTimeBudgetSec * float64(time.Second))
}

// LoadConfigFile overlays a JSON file on the defaults. Fields missing from
// the file keep their default values.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg.Validate(), nil
}

var configStore = &ConfigStore{config: DefaultConfig(), changed: make(chan struct{})}

func GetConfig() Config {
	return configStore.Get()
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig.Validate()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

// Changed returns a channel that is closed by the next Update.
func (c *ConfigStore) Changed() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changed
}
