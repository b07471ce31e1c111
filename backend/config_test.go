package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidateClamps(t *testing.T) {
	cfg := Config{BoardSize: 3, AiDepth: 0, AiTimeBudgetSec: -1, AiRootWorkers: 0}.Validate()
	if cfg.BoardSize != minBoardSize || cfg.AiDepth != 1 || cfg.AiTimeBudgetSec != 0 || cfg.AiRootWorkers != 1 {
		t.Fatalf("unexpected clamped config %+v", cfg)
	}
	if cfg.Heuristics != DefaultHeuristics() {
		t.Fatalf("zero weights should fall back to defaults")
	}
	if zero := SearchConfigFromConfig(Config{AiTimeBudgetSec: -3}, nil); !zero.HasDeadline || zero.TimeBudget != 0 {
		t.Fatalf("a negative budget must become an expired deadline, got %+v", zero)
	}
	if big := (Config{BoardSize: 40}).Validate(); big.BoardSize != maxBoardSize {
		t.Fatalf("expected board size %d, got %d", maxBoardSize, big.BoardSize)
	}
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"board_size": 13, "ai_depth": 3}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.BoardSize != 13 || cfg.AiDepth != 3 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.AiTimeBudgetSec != defaults.AiTimeBudgetSec || cfg.Heuristics != defaults.Heuristics {
		t.Fatalf("missing fields should keep defaults")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestSearchConfigFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AiTimeBudgetSec = 0.25
	cfg.AiUseAlphaBeta = false
	sc := SearchConfigFromConfig(cfg, nil)
	if !sc.HasDeadline || sc.TimeBudget.Milliseconds() != 250 || sc.UseAlphaBeta || sc.MaxDepth != 2 || sc.TT != nil {
		t.Fatalf("unexpected search config %+v", sc)
	}
}
