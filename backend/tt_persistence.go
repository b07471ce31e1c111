package main

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var dockerCacheDir = "/cache_logs"

type ttPersistenceSnapshot struct {
	Size    int
	Buckets int
	Entries []TTEntry
}

func countValidTTEntries(entries []TTEntry) int {
	count := 0
	for _, entry := range entries {
		if entry.Valid {
			count++
		}
	}
	return count
}

// loadTTPersistence restores the shared table from the snapshot file. A
// missing file or a snapshot built for other table dimensions restores
// nothing and is not an error.
func loadTTPersistence(cfg Config) (int, error) {
	if !cfg.AiEnableTtPersistence || cfg.AiTtPersistencePath == "" {
		log.Debug().Str("component", "cache").Msg("tt persistence disabled")
		return 0, nil
	}
	tt := SharedTT(cfg)
	if tt == nil {
		return 0, nil
	}
	path := resolveTTPersistencePath(cfg.AiTtPersistencePath)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("component", "cache").Str("path", path).Msg("no tt snapshot found")
			return 0, nil
		}
		return 0, errors.Wrapf(err, "open tt snapshot %s", path)
	}
	defer file.Close()

	var snapshot ttPersistenceSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return 0, errors.Wrapf(err, "decode tt snapshot %s", path)
	}
	size, buckets := tt.Dimensions()
	if snapshot.Size != size || snapshot.Buckets != buckets {
		log.Warn().
			Str("component", "cache").
			Int("snapshot_size", snapshot.Size).
			Int("snapshot_buckets", snapshot.Buckets).
			Int("size", size).
			Int("buckets", buckets).
			Msg("tt snapshot does not match table dimensions; skipping")
		return 0, nil
	}
	restored := NewTranspositionTable(uint64(snapshot.Size), snapshot.Buckets)
	restored.loadEntries(snapshot.Entries)
	setSharedTT(restored)
	valid := countValidTTEntries(snapshot.Entries)
	log.Info().Str("component", "cache").Str("path", path).Int("entries", valid).Msg("restored tt snapshot")
	return valid, nil
}

// persistTTPersistence writes the valid entries of tt to the snapshot file.
func persistTTPersistence(cfg Config, tt *TranspositionTable) (int, error) {
	if !cfg.AiEnableTtPersistence || cfg.AiTtPersistencePath == "" || tt == nil {
		return 0, nil
	}
	path := resolveTTPersistencePath(cfg.AiTtPersistencePath)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Wrapf(err, "create tt snapshot directory %s", dir)
		}
	}
	entries := tt.snapshotEntries()
	size, buckets := tt.Dimensions()
	file, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "create tt snapshot %s", path)
	}
	defer file.Close()
	snapshot := ttPersistenceSnapshot{Size: size, Buckets: buckets, Entries: entries}
	if err := gob.NewEncoder(file).Encode(&snapshot); err != nil {
		return 0, errors.Wrapf(err, "encode tt snapshot %s", path)
	}
	valid := countValidTTEntries(entries)
	log.Info().Str("component", "cache").Str("path", path).Int("entries", valid).Msg("stored tt snapshot")
	return valid, nil
}

func resolveTTPersistencePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if stat, err := os.Stat(dockerCacheDir); err == nil && stat.IsDir() {
		return filepath.Join(dockerCacheDir, path)
	}
	return path
}
