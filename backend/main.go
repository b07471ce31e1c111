package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load config")
		}
		cfg = loaded
	}
	configStore.Update(cfg)
	setupLogging(GetConfig())

	var persistOnce sync.Once
	persistOnShutdown := func(reason string) {
		persistOnce.Do(func() {
			log.Info().Str("component", "backend").Str("reason", reason).Msg("persisting caches")
			current := GetConfig()
			if _, err := persistTTPersistence(current, SharedTT(current)); err != nil {
				log.Error().Str("component", "cache").Err(err).Msg("tt snapshot not stored")
			}
		})
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Str("component", "backend").Interface("panic", recovered).Msg("panic recovered in main")
			persistOnShutdown("panic")
		}
	}()

	if _, err := loadTTPersistence(GetConfig()); err != nil {
		log.Warn().Str("component", "cache").Err(err).Msg("tt snapshot not restored")
	}
	defer persistOnShutdown("exit")

	controller := NewGameController(DefaultGameSettings())
	hub := NewHub()
	searchHub := NewSearchHub()
	controller.SetProgressPublisher(progressPublisher(searchHub))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx.Done())
	go searchHub.Run(ctx.Done())
	go runGameLoop(ctx, controller, hub)

	server := &http.Server{
		Addr:    *addr,
		Handler: newRouter(controller, hub, searchHub),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	log.Info().Str("component", "backend").Str("addr", *addr).Msg("backend listening")
	var runErr error
	select {
	case <-sigCtx.Done():
		log.Info().Str("component", "backend").Msg("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			log.Error().Str("component", "backend").Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Str("component", "backend").Err(err).Msg("graceful shutdown failed")
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			log.Error().Str("component", "backend").Err(closeErr).Msg("forced close failed")
		}
	}

	cancel()
	controller.StopGame()
	persistOnShutdown("shutdown")
	if runErr != nil {
		log.Error().Str("component", "backend").Err(runErr).Msg("exiting after server error")
	}
}

// runGameLoop ticks the game and broadcasts every applied move. The tick
// interval follows config updates.
func runGameLoop(ctx context.Context, controller *GameController, hub *Hub) {
	changed := configStore.Changed()
	interval := tickInterval(GetConfig())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			changed = configStore.Changed()
			if next := tickInterval(GetConfig()); next != interval {
				interval = next
				ticker.Reset(interval)
				log.Debug().Str("component", "backend").Dur("interval", interval).Msg("tick interval changed")
			}
		case <-ticker.C:
			if !controller.Tick() {
				continue
			}
			if entry, ok := controller.LatestHistoryEntry(); ok {
				hub.BroadcastHistory(historyPayload{History: []historyEntryDTO{historyEntryToDTO(entry)}})
			}
			hub.BroadcastStatus(controllerStatus(controller))
		}
	}
}

func tickInterval(cfg Config) time.Duration {
	return time.Duration(cfg.Validate().TickIntervalMs) * time.Millisecond
}

func setupLogging(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	applyLogLevel(cfg)
}

func applyLogLevel(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
