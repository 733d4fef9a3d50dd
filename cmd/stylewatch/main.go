// Package main provides the stylewatch binary, which replays recorded encounter
// observations through the rotation inference engine and streams predictions over a
// websocket feed.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stylewatch/internal/config"
	"github.com/cory-johannsen/stylewatch/internal/driver"
	"github.com/cory-johannsen/stylewatch/internal/feed"
	"github.com/cory-johannsen/stylewatch/internal/game/encounter"
	"github.com/cory-johannsen/stylewatch/internal/game/world"
	"github.com/cory-johannsen/stylewatch/internal/observability"
	"github.com/cory-johannsen/stylewatch/internal/replay"
	"github.com/cory-johannsen/stylewatch/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	recordingPath := flag.String("recording", "", "recording to replay; overrides replay.path")
	profilePath := flag.String("profile", "", "hostile profile YAML; overrides profile.path")
	arenaPath := flag.String("arena", "", "arena terrain YAML; overrides arena.path")
	unthrottled := flag.Bool("fast", false, "replay ticks back to back instead of at engine.tick_interval")
	linger := flag.Bool("linger", false, "keep serving the feed after the recording ends")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *recordingPath != "" {
		cfg.Replay.Path = *recordingPath
	}
	if *profilePath != "" {
		cfg.Profile.Path = *profilePath
	}
	if *arenaPath != "" {
		cfg.Arena.Path = *arenaPath
	}
	if *unthrottled {
		cfg.Replay.Unthrottled = true
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	profile, err := encounter.LoadProfile(cfg.Profile.Path)
	if err != nil {
		logger.Fatal("loading profile", zap.Error(err))
	}
	if cfg.Replay.Path == "" {
		logger.Fatal("no batch source: set replay.path or pass -recording")
	}
	rec, err := replay.Load(cfg.Replay.Path)
	if err != nil {
		logger.Fatal("loading recording", zap.Error(err))
	}
	logger.Info("recording loaded",
		zap.String("name", rec.Name),
		zap.Int("ticks", len(rec.Ticks)),
		zap.String("profile", profile.ID),
	)

	engineOpts := []encounter.Option{encounter.WithParallel(cfg.Engine.Parallel)}
	if cfg.Arena.Path != "" {
		arena, err := world.LoadArenaFromFile(cfg.Arena.Path)
		if err != nil {
			logger.Fatal("loading arena", zap.Error(err))
		}
		logger.Info("arena loaded",
			zap.String("arena", arena.ID),
			zap.Int("blocked_tiles", arena.BlockedTiles()),
		)
		engineOpts = append(engineOpts, encounter.WithBlocker(arena.Blocks))
	}
	engine := encounter.NewEngine(profile, cfg.Rules(), logger, engineOpts...)

	var opts []driver.Option
	if !cfg.Replay.Unthrottled {
		opts = append(opts, driver.WithInterval(cfg.Engine.TickInterval))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lc := server.NewLifecycle(logger)

	if cfg.Feed.Enabled {
		hub := feed.NewHub(logger.Named("feed"))
		lc.Add("feed-hub", hub)
		lc.Add("feed-http", feed.NewServer(cfg.Feed, hub, logger.Named("feed")))
		opts = append(opts, driver.WithSink(hub))
	}

	d := driver.New(engine, replay.NewCursor(rec), logger.Named("driver"), opts...)
	lc.Add("driver", server.ServiceFunc(func(ctx context.Context) error {
		err := d.Run(ctx)
		if !*linger {
			cancel()
		}
		return err
	}))

	logger.Info("stylewatch ready", zap.Duration("startup", time.Since(start)))
	if err := lc.Run(ctx); err != nil {
		logger.Fatal("stylewatch stopped with error", zap.Error(err))
	}
}
