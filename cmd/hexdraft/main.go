// Package main provides the hexdraft Telnet server. Each connection plays its own
// drafted-dungeon game; finished runs are recorded when run history is enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/frontend/handlers"
	"github.com/cory-johannsen/hexdraft/internal/frontend/telnet"
	"github.com/cory-johannsen/hexdraft/internal/game/command"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/engine"
	"github.com/cory-johannsen/hexdraft/internal/game/session"
	"github.com/cory-johannsen/hexdraft/internal/observability"
	"github.com/cory-johannsen/hexdraft/internal/scripting"
	"github.com/cory-johannsen/hexdraft/internal/server"
	"github.com/cory-johannsen/hexdraft/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seed := flag.Int64("seed", 0, "seed every new session's first game (0 = clock)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting hexdraft",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.Bool("run_history", cfg.Database.Enabled),
	)

	// Load the effect table
	effects := effect.DefaultRegistry()
	if cfg.Game.EffectsFile != "" {
		effects, err = effect.LoadRegistryFromFile(cfg.Game.EffectsFile)
		if err != nil {
			logger.Fatal("loading effects", zap.Error(err))
		}
	}
	logger.Info("effects loaded",
		zap.String("file", cfg.Game.EffectsFile),
		zap.Int("count", effects.Len()),
	)

	// Compile effect scripts once; every game gets its own VM
	var scripts *scripting.Manager
	if cfg.Game.ScriptDir != "" {
		scripts = scripting.NewManager(logger.Named("scripting"))
		if err := scripts.Load(cfg.Game.ScriptDir, cfg.Game.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer scripts.Close()
	}

	ctx := context.Background()
	lifecycle := server.NewLifecycle(logger)

	// Connect to PostgreSQL when run history is enabled
	var runs handlers.RunStore
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		runs = postgres.NewRunRepository(pool.DB())

		healthDone := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				pool.Monitor(healthDone, 30*time.Second, 5*time.Second, logger.Named("postgres"))
				return nil
			},
			StopFn: func() {
				close(healthDone)
				pool.Close()
			},
		})
	}

	gameLogger := logger.Named("game")
	factory := func(s *int64) (*engine.Game, error) {
		var gameOpts []engine.Option
		switch {
		case s != nil:
			gameOpts = append(gameOpts, engine.WithSeed(*s))
		case *seed != 0:
			gameOpts = append(gameOpts, engine.WithSeed(*seed))
		}
		var vm *scripting.Manager
		if scripts != nil {
			forked, err := scripts.Fork()
			if err != nil {
				return nil, fmt.Errorf("forking script VM: %w", err)
			}
			vm = forked
			gameOpts = append(gameOpts, engine.WithHookRunner(vm))
		}
		g, err := engine.New(cfg, effects, gameLogger, gameOpts...)
		if err != nil && vm != nil {
			vm.Close()
		}
		return g, err
	}
	sessions := session.NewManager(factory, logger.Named("sessions"))

	gameHandler := handlers.NewGameHandler(
		sessions,
		command.DefaultRegistry(),
		runs,
		cfg.Telnet,
		cfg.Game.DebugCommands,
		logger.Named("telnet"),
	)
	telnetAcceptor := telnet.NewAcceptor(cfg.Telnet, gameHandler, logger)

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return telnetAcceptor.ListenAndServe()
		},
		StopFn: func() {
			telnetAcceptor.Stop()
		},
	})

	lifecycle.OnShutdown(func() {
		n := sessions.Broadcast("The server is shutting down in a moment.")
		if n > 0 && cfg.Telnet.ShutdownGrace > 0 {
			logger.Info("warning connected players", zap.Int("players", n), zap.Duration("grace", cfg.Telnet.ShutdownGrace))
			time.Sleep(cfg.Telnet.ShutdownGrace)
		}
	})

	logger.Info("hexdraft initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
