// Taskdeck is a local, single-user task manager. All state lives in a
// per-machine data directory; there is no server.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskdeck/internal/auth"
	"taskdeck/internal/clock"
	"taskdeck/internal/config"
	"taskdeck/internal/eventbus"
	"taskdeck/internal/logging"
	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

var (
	flagConfig  string
	flagDataDir string
)

func main() {
	root := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Local personal task manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (overrides config)")

	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newUpdateCmd(),
		newCompleteCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newExportCmd(),
		newRegisterCmd(),
		newLoginCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app wires the engine: config -> logger -> clock -> bus -> storage ->
// repository -> service -> controller.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	clk    clock.Clock
	bus    *eventbus.Bus
	store  *storage.Service
	repo   *task.Repository
	svc    *task.Service
	ctrl   *task.Controller
	users  *auth.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	clk := clock.RealClock{}
	bus := eventbus.New(logger)

	kv, err := storage.NewFileKV(cfg.DataDir, cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, err
	}
	store := storage.NewService(kv, clk, logger)

	factory := task.NewFactory(clk)
	repo := task.NewRepository(store, bus, clk, logger, cfg.AutoSaveInterval)
	svc := task.NewService(repo, factory, store, bus, logger)
	ctrl := task.NewController(bus, svc, logger)

	userRepo, err := auth.NewFileRepo(filepath.Join(cfg.DataDir, "auth"))
	if err != nil {
		return nil, err
	}
	users := auth.NewService(userRepo, clk, logger)

	if err := repo.Load(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		clk:    clk,
		bus:    bus,
		store:  store,
		repo:   repo,
		svc:    svc,
		ctrl:   ctrl,
		users:  users,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.ctrl.Close()
	if err := a.repo.Close(ctx); err != nil {
		a.logger.Warn("final save failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// run wires the engine around fn and guarantees the shutdown flush.
func run(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)
		return fn(ctx, a)
	}
}
