package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beholdci/behold/internal/config"
	"github.com/beholdci/behold/internal/log"
	"github.com/beholdci/behold/internal/report"
	"github.com/beholdci/behold/internal/snapshot"
)

// appContext bundles what every subcommand needs: resolved configuration,
// the snapshot store, and a logger.
type appContext struct {
	cfg    *config.Config
	store  *snapshot.Store
	logger *log.Logger
}

// newAppContext loads configuration (honoring shared flag overrides) and
// opens the snapshot store.
func newAppContext(cmd *cobra.Command) (*appContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		return nil, err
	}

	return &appContext{
		cfg:    cfg,
		store:  store,
		logger: newLogger(cmd),
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.SnapshotDir = dir
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *log.Logger {
	logCfg := log.DefaultConfig()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logCfg.Level = slog.LevelDebug
	}
	if format, _ := cmd.Flags().GetString("log"); format != "" {
		logCfg.Format = log.ParseFormat(format)
	}
	return log.New(logCfg)
}

// reportPath is where run results are persisted and where approve/update
// load them from.
func (a *appContext) reportPath() string {
	return filepath.Join(a.store.Root(), report.DefaultJSONName)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, so an
// aborted run still tears down its browser.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
