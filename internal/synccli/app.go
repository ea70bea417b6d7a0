package synccli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haggle-app/syncengine/internal/backend/localbackend"
	"github.com/haggle-app/syncengine/internal/config"
	"github.com/haggle-app/syncengine/internal/engine"
	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/push"
)

// app bundles the wired subsystems a command operates on: config, the
// local store, the push bus and optionally the remote change feed.
type app struct {
	cfg     *config.Config
	db      *localbackend.DB
	bus     *push.Bus
	backend *localbackend.Backend
	feed    *push.Feed
}

// newApp loads configuration and wires the store, bus and backend.
func newApp(cmd *cobra.Command) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")

	loader := config.NewLoader()
	if configFile != "" {
		loader.SetConfigFile(configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	db, err := localbackend.Open(localbackend.DBConfig{
		Driver:         cfg.Database.Driver,
		DSN:            databaseDSN(cfg),
		MaxConnections: cfg.Database.MaxConnections,
		BusyTimeoutMs:  cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, err
	}

	bus := push.NewBus(cfg.Push.QueueSize)

	be := localbackend.New(db,
		localbackend.WithPublisher(bus),
		localbackend.WithMessageNotifications(),
	)

	a := &app{
		cfg:     cfg,
		db:      db,
		bus:     bus,
		backend: be,
	}

	if cfg.Push.GatewayURL != "" {
		feed, err := push.NewFeed(bus, push.FeedConfig{
			URL:               cfg.Push.GatewayURL,
			DialTimeout:       cfg.Push.DialTimeout,
			ReconnectInterval: cfg.Push.ReconnectInterval,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.feed = feed
	}

	return a, nil
}

// startEngine creates and starts an engine session for the principal.
func (a *app) startEngine(ctx context.Context, principalID string) (*engine.Engine, error) {
	uploader := localbackend.NewUploader(filepath.Join(a.cfg.Global.DataDir, "uploads"))

	eng, err := engine.New(engine.Config{
		Timeline: engine.TimelineConfig{
			MaxRetryAttempts: a.cfg.Engine.MaxRetryAttempts,
			RetryBackoff:     a.cfg.Engine.RetryBackoff,
			UploadBucket:     a.cfg.Engine.UploadBucket,
		},
	}, a.backend, a.backend, uploader, a.bus, principalID)
	if err != nil {
		return nil, err
	}

	if a.feed != nil {
		a.feed.Start(ctx)
	}

	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

func (a *app) close() {
	if a.feed != nil {
		a.feed.Close()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.backend != nil {
		a.backend.Close()
	}
}

func databaseDSN(cfg *config.Config) string {
	if cfg.Database.Driver == "postgres" {
		return cfg.Database.DSN
	}
	return cfg.DatabasePath()
}
