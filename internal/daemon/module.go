package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/amarouch/ilmq/internal/api"
	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/chat"
	"github.com/amarouch/ilmq/internal/config"
	"github.com/amarouch/ilmq/internal/hotseat"
	"github.com/amarouch/ilmq/internal/lock"
	"github.com/amarouch/ilmq/internal/logging"
	"github.com/amarouch/ilmq/internal/profile"
	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/status"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/amarouch/ilmq/internal/syncer"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRemoteClient,
			provideReconciler,
			provideHotseatEngine,
			provideChatPoller,
			provideDeps,
			provideHandler,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("config load failed, using defaults", zap.Error(err))
		}
		return nil
	}
	return cfg
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRemoteClient(cfg *config.Config, logger *zap.Logger) *remote.Client {
	deviceID, err := ensureDeviceID(cfg, profile.ConfigPath())
	if err != nil {
		logger.Warn("device id not persisted", zap.Error(err))
	}
	logger.Info("room service client",
		zap.String("base_url", cfg.ServerBaseURL()),
		zap.String("device_id", deviceID))
	return remote.NewClient(cfg.ServerBaseURL(), deviceID)
}

func provideReconciler(db *store.DB, client *remote.Client, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *syncer.Reconciler {
	return syncer.NewReconciler(db, client, b, logger, cfg.SyncFlushInterval())
}

func provideHotseatEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *hotseat.Engine {
	return hotseat.NewEngine(db, b, logger)
}

func provideChatPoller(db *store.DB, client *remote.Client, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *chat.Poller {
	return chat.NewPoller(db, client, b, logger, cfg.ChatPollInterval())
}

func provideDeps(
	p Params,
	db *store.DB,
	client *remote.Client,
	rec *syncer.Reconciler,
	engine *hotseat.Engine,
	poller *chat.Poller,
	machine *status.Machine,
	b *bus.Bus,
	logger *zap.Logger,
) *api.Deps {
	return &api.Deps{
		Profile: p.Profile,
		DB:      db,
		Remote:  client,
		Syncer:  rec,
		Hotseat: engine,
		Chat:    poller,
		Machine: machine,
		Bus:     b,
		Logger:  logger,
	}
}

func provideHandler(d *api.Deps) http.Handler {
	return api.NewHandler(d)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, rec *syncer.Reconciler, poller *chat.Poller, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("control server error", zap.Error(err))
				}
			}()

			rec.Start(context.Background())

			if err := machine.Transition(status.Idle); err != nil {
				return err
			}
			logger.Info("daemon ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			poller.Stop()
			rec.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// ensureDeviceID returns the configured device id, minting and persisting one
// on first run so offline uploads from this device stay dedupable. A config
// file that exists but could not be parsed is left untouched: overwriting it
// would destroy the user's settings and rotate the device id on every start.
// In that case the minted id is used for this run only and an error reports
// why it was not saved.
func ensureDeviceID(cfg *config.Config, path string) (string, error) {
	if cfg != nil && cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}
	id := uuid.NewString()
	if cfg == nil {
		if _, err := os.Stat(path); err == nil {
			return id, fmt.Errorf("config file %s exists but was not readable, not overwriting it", path)
		}
	}
	saved := &config.Config{}
	if cfg != nil {
		*saved = *cfg
	}
	saved.DeviceID = id
	if err := config.Save(path, saved); err != nil {
		return id, err
	}
	return id, nil
}
