package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"curtailwatch/internal/alerting"
	"curtailwatch/internal/config"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/fetcher"
	"curtailwatch/internal/ingest"
	"curtailwatch/internal/scheduler"
	"curtailwatch/internal/service"
	"curtailwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output; defaults to stdout.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) location() *time.Location {
	loc, err := a.Config.Location()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("falling back to local timezone")
		return time.Local
	}
	return loc
}

func (a *App) newEngine() *engine.Engine {
	return engine.New(a.Logger)
}

func (a *App) newLoader() *ingest.Loader {
	return ingest.NewLoader(a.location(), a.Logger)
}

func (a *App) newIrradiance() *fetcher.Irradiance {
	return fetcher.NewIrradiance(fetcher.IrradianceOptions{
		BaseURL:          a.Config.Weather.BaseURL,
		Timeout:          a.Config.Weather.RequestTimeout,
		UserAgent:        a.Config.Weather.UserAgent,
		StationDimension: ingest.StationDimension,
	}, a.Logger)
}

// newNotifier fans alerts out to every configured channel. Nil means no
// channel is usable.
func (a *App) newNotifier() alerting.Notifier {
	var channels alerting.Multi
	for _, name := range a.Config.Alerting.Channels {
		switch name {
		case "telegram":
			if a.Config.Alerting.Telegram.Enabled {
				cfg := a.Config.Alerting.Telegram
				channels = append(channels, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			}
		case "log":
			channels = append(channels, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", name).Msg("unknown alert channel ignored")
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// requireStore opens the database or explains why the command cannot run.
func (a *App) requireStore(ctx context.Context, purpose string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database.dsn not configured; cannot " + purpose)
	}
	return store, closeStore, nil
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		Engine:          a.Config.EngineOptions(),
		Lookback:        a.Config.Scheduler.Lookback,
		Location:        a.location(),
		AlertsEnabled:   a.Config.Alerting.Enabled,
		Channels:        a.Config.Alerting.Channels,
		AdvisoryLockKey: a.Config.Scheduler.AdvisoryLockKey,
	}
}

// newWatchService wires the periodic re-analysis loop over store.
func (a *App) newWatchService(store *storage.Store) *service.Service {
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   true,
	}, a.Logger)

	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}
	return service.New(a.serviceOptions(), sched, a.newEngine(), store, store, notifier, a.Logger)
}

// Migrate applies the SQL files under database.migrations_path.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "migrate")
	if err != nil {
		return err
	}
	defer closeStore()

	applied, err := store.Migrate(ctx, a.Config.Database.MigrationsPath)
	if err != nil {
		return err
	}
	a.Logger.Info().Int("files", applied).Str("dir", a.Config.Database.MigrationsPath).Msg("migrations applied")
	return nil
}

// Watch runs the periodic re-analysis of stored measurements until
// interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx, "watch")
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newWatchService(store)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Dur("lookback", a.Config.Scheduler.Lookback).Msg("starting watch service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch service stopped")
	return nil
}
