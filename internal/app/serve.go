package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"curtailwatch/internal/httpapi"
	"curtailwatch/internal/service"
)

// ServeOptions configure the serve command.
type ServeOptions struct {
	// Watch also runs the periodic re-analysis loop in the same process.
	Watch bool
}

// Serve runs the HTTP API until interrupted.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stations, closeStations, err := a.stationStore(ctx)
	if err != nil {
		return err
	}
	defer closeStations()

	srv := httpapi.NewServer(a.Config.Server, httpapi.Deps{
		Engine:     a.newEngine(),
		Defaults:   a.Config.EngineOptions(),
		Stations:   stations,
		Irradiance: a.newIrradiance(),
		AccessLog:  os.Stderr,
	}, a.Logger)

	var svc *service.Service
	if opts.Watch {
		store, closeStore, err := a.requireStore(ctx, "watch")
		if err != nil {
			return err
		}
		defer closeStore()
		svc = a.newWatchService(store)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(groupCtx)
	})
	if svc != nil {
		group.Go(func() error {
			if err := svc.Run(groupCtx); err != nil && groupCtx.Err() == nil {
				return err
			}
			return nil
		})
	}

	return group.Wait()
}
