package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/squad-afk/internal/config"
	"github.com/leighmacdonald/squad-afk/internal/notify"
	"github.com/leighmacdonald/squad-afk/internal/squad"
	"github.com/leighmacdonald/squad-afk/internal/squad/console"
	"github.com/leighmacdonald/squad-afk/internal/squad/events"
	"github.com/leighmacdonald/squad-afk/internal/squad/rcon"
	"golang.org/x/sync/errgroup"
)

// App is the main application container. Very little logic is contained within this struct. Its mostly
// responsible for routing messages between the log source, the roster poller and the tracker.
type App struct {
	config        config.Config
	tracker       *afk.Tracker
	watcher       *squad.SquadWatcher
	router        *events.Router
	source        console.Source
	publisher     *notify.Publisher
	configUpdates <-chan config.Config
}

// NewApp wires up every component. To actually start the app you must call Start().
func NewApp(conf config.Config, history afk.Recorder, configUpdates <-chan config.Config) (*App, error) {
	var (
		clock     = clockwork.NewRealClock()
		client    = rcon.NewClient(rcon.New(conf.Address, conf.Password))
		recorders = []afk.Recorder{history}
		app       = &App{config: conf, router: events.NewRouter(), configUpdates: configUpdates}
	)

	if conf.NATSURL != "" {
		publisher, errPublisher := notify.Connect(conf.NATSURL, conf.NATSSubject)
		if errPublisher != nil {
			return nil, errPublisher
		}

		app.publisher = publisher
		recorders = append(recorders, publisher)
	}

	tracker, errTracker := afk.NewTracker(clock, conf.Options(), client, client, recorders...)
	if errTracker != nil {
		app.Close(context.Background())

		return nil, errTracker
	}

	app.tracker = tracker
	app.watcher = squad.NewSquadWatcher(clock, client, conf.RosterPollInterval, app.onSquadChange)

	if conf.LogPath != "" {
		app.source = console.NewLocal(conf.LogPath)
	}

	return app, nil
}

// Start brings up all the background goroutines and blocks until the context is cancelled
// or one of them fails.
func (app *App) Start(ctx context.Context) error {
	if app.source != nil {
		if errOpen := app.source.Open(ctx); errOpen != nil {
			return errOpen
		}
	} else {
		slog.Warn("No log_path configured, round starts will not be detected")
	}

	// Establish the roster baseline before any squad changes are reported.
	if errPoll := app.watcher.Poll(ctx); errPoll != nil {
		slog.Warn("Initial roster poll failed", slog.String("error", errPoll.Error()))
	}

	if errReconcile := app.tracker.Reconcile(ctx); errReconcile != nil {
		slog.Warn("Initial reconcile failed", slog.String("error", errReconcile.Error()))
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.tracker.Start(groupCtx)
	})

	group.Go(func() error {
		return app.watcher.Start(groupCtx)
	})

	group.Go(func() error {
		app.logEventHandler(groupCtx)

		return nil
	})

	group.Go(func() error {
		app.configWatcher(groupCtx)

		return nil
	})

	if app.source != nil {
		group.Go(func() error {
			app.source.Start(groupCtx, app.router)

			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("Shutting down")

	return nil
}

// logEventHandler routes round starts and squad creations to the tracker.
func (app *App) logEventHandler(ctx context.Context) {
	eventChan := make(chan events.Event, 10)
	app.router.ListenFor(events.NewGame, eventChan)
	app.router.ListenFor(events.SquadCreated, eventChan)
	app.router.ListenFor(events.MatchEnded, eventChan)

	for {
		select {
		case evt := <-eventChan:
			app.onEvent(ctx, evt)
		case <-ctx.Done():
			return
		}
	}
}

func (app *App) onEvent(ctx context.Context, evt events.Event) {
	switch data := evt.Data.(type) {
	case events.NewGameEvent:
		slog.Info("New game", slog.String("map", data.MapName), slog.String("layer", data.Layer))

		if err := app.tracker.OnRoundStart(ctx); err != nil {
			slog.Error("Failed to handle round start", slog.String("error", err.Error()))
		}
	case events.SquadCreatedEvent:
		if !data.SteamID.Valid() {
			return
		}

		squadID := data.SquadID
		app.tracker.OnSquadChange(ctx, data.SteamID, &squadID)
	case events.MatchEndedEvent:
		status := app.tracker.Status()
		slog.Info("Match ended", slog.Int("tracked", len(status.Tracked)))
	}
}

func (app *App) onSquadChange(ctx context.Context, change squad.SquadChange) {
	app.tracker.OnSquadChange(ctx, change.SteamID, change.SquadID)
}

// configWatcher reports external edits. The tracker options are fixed for the lifetime of
// the process so only a restart applies them.
func (app *App) configWatcher(ctx context.Context) {
	for {
		select {
		case conf := <-app.configUpdates:
			if conf.Options() != app.config.Options() || conf.Address != app.config.Address {
				slog.Warn("Config file changed, restart to apply the new settings")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (app *App) Close(ctx context.Context) {
	if app.source != nil {
		if err := app.source.Close(ctx); err != nil {
			slog.Error("Failed to close log source", slog.String("error", err.Error()))
		}
	}

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			slog.Error("Failed to close nats publisher", slog.String("error", err.Error()))
		}
	}
}
