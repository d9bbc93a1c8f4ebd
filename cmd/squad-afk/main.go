package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/squad-afk/internal/config"
	"github.com/leighmacdonald/squad-afk/internal/squad/console"
	"github.com/leighmacdonald/squad-afk/internal/squad/events"
	"github.com/leighmacdonald/squad-afk/internal/store"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/spf13/cobra"
)

var (
	BuildVersion   = "master"
	BuildCommit    = "00000000"
	BuildDate      = time.Now().Format("2006-01-02T15:04:05Z")
	BuildGoVersion = runtime.Version()
	cfgFile        string
	historyLimit   int
	historySteamID string
	rootCmd        = &cobra.Command{
		Use:   "squad-afk",
		Short: "Squad unassigned player kicker",
		Long:  `squad-afk - Warns and eventually kicks players who stay out of a squad on a Squad server`,
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	versionCmd = &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		Long:              "Print detailed version information about squad-afk",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run:               version,
	}

	replayCmd = &cobra.Command{
		Use:   "replay <SquadGame.log>",
		Short: "Replay a server log",
		Long:  "Replay a captured server log and print the round start and squad events detected in it",
		Args:  cobra.ExactArgs(1),
		RunE:  replay,
	}

	historyCmd = &cobra.Command{
		Use:               "history",
		Short:             "Show recent actions",
		Long:              "Show the most recent track, warn and kick actions recorded in the database",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              history,
	}
)

var errApp = errors.New("application error")

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 25, "Number of actions to show")
	historyCmd.Flags().StringVar(&historySteamID, "steam-id", "", "Only show actions for this player")
	rootCmd.AddCommand(versionCmd, historyCmd, replayCmd)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		slog.Error("Exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func version(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "squad-afk - Squad unassigned player kicker\n\n")
	fmt.Fprintf(out, "  Version: %s\n", BuildVersion)
	fmt.Fprintf(out, "  Commit:  %s\n", BuildCommit)
	fmt.Fprintf(out, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(out, "  Runtime: %s\n\n", BuildGoVersion)
}

func databasePath(conf config.Config) string {
	if conf.DatabasePath == "" || filepath.IsAbs(conf.DatabasePath) {
		return conf.DatabasePath
	}

	return config.Path(conf.DatabasePath)
}

func closeLogged(name string, closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Error("Failed to close "+name, slog.String("error", err.Error()))
	}
}

// run is the main entry point of squad-afk.
func run(cmd *cobra.Command, _ []string) error {
	configUpdates := make(chan config.Config, 1)

	configLoader := config.NewLoader(configUpdates, cfgFile)
	userConfig, errConfig := configLoader.Read()
	if errConfig != nil {
		return errors.Join(errConfig, errApp)
	}

	logFile, errLogger := config.LoggerInit(userConfig.LogFile, config.ParseLevel(userConfig.LogLevel))
	if errLogger != nil {
		return errors.Join(errLogger, errApp)
	}
	defer closeLogged("log file", logFile)

	slog.Info("Starting squad-afk", slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit), slog.String("date", BuildDate),
		slog.String("go", runtime.Version()), slog.String("config", configLoader.Path()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, errDB := store.Open(ctx, databasePath(userConfig), true)
	if errDB != nil {
		return errors.Join(errDB, errApp)
	}
	defer closeLogged("database", database)

	app, errNewApp := NewApp(userConfig, store.NewHistory(database), configUpdates)
	if errNewApp != nil {
		return errors.Join(errNewApp, errApp)
	}
	defer app.Close(context.WithoutCancel(ctx))

	configLoader.Watch()

	return app.Start(ctx)
}

func history(cmd *cobra.Command, _ []string) error {
	userConfig, errConfig := config.NewLoader(make(chan config.Config), cfgFile).Load()
	if errConfig != nil {
		return errors.Join(errConfig, errApp)
	}

	var filter steamid.SteamID
	if historySteamID != "" {
		filter = steamid.New(historySteamID)
		if !filter.Valid() {
			return fmt.Errorf("%w: invalid steam id %q", errApp, historySteamID)
		}
	}

	database, errDB := store.Open(cmd.Context(), databasePath(userConfig), true)
	if errDB != nil {
		return errors.Join(errDB, errApp)
	}
	defer closeLogged("database", database)

	historyStore := store.NewHistory(database)

	actions, errRecent := historyStore.Recent(cmd.Context(), filter, historyLimit)
	if errRecent != nil {
		return errors.Join(errRecent, errApp)
	}

	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "WHEN\tACTION\tSTEAM ID\tSESSION\tMESSAGE")

	for _, action := range actions {
		message := action.Message
		if action.Error != "" {
			message += " (error: " + action.Error + ")"
		}

		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(action.CreatedOn), action.Kind,
			action.SteamID.String(), action.SessionID.String()[:8], message)
	}

	if err := out.Flush(); err != nil {
		return errors.Join(err, errApp)
	}

	counts, errCounts := historyStore.Counts(cmd.Context(), time.Now().Add(-24*time.Hour))
	if errCounts != nil {
		return errors.Join(errCounts, errApp)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nLast 24h: %s tracked, %s warnings, %s kicks\n",
		humanize.Comma(int64(counts[afk.ActionTrack])), humanize.Comma(int64(counts[afk.ActionWarn])),
		humanize.Comma(int64(counts[afk.ActionKick])))

	return nil
}

func replay(cmd *cobra.Command, args []string) error {
	source := console.NewReplay(args[0], 0)
	if errOpen := source.Open(cmd.Context()); errOpen != nil {
		return errors.Join(errOpen, errApp)
	}
	defer closeLogged("replay log", contextCloser{ctx: cmd.Context(), closer: source})

	var (
		router    = events.NewRouter()
		eventChan = make(chan events.Event)
		done      = make(chan struct{})
		counts    = map[events.EventType]int{}
		out       = cmd.OutOrStdout()
	)

	router.ListenFor(events.NewGame, eventChan)
	router.ListenFor(events.SquadCreated, eventChan)
	router.ListenFor(events.MatchEnded, eventChan)

	go func() {
		source.Start(cmd.Context(), router)
		close(done)
	}()

	for {
		select {
		case evt := <-eventChan:
			counts[evt.Type]++
			fmt.Fprintf(out, "%s %-14s %+v\n", evt.Timestamp.Format(time.DateTime), evt.Type, evt.Data)
		case <-done:
			fmt.Fprintf(out, "\n%s rounds, %s squads created\n",
				humanize.Comma(int64(counts[events.NewGame])), humanize.Comma(int64(counts[events.SquadCreated])))

			return nil
		}
	}
}

type contextCloser struct {
	ctx    context.Context //nolint:containedctx
	closer interface{ Close(ctx context.Context) error }
}

func (c contextCloser) Close() error {
	return c.closer.Close(c.ctx)
}
