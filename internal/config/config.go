package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/leighmacdonald/squad-afk/internal/afk"
)

var (
	errConfigRead    = errors.New("failed to read config file")
	errConfigInvalid = errors.New("invalid config")
	errLoggerInit    = errors.New("failed to initialize logger")
)

const (
	ConfigDirName     = "squad-afk"
	DefaultConfigName = "squad-afk"
	DefaultDBName     = "squad-afk.db"
	EnvPrefix         = "squadafk"
)

type Config struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	// LogPath points at the SquadGame.log of the server. Round starts are only detected
	// when it is set.
	LogPath            string        `mapstructure:"log_path"`
	RosterPollInterval time.Duration `mapstructure:"roster_poll_interval"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
	DatabasePath       string        `mapstructure:"database_path"`
	NATSURL            string        `mapstructure:"nats_url"`
	NATSSubject        string        `mapstructure:"nats_subject"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFile            string        `mapstructure:"log_file"`

	WarningMessage string `mapstructure:"warning_message"`
	KickMessage    string `mapstructure:"kick_message"`
	// FrequencyOfWarnings is in seconds.
	FrequencyOfWarnings int `mapstructure:"frequency_of_warnings"`
	// AFKTimer is in minutes.
	AFKTimer        int `mapstructure:"afk_timer"`
	PlayerThreshold int `mapstructure:"player_threshold"`
	QueueThreshold  int `mapstructure:"queue_threshold"`
	// RoundStartDelay is in minutes.
	RoundStartDelay int `mapstructure:"round_start_delay"`
}

// Options converts the user facing units into tracker options.
func (c Config) Options() afk.Options {
	return afk.Options{
		WarningMessage:    c.WarningMessage,
		KickMessage:       c.KickMessage,
		WarnInterval:      time.Duration(c.FrequencyOfWarnings) * time.Second,
		KickTimeout:       time.Duration(c.AFKTimer) * time.Minute,
		GracePeriod:       time.Duration(c.RoundStartDelay) * time.Minute,
		PlayerThreshold:   c.PlayerThreshold,
		QueueThreshold:    c.QueueThreshold,
		ReconcileInterval: c.ReconcileInterval,
		CleanupInterval:   c.CleanupInterval,
	}
}

func (c Config) Validate() error {
	var err error

	if c.Address == "" {
		err = errors.Join(err, errors.New("address is required"))
	}

	if c.RosterPollInterval <= 0 {
		err = errors.Join(err, fmt.Errorf("roster poll interval must be positive, got %s", c.RosterPollInterval))
	}

	if errOpts := c.Options().Validate(); errOpts != nil {
		err = errors.Join(err, errOpts)
	}

	if err != nil {
		return errors.Join(err, errConfigInvalid)
	}

	return nil
}

// Path generates a path pointing to the filename under this apps defined $XDG_CONFIG_HOME.
func Path(name string) string {
	fullPath, errFullPath := xdg.ConfigFile(path.Join(ConfigDirName, name))
	if errFullPath != nil {
		panic(errFullPath)
	}

	return fullPath
}

// ParseLevel returns the slog level for a name, defaulting to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}

	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LoggerInit sets up the slog global handler. An empty logPath logs to stderr, relative
// paths are placed under the config dir.
func LoggerInit(logPath string, level slog.Level) (io.Closer, error) {
	opts := &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	}

	if logPath == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))

		return nopCloser{}, nil
	}

	if !filepath.IsAbs(logPath) {
		logPath = path.Join(xdg.ConfigHome, ConfigDirName, logPath)
	}

	logFile, errLogFile := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if errLogFile != nil {
		return nil, errors.Join(errLogFile, errLoggerInit)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, opts)))

	return logFile, nil
}
