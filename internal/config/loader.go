package config

import (
	"errors"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/spf13/viper"
)

// Loader handles setting up viper, loading configuration from files, and broadcasting configuration changes.
type Loader struct {
	*viper.Viper
	changes chan<- Config
}

// NewLoader creates a loader reading configFile, or searching the config dir and the working
// directory when it is empty.
func NewLoader(changes chan<- Config, configFile string) *Loader {
	defaults := afk.DefaultOptions()

	loader := Loader{changes: changes, Viper: viper.New()}
	loader.SetDefault("address", "")
	loader.SetDefault("password", "")
	loader.SetDefault("log_path", "")
	loader.SetDefault("roster_poll_interval", "10s")
	loader.SetDefault("reconcile_interval", defaults.ReconcileInterval.String())
	loader.SetDefault("cleanup_interval", defaults.CleanupInterval.String())
	loader.SetDefault("database_path", DefaultDBName)
	loader.SetDefault("nats_url", "")
	loader.SetDefault("nats_subject", "squad.afk")
	loader.SetDefault("log_level", "info")
	loader.SetDefault("log_file", "")
	loader.SetDefault("warning_message", defaults.WarningMessage)
	loader.SetDefault("kick_message", defaults.KickMessage)
	loader.SetDefault("frequency_of_warnings", int(defaults.WarnInterval.Seconds()))
	loader.SetDefault("afk_timer", int(defaults.KickTimeout.Minutes()))
	loader.SetDefault("player_threshold", defaults.PlayerThreshold)
	loader.SetDefault("queue_threshold", defaults.QueueThreshold)
	loader.SetDefault("round_start_delay", int(defaults.GracePeriod.Minutes()))

	if configFile != "" {
		loader.SetConfigFile(configFile)
	} else {
		loader.SetConfigName(DefaultConfigName)
		loader.SetConfigType("yaml")
		loader.AddConfigPath(Path(""))
		loader.AddConfigPath(".")
	}

	loader.SetEnvPrefix(EnvPrefix)
	loader.AutomaticEnv()

	return &loader
}

func (cl *Loader) Path() string {
	return cl.ConfigFileUsed()
}

// Watch starts reporting external edits of the config file on the changes channel.
func (cl *Loader) Watch() {
	if cl.ConfigFileUsed() == "" {
		return
	}

	cl.OnConfigChange(cl.onConfigChange)
	cl.WatchConfig()
}

func (cl *Loader) onConfigChange(in fsnotify.Event) {
	if !in.Has(fsnotify.Write) && !in.Has(fsnotify.Rename) && !in.Has(fsnotify.Create) {
		return
	}

	slog.Debug("External config reload triggered", slog.String("path", in.Name))

	config, err := cl.Read()
	if err != nil {
		slog.Error("Error reading config", slog.String("error", err.Error()))

		return
	}

	select {
	case cl.changes <- config:
	default:
		slog.Warn("Dropped config change, previous change still pending")
	}
}

// Read loads and validates the config, see Load.
func (cl *Loader) Read() (Config, error) {
	config, err := cl.Load()
	if err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Load reads the config file, if any, without validating it. A missing file is not an
// error, the defaults and environment are used instead.
func (cl *Loader) Load() (Config, error) {
	if err := cl.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return Config{}, errors.Join(err, errConfigRead)
		}
	}

	var config Config
	if err := cl.Unmarshal(&config); err != nil {
		return Config{}, errors.Join(err, errConfigRead)
	}

	return config, nil
}
