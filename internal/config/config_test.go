package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/squad-afk/internal/config"
	"github.com/stretchr/testify/require"
)

const testConfig = `address: 127.0.0.1:21114
password: secret
log_path: /srv/squad/SquadGame/Saved/Logs/SquadGame.log
roster_poll_interval: 5s
frequency_of_warnings: 60
afk_timer: 10
round_start_delay: 0
queue_threshold: 5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "squad-afk.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))

	return configPath
}

func TestLoaderRead(t *testing.T) {
	loader := config.NewLoader(make(chan config.Config), writeConfig(t, testConfig))

	conf, errRead := loader.Read()
	require.NoError(t, errRead)
	require.Equal(t, "127.0.0.1:21114", conf.Address)
	require.Equal(t, "secret", conf.Password)
	require.Equal(t, 5*time.Second, conf.RosterPollInterval)
	require.Equal(t, time.Minute, conf.ReconcileInterval)
	require.Equal(t, "squad.afk", conf.NATSSubject)

	opts := conf.Options()
	require.Equal(t, time.Minute, opts.WarnInterval)
	require.Equal(t, 10*time.Minute, opts.KickTimeout)
	require.Zero(t, opts.GracePeriod)
	require.Equal(t, afk.DefaultPlayerThreshold, opts.PlayerThreshold)
	require.Equal(t, 5, opts.QueueThreshold)
	require.Equal(t, afk.DefaultWarningMessage, opts.WarningMessage)
	require.NoError(t, opts.Validate())
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("SQUADAFK_PLAYER_THRESHOLD", "50")
	t.Setenv("SQUADAFK_KICK_MESSAGE", "Bye")

	conf, errRead := config.NewLoader(make(chan config.Config), writeConfig(t, testConfig)).Read()
	require.NoError(t, errRead)
	require.Equal(t, 50, conf.PlayerThreshold)
	require.Equal(t, "Bye", conf.KickMessage)
}

func TestLoaderInvalid(t *testing.T) {
	_, errRead := config.NewLoader(make(chan config.Config), writeConfig(t, "frequency_of_warnings: 0\n")).Read()
	require.Error(t, errRead)
	require.ErrorIs(t, errRead, afk.ErrInvalidOptions)
}

func TestLoaderLoadSkipsValidation(t *testing.T) {
	conf, errLoad := config.NewLoader(make(chan config.Config), writeConfig(t, "database_path: /tmp/afk.db\n")).Load()
	require.NoError(t, errLoad)
	require.Empty(t, conf.Address)
	require.Equal(t, "/tmp/afk.db", conf.DatabasePath)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", config.ParseLevel("debug").String())
	require.Equal(t, "WARN", config.ParseLevel("warn").String())
	require.Equal(t, "INFO", config.ParseLevel("bogus").String())
}

func TestLoggerInit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "squad-afk.log")
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	closer, errInit := config.LoggerInit(logPath, config.ParseLevel("info"))
	require.NoError(t, errInit)
	require.NoError(t, closer.Close())
	require.FileExists(t, logPath)
}
