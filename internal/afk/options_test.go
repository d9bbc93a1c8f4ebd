package afk_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, afk.DefaultOptions().Validate())

	cases := []func(o *afk.Options){
		func(o *afk.Options) { o.WarnInterval = 0 },
		func(o *afk.Options) { o.WarnInterval = -time.Second },
		func(o *afk.Options) { o.KickTimeout = 0 },
		func(o *afk.Options) { o.GracePeriod = -time.Minute },
		func(o *afk.Options) { o.ReconcileInterval = 0 },
		func(o *afk.Options) { o.CleanupInterval = 0 },
	}

	for idx, mutate := range cases {
		opts := afk.DefaultOptions()
		mutate(&opts)
		require.ErrorIs(t, opts.Validate(), afk.ErrInvalidOptions, "case %d", idx)
	}
}

func TestNewTrackerInvalidOptions(t *testing.T) {
	opts := afk.DefaultOptions()
	opts.KickTimeout = 0

	_, err := afk.NewTracker(clockwork.NewFakeClock(), opts, &fakeRoster{}, &fakeActions{})
	require.ErrorIs(t, err, afk.ErrInvalidOptions)
}
