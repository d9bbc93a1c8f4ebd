package afk_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond * 5
)

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		expected  string
	}{
		{remaining: 6 * time.Minute, expected: "6:00"},
		{remaining: 5*time.Minute + 30*time.Second, expected: "5:30"},
		{remaining: 61*time.Second + 999*time.Millisecond, expected: "1:01"},
		{remaining: 9 * time.Second, expected: "0:09"},
		{remaining: 999 * time.Millisecond, expected: "0:00"},
	}

	for _, testCase := range cases {
		require.Equal(t, testCase.expected, afk.FormatRemaining(testCase.remaining))
	}

	require.Equal(t, "Join a squad - 2:15", afk.WarningText("Join a squad", 135*time.Second))
}

func TestTimerWarnsThenKicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	actions := &fakeActions{}
	opts := testOptions()

	registry, errRegistry := afk.NewRegistry(clock, opts, actions)
	require.NoError(t, errRegistry)
	t.Cleanup(func() { registry.StopAll(t.Context()) })

	steamID := testSID(0)
	require.NoError(t, registry.StartTracking(t.Context(), steamID))

	// Warnings at 30s, 60s ... 330s.
	for expected := 1; expected <= 11; expected++ {
		clock.Advance(opts.WarnInterval)
		require.Eventually(t, func() bool { return len(actions.Warnings()) == expected }, waitFor, tick)
		require.Empty(t, actions.Kicks())
	}

	warnings := actions.Warnings()
	require.Equal(t, afk.DefaultWarningMessage+" - 5:30", warnings[0].message)
	require.Equal(t, afk.DefaultWarningMessage+" - 3:00", warnings[5].message)
	require.Equal(t, afk.DefaultWarningMessage+" - 0:30", warnings[10].message)
	require.True(t, warnings[0].steamID.Equal(steamID))

	// The kick at 360s.
	clock.Advance(opts.WarnInterval)
	require.Eventually(t, func() bool { return len(actions.Kicks()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return !registry.IsTracked(steamID) }, waitFor, tick)
	require.Equal(t, afk.DefaultKickMessage, actions.Kicks()[0].message)

	clock.Advance(opts.KickTimeout)
	require.Never(t, func() bool { return len(actions.Warnings()) != 11 || len(actions.Kicks()) != 1 }, time.Millisecond*50, tick)
}

func TestTimerStopCancelsEverything(t *testing.T) {
	clock := clockwork.NewFakeClock()
	actions := &fakeActions{}
	opts := testOptions()

	registry, errRegistry := afk.NewRegistry(clock, opts, actions)
	require.NoError(t, errRegistry)

	steamID := testSID(1)
	require.NoError(t, registry.StartTracking(t.Context(), steamID))

	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return len(actions.Warnings()) == 1 }, waitFor, tick)

	clock.Advance(15 * time.Second)
	require.NoError(t, registry.StopTracking(t.Context(), steamID))
	require.False(t, registry.IsTracked(steamID))

	for range 12 {
		clock.Advance(opts.WarnInterval)
	}

	require.Never(t, func() bool { return len(actions.Warnings()) != 1 || len(actions.Kicks()) != 0 }, time.Millisecond*50, tick)
}

func TestTimerKickFailureStillReleases(t *testing.T) {
	clock := clockwork.NewFakeClock()
	actions := &fakeActions{failKick: true}
	recorder := &fakeRecorder{}
	opts := testOptions()
	opts.WarnInterval = time.Minute
	opts.KickTimeout = time.Minute * 2

	registry, errRegistry := afk.NewRegistry(clock, opts, actions, recorder)
	require.NoError(t, errRegistry)

	steamID := testSID(2)
	require.NoError(t, registry.StartTracking(t.Context(), steamID))

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return len(actions.Warnings()) == 1 }, waitFor, tick)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return !registry.IsTracked(steamID) }, waitFor, tick)
	require.Len(t, actions.Kicks(), 1)
	require.Equal(t, []afk.ActionKind{afk.ActionTrack, afk.ActionWarn, afk.ActionKick}, recorder.Kinds())

	// Tracking again afterwards gets a fresh pair of timers.
	require.NoError(t, registry.StartTracking(t.Context(), steamID))
	require.True(t, registry.IsTracked(steamID))
	require.NoError(t, registry.StopTracking(t.Context(), steamID))
}
