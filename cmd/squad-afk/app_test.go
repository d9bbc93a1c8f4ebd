package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/squad-afk/internal/squad"
	"github.com/leighmacdonald/squad-afk/internal/squad/events"
	"github.com/leighmacdonald/squad-afk/internal/squad/rcon"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

type scriptedServer struct {
	mu      sync.Mutex
	players string
}

func (s *scriptedServer) Exec(_ context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case "ListPlayers":
		return s.players, nil
	case "ShowServerInfo":
		return `{"PlayerCount_I":"2","PublicQueue_I":"0","ReservedQueue_I":"0"}`, nil
	default:
		return "", nil
	}
}

const roster = `----- Active Players -----
ID: 0 | Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba steam: 76561198084134025 | Name: Roy | Team ID: 1 | Squad ID: N/A | Is Leader: False | Role: USA_Rifleman_01
ID: 1 | Online IDs: EOS: 0002b20186d9414496bf20d22d3860bb steam: 76561198084134026 | Name: Moss | Team ID: 1 | Squad ID: N/A | Is Leader: False | Role: USA_Rifleman_01
----- Recently Disconnected Players [Max of 15] -----
`

func TestAppLogEvents(t *testing.T) {
	opts := afk.DefaultOptions()
	opts.PlayerThreshold = -1

	clock := clockwork.NewFakeClock()
	client := rcon.NewClient(&scriptedServer{players: roster})

	tracker, errTracker := afk.NewTracker(clock, opts, client, client)
	require.NoError(t, errTracker)

	app := &App{
		tracker: tracker,
		router:  events.NewRouter(),
		watcher: squad.NewSquadWatcher(clock, client, time.Second, nil),
	}

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	go app.logEventHandler(ctx)

	require.NoError(t, tracker.Reconcile(ctx))
	creator := steamid.New(76561198084134025)
	require.True(t, tracker.IsTracked(creator))

	// Listener registration happens in the handler goroutine.
	require.Eventually(t, func() bool {
		app.router.Send("[2025.08.16-01.30.11:456][900]LogSquad: Roy (Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba steam: 76561198084134025) has created Squad 3 (Squad Name: ARMOR) on United States Army")

		return !tracker.IsTracked(creator)
	}, time.Second, 10*time.Millisecond)

	require.True(t, tracker.IsTracked(steamid.New(76561198084134026)))

	app.router.Send("[2025.08.16-02.00.00:000][100]LogWorld: Bringing World /Game/Maps/Narva/Gameplay_Layers/Narva_AAS_v1.Narva_AAS_v1 up for play (max tick rate 50)")
	require.Eventually(t, func() bool { return tracker.Phase().BetweenRounds }, time.Second, 10*time.Millisecond)
	require.Empty(t, tracker.TrackedIDs())
}
