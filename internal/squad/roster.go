package squad

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// SquadChange is a change of squad membership between two roster polls. A nil SquadID means
// the player left their squad.
type SquadChange struct {
	SteamID steamid.SteamID
	SquadID *int
}

// DiffSquads returns the squad membership changes between two rosters. Players who only
// appear in next are reported when they already belong to a squad. Players missing from next
// are left to the cleanup passes.
func DiffSquads(prev []afk.Player, next []afk.Player) []SquadChange {
	previous := make(map[steamid.SteamID]*int, len(prev))
	for _, player := range prev {
		previous[player.SteamID] = player.SquadID
	}

	var changes []SquadChange

	for _, player := range next {
		before, found := previous[player.SteamID]
		if !found {
			if player.SquadID != nil {
				changes = append(changes, SquadChange{SteamID: player.SteamID, SquadID: player.SquadID})
			}

			continue
		}

		if sameSquad(before, player.SquadID) {
			continue
		}

		changes = append(changes, SquadChange{SteamID: player.SteamID, SquadID: player.SquadID})
	}

	return changes
}

func sameSquad(a *int, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// SquadChangeFunc is called for every detected squad change.
type SquadChangeFunc func(ctx context.Context, change SquadChange)

// SquadWatcher polls the roster and reports squad membership changes. It exists because the
// server log only announces squad creation, not players joining an existing squad.
type SquadWatcher struct {
	clock    clockwork.Clock
	roster   afk.RosterSource
	interval time.Duration
	onChange SquadChangeFunc
	last     []afk.Player
}

func NewSquadWatcher(clock clockwork.Clock, roster afk.RosterSource, interval time.Duration, onChange SquadChangeFunc) *SquadWatcher {
	return &SquadWatcher{
		clock:    clock,
		roster:   roster,
		interval: interval,
		onChange: onChange,
	}
}

// Poll fetches the roster once and dispatches the changes since the previous poll. The first
// poll only establishes the baseline.
func (w *SquadWatcher) Poll(ctx context.Context) error {
	snapshot, errRoster := w.roster.Roster(ctx)
	if errRoster != nil {
		return errRoster
	}

	if w.last != nil {
		for _, change := range DiffSquads(w.last, snapshot.Players) {
			w.onChange(ctx, change)
		}
	}

	w.last = snapshot.Players
	if w.last == nil {
		w.last = []afk.Player{}
	}

	return nil
}

func (w *SquadWatcher) Start(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := w.Poll(ctx); err != nil {
				slog.Warn("Failed to poll squads", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return nil
		}
	}
}
