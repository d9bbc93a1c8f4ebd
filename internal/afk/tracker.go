package afk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// Status is a point in time view of the tracker.
type Status struct {
	Phase   RoundPhase
	Tracked []TrackedPlayer
}

// Tracker reconciles the server roster against the registry of tracked players. It is
// driven by its own reconcile and cleanup tickers (see Start) as well as by the round start
// and squad change notifications.
type Tracker struct {
	clock    clockwork.Clock
	opts     Options
	roster   RosterSource
	registry *Registry

	// passMu serializes reconcile and cleanup passes and squad joins.
	passMu sync.Mutex
	// joinSeq is bumped on every squad join. A pass only starts tracking a player whose
	// last join happened before its roster was fetched.
	joinSeq atomic.Uint64
	joined  map[steamid.SteamID]uint64

	phaseMu    sync.RWMutex
	phase      RoundPhase
	graceTimer clockwork.Timer
	graceGen   uint64
}

func NewTracker(clock clockwork.Clock, opts Options, roster RosterSource, actions Actions, recorders ...Recorder) (*Tracker, error) {
	registry, errRegistry := NewRegistry(clock, opts, actions, recorders...)
	if errRegistry != nil {
		return nil, errRegistry
	}

	return &Tracker{
		clock:    clock,
		opts:     opts,
		roster:   roster,
		registry: registry,
		joined:   map[steamid.SteamID]uint64{},
	}, nil
}

// Start runs the periodic reconcile and cleanup passes until the context is cancelled. All
// tracking is torn down on exit.
func (t *Tracker) Start(ctx context.Context) error {
	reconcileTicker := t.clock.NewTicker(t.opts.ReconcileInterval)
	cleanupTicker := t.clock.NewTicker(t.opts.CleanupInterval)

	defer func() {
		reconcileTicker.Stop()
		cleanupTicker.Stop()
		t.shutdown(ctx)
	}()

	slog.Info("Starting afk tracker", slog.String("reconcile_interval", t.opts.ReconcileInterval.String()),
		slog.String("cleanup_interval", t.opts.CleanupInterval.String()))

	for {
		select {
		case <-reconcileTicker.Chan():
			if err := t.Reconcile(ctx); err != nil {
				slog.Error("Failed to reconcile tracked players", slog.String("error", err.Error()))
			}
		case <-cleanupTicker.Chan():
			if err := t.Cleanup(ctx); err != nil {
				slog.Error("Failed to cleanup tracked players", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *Tracker) shutdown(ctx context.Context) {
	t.phaseMu.Lock()
	if t.graceTimer != nil {
		t.graceTimer.Stop()
		t.graceTimer = nil
	}
	t.phaseMu.Unlock()

	t.registry.StopAll(context.WithoutCancel(ctx))
}

// Reconcile fetches the roster and reconciles the registry against it.
func (t *Tracker) Reconcile(ctx context.Context) error {
	fetchedAt := t.joinSeq.Load()

	snapshot, errRoster := t.roster.Roster(ctx)
	if errRoster != nil {
		return errors.Join(errRoster, ErrRoster)
	}

	t.passMu.Lock()
	defer t.passMu.Unlock()

	t.reconcile(ctx, snapshot, fetchedAt)

	return nil
}

// ReconcileSnapshot performs a single reconciliation pass. When the run conditions are not
// met every tracked player is dropped. Otherwise unassigned players are tracked, players who
// joined a squad or left the server are dropped. Running it twice with the same snapshot is
// a no-op the second time.
func (t *Tracker) ReconcileSnapshot(ctx context.Context, snapshot Snapshot) {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	t.reconcile(ctx, snapshot, t.joinSeq.Load())
}

// reconcile must be called with passMu held. fetchedAt is the join sequence observed
// before the snapshot was taken.
func (t *Tracker) reconcile(ctx context.Context, snapshot Snapshot, fetchedAt uint64) {
	defer t.forgetJoins(fetchedAt)

	phase := t.Phase()
	if !ShouldTrack(phase, snapshot, t.opts) {
		if t.registry.Len() > 0 {
			slog.Info("Run conditions not met, clearing tracked players", slog.Int("count", t.registry.Len()))
		}

		t.registry.StopAll(ctx)
		t.logPass(phase, snapshot)

		return
	}

	for _, player := range snapshot.Players {
		tracked := t.registry.IsTracked(player.SteamID)

		switch {
		case player.Unassigned() && !tracked:
			if t.joined[player.SteamID] > fetchedAt {
				slog.Debug("Player joined a squad after the roster was fetched",
					slog.String("steam_id", player.SteamID.String()))

				continue
			}

			if err := t.registry.StartTracking(ctx, player.SteamID); err != nil {
				t.logMutationErr(err, player.SteamID)
			}
		case !player.Unassigned() && tracked:
			if err := t.registry.StopTracking(ctx, player.SteamID); err != nil {
				t.logMutationErr(err, player.SteamID)
			}
		}
	}

	// Also drop anyone who vanished from the roster, the cleanup scan is only a backstop.
	t.removeOrphans(ctx, snapshot)
	t.logPass(phase, snapshot)
}

func (t *Tracker) logPass(phase RoundPhase, snapshot Snapshot) {
	status := Status{Phase: phase, Tracked: t.registry.Tracked()}
	trackedIDs := make([]string, 0, len(status.Tracked))

	for _, player := range status.Tracked {
		trackedIDs = append(trackedIDs, player.SteamID.String())
	}

	slog.Debug("Reconciled tracked players", slog.Int("roster", len(snapshot.Players)),
		slog.Bool("between_rounds", status.Phase.BetweenRounds), slog.Int("tracked", len(trackedIDs)),
		slog.Any("tracked_ids", trackedIDs))
}

// forgetJoins drops joins that any later snapshot already reflects.
func (t *Tracker) forgetJoins(fetchedAt uint64) {
	for steamID, seq := range t.joined {
		if seq <= fetchedAt {
			delete(t.joined, steamID)
		}
	}
}

// Cleanup fetches the roster and drops every tracked player that is no longer connected.
func (t *Tracker) Cleanup(ctx context.Context) error {
	snapshot, errRoster := t.roster.Roster(ctx)
	if errRoster != nil {
		return errors.Join(errRoster, ErrRoster)
	}

	t.CleanupSnapshot(ctx, snapshot)

	return nil
}

func (t *Tracker) CleanupSnapshot(ctx context.Context, snapshot Snapshot) {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	t.removeOrphans(ctx, snapshot)
}

func (t *Tracker) removeOrphans(ctx context.Context, snapshot Snapshot) {
	for _, steamID := range t.registry.AllTrackedIDs() {
		if snapshot.Contains(steamID) {
			continue
		}

		if err := t.registry.StopTracking(ctx, steamID); err != nil {
			t.logMutationErr(err, steamID)
		}
	}
}

// OnRoundStart enters the grace window and immediately reconciles, which clears tracking
// unless a threshold override applies. A round start during an active grace window restarts it.
func (t *Tracker) OnRoundStart(ctx context.Context) error {
	t.phaseMu.Lock()
	t.graceGen++
	gen := t.graceGen
	if t.graceTimer != nil {
		t.graceTimer.Stop()
	}
	t.graceTimer = nil
	t.phase = RoundPhase{BetweenRounds: true, GraceDeadline: t.clock.Now().Add(t.opts.GracePeriod)}
	t.phaseMu.Unlock()

	// Armed outside the lock, the callback may run before AfterFunc returns.
	graceTimer := t.clock.AfterFunc(t.opts.GracePeriod, func() { t.endGrace(gen) })

	t.phaseMu.Lock()
	if gen == t.graceGen && t.phase.BetweenRounds {
		t.graceTimer = graceTimer
	}
	t.phaseMu.Unlock()

	slog.Info("New round started, tracking suspended", slog.String("grace_period", t.opts.GracePeriod.String()))

	if errReconcile := t.Reconcile(ctx); errReconcile != nil {
		// Without a roster no override can be confirmed.
		t.passMu.Lock()
		t.registry.StopAll(ctx)
		t.passMu.Unlock()

		return errReconcile
	}

	return nil
}

func (t *Tracker) endGrace(gen uint64) {
	t.phaseMu.Lock()
	defer t.phaseMu.Unlock()

	if gen != t.graceGen {
		return
	}

	t.phase = RoundPhase{}
	t.graceTimer = nil

	slog.Info("Round start grace period over, tracking resumed")
}

// OnSquadChange drops a tracked player as soon as they join a squad instead of waiting
// for the next reconcile pass. A nil squadID means the player left their squad, which is
// picked up by the next pass.
func (t *Tracker) OnSquadChange(ctx context.Context, steamID steamid.SteamID, squadID *int) {
	if squadID == nil {
		return
	}

	t.passMu.Lock()
	defer t.passMu.Unlock()

	t.joined[steamID] = t.joinSeq.Add(1)

	if !t.registry.IsTracked(steamID) {
		return
	}

	if err := t.registry.StopTracking(ctx, steamID); err != nil {
		t.logMutationErr(err, steamID)
	}
}

func (t *Tracker) Phase() RoundPhase {
	t.phaseMu.RLock()
	defer t.phaseMu.RUnlock()

	return t.phase
}

func (t *Tracker) IsTracked(steamID steamid.SteamID) bool {
	return t.registry.IsTracked(steamID)
}

func (t *Tracker) TrackedIDs() steamid.Collection {
	return t.registry.AllTrackedIDs()
}

func (t *Tracker) Status() Status {
	return Status{Phase: t.Phase(), Tracked: t.registry.Tracked()}
}

func (t *Tracker) logMutationErr(err error, steamID steamid.SteamID) {
	if errors.Is(err, ErrAlreadyTracked) || errors.Is(err, ErrNotTracked) {
		// Benign races between notifications and passes.
		return
	}

	slog.Error("Failed to update tracked player", slog.String("steam_id", steamID.String()),
		slog.String("error", err.Error()))
}

// GraceRemaining returns how long tracking remains suspended, zero when it is not.
func (t *Tracker) GraceRemaining() time.Duration {
	phase := t.Phase()
	if !phase.BetweenRounds {
		return 0
	}

	return max(0, phase.GraceDeadline.Sub(t.clock.Now()))
}
