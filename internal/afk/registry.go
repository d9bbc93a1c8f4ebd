package afk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// actionTimeout bounds each rcon call made from a timer fire.
const actionTimeout = 10 * time.Second

// TrackedPlayer is a read only view of a registry entry.
type TrackedPlayer struct {
	SteamID   steamid.SteamID
	SessionID uuid.UUID
	Started   time.Time
	Remaining time.Duration
}

// Registry is the set of currently tracked players. It exclusively owns the timers of every
// entry, nothing else may start or stop them.
type Registry struct {
	mu        sync.Mutex
	players   map[steamid.SteamID]*playerTimer
	clock     clockwork.Clock
	opts      Options
	actions   Actions
	recorders []Recorder
}

func NewRegistry(clock clockwork.Clock, opts Options, actions Actions, recorders ...Recorder) (*Registry, error) {
	if errValidate := opts.Validate(); errValidate != nil {
		return nil, errValidate
	}

	return &Registry{
		players:   make(map[steamid.SteamID]*playerTimer),
		clock:     clock,
		opts:      opts,
		actions:   actions,
		recorders: recorders,
	}, nil
}

// StartTracking starts the warn/kick timers for a player.
func (r *Registry) StartTracking(ctx context.Context, steamID steamid.SteamID) error {
	if !steamID.Valid() {
		return ErrInvalidSteamID
	}

	r.mu.Lock()

	if _, found := r.players[steamID]; found {
		r.mu.Unlock()
		slog.Debug("Player already tracked", slog.String("steam_id", steamID.String()))

		return ErrAlreadyTracked
	}

	timer, errTimer := newPlayerTimer(r.clock, steamID, r.opts.WarnInterval, r.opts.KickTimeout)
	if errTimer != nil {
		r.mu.Unlock()

		return errTimer
	}

	r.players[steamID] = timer
	r.mu.Unlock()

	// Timer fires must outlive whatever request triggered the tracking.
	go timer.run(context.WithoutCancel(ctx), r)

	slog.Info("Tracking unassigned player", slog.String("steam_id", steamID.String()),
		slog.String("session", timer.sessionID.String()))
	r.record(ctx, Action{Kind: ActionTrack, SteamID: steamID, SessionID: timer.sessionID, CreatedOn: timer.started})

	return nil
}

// StopTracking cancels the timers of a tracked player and removes it. When it returns no
// further warning or kick will be issued for the removed entry.
func (r *Registry) StopTracking(ctx context.Context, steamID steamid.SteamID) error {
	r.mu.Lock()
	timer, found := r.players[steamID]
	if found {
		delete(r.players, steamID)
	}
	r.mu.Unlock()

	if !found {
		slog.Debug("Player not tracked", slog.String("steam_id", steamID.String()))

		return ErrNotTracked
	}

	timer.cancel()

	slog.Info("Stopped tracking player", slog.String("steam_id", steamID.String()),
		slog.String("session", timer.sessionID.String()))
	r.record(ctx, Action{Kind: ActionUntrack, SteamID: steamID, SessionID: timer.sessionID, CreatedOn: r.clock.Now()})

	return nil
}

// StopAll removes every tracked player.
func (r *Registry) StopAll(ctx context.Context) {
	for _, steamID := range r.AllTrackedIDs() {
		if err := r.StopTracking(ctx, steamID); err != nil && !errors.Is(err, ErrNotTracked) {
			slog.Error("Failed to stop tracking", slog.String("steam_id", steamID.String()),
				slog.String("error", err.Error()))
		}
	}
}

func (r *Registry) IsTracked(steamID steamid.SteamID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, found := r.players[steamID]

	return found
}

// AllTrackedIDs returns a snapshot of the tracked ids.
func (r *Registry) AllTrackedIDs() steamid.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(steamid.Collection, 0, len(r.players))
	for steamID := range r.players {
		ids = append(ids, steamID)
	}

	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.players)
}

// Tracked returns the current entries along with their remaining time.
func (r *Registry) Tracked() []TrackedPlayer {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	tracked := make([]TrackedPlayer, 0, len(r.players))
	for steamID, timer := range r.players {
		tracked = append(tracked, TrackedPlayer{
			SteamID:   steamID,
			SessionID: timer.sessionID,
			Started:   timer.started,
			Remaining: timer.Remaining(now),
		})
	}

	return tracked
}

func (r *Registry) warnPlayer(ctx context.Context, timer *playerTimer, remaining time.Duration) {
	message := WarningText(r.opts.WarningMessage, remaining)

	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	action := Action{Kind: ActionWarn, SteamID: timer.steamID, SessionID: timer.sessionID, Message: message, CreatedOn: r.clock.Now()}
	if errWarn := r.actions.SendWarning(actionCtx, timer.steamID, message); errWarn != nil {
		slog.Warn("Failed to warn player", slog.String("steam_id", timer.steamID.String()),
			slog.String("error", errWarn.Error()))
		action.Error = errWarn.Error()
	}

	r.record(ctx, action)
}

func (r *Registry) kickPlayer(ctx context.Context, timer *playerTimer) {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	action := Action{Kind: ActionKick, SteamID: timer.steamID, SessionID: timer.sessionID, Message: r.opts.KickMessage, CreatedOn: r.clock.Now()}
	if errKick := r.actions.KickPlayer(actionCtx, timer.steamID, r.opts.KickMessage); errKick != nil {
		// They are most likely gone already, the entry is dropped either way.
		slog.Warn("Failed to kick player", slog.String("steam_id", timer.steamID.String()),
			slog.String("error", errKick.Error()))
		action.Error = errKick.Error()
	} else {
		slog.Info("Kicked unassigned player", slog.String("steam_id", timer.steamID.String()),
			slog.String("session", timer.sessionID.String()))
	}

	r.record(ctx, action)
}

// release drops the entry after its kick fired. A newer entry for the same player is left alone.
func (r *Registry) release(timer *playerTimer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, found := r.players[timer.steamID]; found && current == timer {
		delete(r.players, timer.steamID)
	}
}

func (r *Registry) record(ctx context.Context, action Action) {
	for _, recorder := range r.recorders {
		if errRecord := recorder.Record(ctx, action); errRecord != nil {
			slog.Error("Failed to record action", slog.String("kind", string(action.Kind)),
				slog.String("error", errRecord.Error()))
		}
	}
}
