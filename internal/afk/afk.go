// Package afk implements tracking of players who are connected to the server without
// being a member of a squad. Tracked players are periodically warned and, once their
// timeout elapses, kicked.
//
// The Tracker is the entry point. It owns a Registry of tracked players, evaluates the
// run conditions against each roster snapshot and reacts to round start and squad change
// notifications.
package afk

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	ErrInvalidOptions = errors.New("invalid afk options")
	ErrAlreadyTracked = errors.New("player already tracked")
	ErrNotTracked     = errors.New("player not tracked")
	ErrInvalidSteamID = errors.New("invalid steam id")
	ErrRoster         = errors.New("failed to fetch roster")
)

// Player is a single entry of the server roster.
type Player struct {
	SteamID steamid.SteamID
	Name    string
	TeamID  int
	// SquadID is nil when the player is not a member of any squad.
	SquadID *int
}

func (p Player) Unassigned() bool {
	return p.SquadID == nil
}

// Snapshot is the read-only view of the server used for a single reconciliation pass.
type Snapshot struct {
	Players      []Player
	PlayerCount  int
	PublicQueue  int
	ReserveQueue int
}

// Contains reports whether the steam id is currently connected.
func (s Snapshot) Contains(steamID steamid.SteamID) bool {
	for _, player := range s.Players {
		if player.SteamID.Equal(steamID) {
			return true
		}
	}

	return false
}

// RosterSource provides the current server roster and population counts.
type RosterSource interface {
	Roster(ctx context.Context) (Snapshot, error)
}

// Actions are the administrative commands issued against tracked players. Both are
// best effort, a failure is logged and otherwise ignored.
type Actions interface {
	SendWarning(ctx context.Context, steamID steamid.SteamID, message string) error
	KickPlayer(ctx context.Context, steamID steamid.SteamID, message string) error
}

type ActionKind string

const (
	ActionTrack   ActionKind = "track"
	ActionUntrack ActionKind = "untrack"
	ActionWarn    ActionKind = "warn"
	ActionKick    ActionKind = "kick"
)

// Action describes something that happened to a tracked player. They are handed to every
// registered Recorder.
type Action struct {
	Kind      ActionKind
	SteamID   steamid.SteamID
	SessionID uuid.UUID
	Message   string
	Error     string
	CreatedOn time.Time
}

// Recorder observes tracking actions, eg. for auditing or publishing.
type Recorder interface {
	Record(ctx context.Context, action Action) error
}
