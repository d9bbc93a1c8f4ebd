package afk

import "time"

// RoundPhase records whether we are inside the post round start grace window.
type RoundPhase struct {
	BetweenRounds bool
	GraceDeadline time.Time
}

// ShouldTrack decides if unassigned players should currently be tracked. Outside the
// grace window tracking is always active. Inside it, tracking only runs when the
// population or the queue exceeds its configured threshold.
func ShouldTrack(phase RoundPhase, snapshot Snapshot, opts Options) bool {
	if !phase.BetweenRounds {
		return true
	}

	if opts.PlayerThreshold > 0 && snapshot.PlayerCount > opts.PlayerThreshold {
		return true
	}

	if opts.QueueThreshold > 0 && snapshot.PublicQueue+snapshot.ReserveQueue > opts.QueueThreshold {
		return true
	}

	return false
}
