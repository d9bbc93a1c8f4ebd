package afk

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultWarningMessage    = "Join a squad, you are are unassigned and will be kicked"
	DefaultKickMessage       = "Unassigned - automatically removed"
	DefaultWarnInterval      = 30 * time.Second
	DefaultKickTimeout       = 6 * time.Minute
	DefaultGracePeriod       = 15 * time.Minute
	DefaultPlayerThreshold   = 93
	DefaultQueueThreshold    = -1
	DefaultReconcileInterval = time.Minute
	DefaultCleanupInterval   = 20 * time.Minute
)

// Options controls the tracking behaviour. They are fixed once a Tracker is created.
type Options struct {
	WarningMessage string
	KickMessage    string
	// WarnInterval is how often a tracked player is reminded.
	WarnInterval time.Duration
	// KickTimeout is how long a player may stay unassigned before being kicked.
	KickTimeout time.Duration
	// GracePeriod suspends tracking after a new round starts.
	GracePeriod time.Duration
	// PlayerThreshold overrides the grace period once the player count exceeds it. Values <= 0 disable it.
	PlayerThreshold int
	// QueueThreshold overrides the grace period once the combined queue exceeds it. Values <= 0 disable it.
	QueueThreshold    int
	ReconcileInterval time.Duration
	CleanupInterval   time.Duration
}

func DefaultOptions() Options {
	return Options{
		WarningMessage:    DefaultWarningMessage,
		KickMessage:       DefaultKickMessage,
		WarnInterval:      DefaultWarnInterval,
		KickTimeout:       DefaultKickTimeout,
		GracePeriod:       DefaultGracePeriod,
		PlayerThreshold:   DefaultPlayerThreshold,
		QueueThreshold:    DefaultQueueThreshold,
		ReconcileInterval: DefaultReconcileInterval,
		CleanupInterval:   DefaultCleanupInterval,
	}
}

// Validate rejects any option that would produce runaway or meaningless timers.
func (o Options) Validate() error {
	var err error

	if o.WarnInterval <= 0 {
		err = errors.Join(err, fmt.Errorf("warn interval must be positive, got %s", o.WarnInterval))
	}

	if o.KickTimeout <= 0 {
		err = errors.Join(err, fmt.Errorf("kick timeout must be positive, got %s", o.KickTimeout))
	}

	if o.GracePeriod < 0 {
		err = errors.Join(err, fmt.Errorf("grace period must not be negative, got %s", o.GracePeriod))
	}

	if o.ReconcileInterval <= 0 {
		err = errors.Join(err, fmt.Errorf("reconcile interval must be positive, got %s", o.ReconcileInterval))
	}

	if o.CleanupInterval <= 0 {
		err = errors.Join(err, fmt.Errorf("cleanup interval must be positive, got %s", o.CleanupInterval))
	}

	if err != nil {
		return errors.Join(err, ErrInvalidOptions)
	}

	return nil
}
