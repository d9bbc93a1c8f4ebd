package afk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// timerOwner receives the fires of a playerTimer. The owner is responsible for issuing the
// actual actions and for dropping the timer once the kick has happened.
type timerOwner interface {
	warnPlayer(ctx context.Context, timer *playerTimer, remaining time.Duration)
	kickPlayer(ctx context.Context, timer *playerTimer)
	release(timer *playerTimer)
}

// playerTimer holds the warn ticker and kick timer pair of a single tracked player.
//
// The cancelled flag is only changed while holding mu, and actions are only issued while
// holding mu after checking it. Once cancel returns no further action can happen.
type playerTimer struct {
	steamID   steamid.SteamID
	sessionID uuid.UUID
	started   time.Time
	timeout   time.Duration

	mu        sync.Mutex
	cancelled bool

	warn     clockwork.Ticker
	kick     clockwork.Timer
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// newPlayerTimer creates and arms the timers immediately so that the deadlines are anchored to
// the tracking start, not to whenever the goroutine gets scheduled.
func newPlayerTimer(clock clockwork.Clock, steamID steamid.SteamID, warnInterval time.Duration, kickTimeout time.Duration) (*playerTimer, error) {
	if warnInterval <= 0 || kickTimeout <= 0 {
		return nil, fmt.Errorf("%w: warn interval %s, kick timeout %s", ErrInvalidOptions, warnInterval, kickTimeout)
	}

	return &playerTimer{
		steamID:   steamID,
		sessionID: uuid.New(),
		started:   clock.Now(),
		timeout:   kickTimeout,
		warn:      clock.NewTicker(warnInterval),
		kick:      clock.NewTimer(kickTimeout),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// run waits for timer fires until the player is kicked or the timer is cancelled.
func (t *playerTimer) run(ctx context.Context, owner timerOwner) {
	defer close(t.done)
	defer t.stopTimers()

	for {
		select {
		case <-t.stop:
			return
		case now := <-t.warn.Chan():
			t.fireWarn(ctx, owner, now)
		case <-t.kick.Chan():
			if t.fireKick(ctx, owner) {
				owner.release(t)
			}

			return
		}
	}
}

func (t *playerTimer) fireWarn(ctx context.Context, owner timerOwner, now time.Time) {
	remaining := t.Remaining(now)
	if remaining <= 0 {
		// The kick timer owns this instant.
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return
	}

	owner.warnPlayer(ctx, t, remaining)
}

func (t *playerTimer) fireKick(ctx context.Context, owner timerOwner) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return false
	}

	t.cancelled = true
	owner.kickPlayer(ctx, t)

	return true
}

// cancel stops both timers. It blocks while an action for this player is in flight.
func (t *playerTimer) cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()

	t.stopTimers()
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *playerTimer) stopTimers() {
	t.warn.Stop()
	t.kick.Stop()
}

// Remaining returns the time left until the kick, measured from the original tracking start.
func (t *playerTimer) Remaining(now time.Time) time.Duration {
	return t.timeout - now.Sub(t.started)
}

// FormatRemaining renders a duration as minutes:seconds, truncating both parts.
func FormatRemaining(remaining time.Duration) string {
	msLeft := remaining.Milliseconds()
	minutes := msLeft / 60000
	seconds := (msLeft / 1000) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// WarningText interpolates the remaining time into the warning message.
func WarningText(message string, remaining time.Duration) string {
	return fmt.Sprintf("%s - %s", message, FormatRemaining(remaining))
}
