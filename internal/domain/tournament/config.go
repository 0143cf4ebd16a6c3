package tournament

import (
	"time"

	"github.com/webitel/typing-tournament/internal/domain/debounce"
)

// Config holds the manager's tunable thresholds (spec.md §4.5). Values are
// the spec's defaults; deployments override them via config.Config (viper).
type Config struct {
	// JoinDeadline is how long before ScheduledFor joins stop being
	// accepted.
	JoinDeadline time.Duration
	// InactivityTimeout arms each participant's inactivity monitor once
	// the tournament goes Active.
	InactivityTimeout time.Duration
	// EvictionGrace is how long an Ended room is kept before the registry
	// evicts it.
	EvictionGrace time.Duration

	SelfDebounce debounce.Config
	RoomDebounce debounce.Config
}

func DefaultConfig() Config {
	return Config{
		JoinDeadline:      15 * time.Second,
		InactivityTimeout: 30 * time.Second,
		EvictionGrace:     10 * time.Minute,
		SelfDebounce: debounce.Config{
			Debounce: 200 * time.Millisecond,
			MaxStack: 3,
			MaxWait:  time.Second,
		},
		RoomDebounce: debounce.Config{
			Debounce: 400 * time.Millisecond,
			MaxStack: 15,
			MaxWait:  3 * time.Second,
		},
	}
}

// perCharAllowance and minDuration parameterize the "text-dependent
// duration" spec.md §4.5 leaves unspecified: an allowance generous enough
// for a slow typist plus a floor so a trivially short text still gives
// everyone a fair window.
const (
	perCharAllowance = 300 * time.Millisecond
	minDuration      = 30 * time.Second
)

func textDuration(text []byte) time.Duration {
	d := time.Duration(len(text)) * perCharAllowance
	if d < minDuration {
		return minDuration
	}
	return d
}
