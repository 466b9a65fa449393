// Package run tracks the lifecycle of a single run and ends or restarts it
// through the host game when the player takes a hit.
package run

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/retroenv/retrogolib/log"
)

// ErrUnsupportedOnHit is returned for unknown on hit actions.
var ErrUnsupportedOnHit = errors.New("unsupported on hit action")

// OnHit is the action taken when the player gets hit.
type OnHit int

const (
	EndRun OnHit = iota
	RestartNewShard
	RestartSameShard
)

var onHitNames = map[OnHit]string{
	EndRun:           "end_run",
	RestartNewShard:  "restart_new_shard",
	RestartSameShard: "restart_same_shard",
}

// ParseOnHit converts the text form of an action. An empty string returns EndRun.
func ParseOnHit(s string) (OnHit, error) {
	if s == "" {
		return EndRun, nil
	}
	s = strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	for action, name := range onHitNames {
		if name == s {
			return action, nil
		}
	}
	return 0, fmt.Errorf("'%s': %w", s, ErrUnsupportedOnHit)
}

func (o OnHit) String() string {
	if name, ok := onHitNames[o]; ok {
		return name
	}
	return fmt.Sprintf("on_hit(%d)", int(o))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OnHit) UnmarshalText(text []byte) error {
	action, err := ParseOnHit(string(text))
	if err != nil {
		return err
	}
	*o = action
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (o OnHit) MarshalText() ([]byte, error) {
	if _, ok := onHitNames[o]; !ok {
		return nil, fmt.Errorf("%d: %w", int(o), ErrUnsupportedOnHit)
	}
	return []byte(o.String()), nil
}

// Config is the configuration a run was started with.
type Config struct {
	Name string
}

// Data is the state of the current run.
type Data struct {
	ShardID     int
	CurrentSeed int
}

// Host is the run handler of the game.
type Host interface {
	// LoseRun ends the current run as lost.
	LoseRun(transitionOut bool)
	// ClearCurrentRun discards the current run without ending it.
	ClearCurrentRun()
	// StartAndPlayNewRun starts a new run in the shard.
	StartAndPlayNewRun(cfg Config, shardID, seed int)
	// GenerateSeed returns a new random seed.
	GenerateSeed() int
	// Current returns the configuration and state of the current run.
	Current() (Config, Data)
}

// Run guards the knockout of a single run so that it is triggered at most
// once, even if multiple hits are registered before the run ends.
type Run struct {
	logger    *log.Logger
	triggered atomic.Bool
}

// New returns a new run tracker.
func New(logger *log.Logger) *Run {
	return &Run{
		logger: logger,
	}
}

// Reset marks the start of a new run.
func (r *Run) Reset() {
	r.triggered.Store(false)
}

// TryTrigger returns true for the first call after a reset.
func (r *Run) TryTrigger() bool {
	return r.triggered.CompareAndSwap(false, true)
}

// Triggered returns whether the knockout was triggered in this run.
func (r *Run) Triggered() bool {
	return r.triggered.Load()
}

// Knockout ends or restarts the current run depending on the action.
func (r *Run) Knockout(host Host, onHit OnHit) error {
	r.logger.Debug("Knockout", log.Stringer("on_hit", onHit))

	switch onHit {
	case EndRun:
		host.LoseRun(false)

	case RestartNewShard, RestartSameShard:
		cfg, data := host.Current()
		seed := data.CurrentSeed
		if onHit == RestartNewShard {
			seed = host.GenerateSeed()
		}

		host.ClearCurrentRun()
		host.StartAndPlayNewRun(cfg, data.ShardID, seed)

	default:
		return fmt.Errorf("%s: %w", onHit, ErrUnsupportedOnHit)
	}
	return nil
}
