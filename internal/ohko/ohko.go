// Package ohko implements the one hit knockout mod: every hit ends or
// restarts the run and the HUD shows a single life.
package ohko

import (
	"sync"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/hook"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/interp"
	"github.com/retroenv/retropatch/internal/run"
)

// Condition is the static predicate that guards all injected code.
var Condition = instruction.MethodRef{
	Type:       "OneHitKnockOut",
	Name:       "get_IsOHKOEnabled",
	ReturnType: "bool",
}

// StatType identifies a tracked player statistic.
type StatType string

// StatDamageTaken is added whenever the player takes damage.
const StatDamageTaken StatType = "damage_taken"

// Stat is a statistic update.
type Stat struct {
	Type  StatType
	Value float32
}

// Health is the player state that a health bar update displays.
type Health struct {
	Percentage      float32
	HealingFeedback float32
}

// Bar is the displayed state of a segmented bar.
type Bar struct {
	Fills      float32
	Segments   float32
	Activation float32
}

// Points are the host functions that the mod intercepts.
type Points struct {
	PlayerStart *hook.Point[string, hook.None]
	AddStat     *hook.Point[Stat, hook.None]
	HealthBar   *hook.Point[Health, Bar]
}

// Settings are the user facing options of the mod.
type Settings struct {
	Enabled bool
	OnHit   run.OnHit
}

// Mod is the one hit knockout mod.
type Mod struct {
	logger *log.Logger
	run    *run.Run

	mu       sync.RWMutex
	settings Settings
}

// New returns a new mod instance.
func New(logger *log.Logger, settings Settings) *Mod {
	return &Mod{
		logger:   logger,
		run:      run.New(logger),
		settings: settings,
	}
}

// IsEnabled returns whether the mod is enabled. It is the implementation of
// Condition.
func (m *Mod) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Enabled
}

// OnHit returns the configured action for a hit.
func (m *Mod) OnHit() run.OnHit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.OnHit
}

// Update replaces the settings.
func (m *Mod) Update(settings Settings) {
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
}

// Register defines the condition in the evaluation environment.
func (m *Mod) Register(env *interp.MapEnv) {
	env.Predicate(Condition, m.IsEnabled)
}

// Install adds the interceptors of the mod to the host functions.
func (m *Mod) Install(points Points, host run.Host) {
	if points.PlayerStart != nil {
		points.PlayerStart.Add(hook.Action(func(orig func(string), player string) {
			m.run.Reset()
			orig(player)
		}))
	}

	if points.AddStat != nil {
		points.AddStat.Add(hook.Action(func(orig func(Stat), stat Stat) {
			orig(stat)
			m.statAdded(host, stat)
		}))
	}

	if points.HealthBar != nil {
		points.HealthBar.Add(func(orig hook.Func[Health, Bar], health Health) Bar {
			if !m.IsEnabled() {
				return orig(health)
			}
			return singleSegmentBar(health)
		})
	}
}

func (m *Mod) statAdded(host run.Host, stat Stat) {
	if stat.Type != StatDamageTaken || !m.IsEnabled() {
		return
	}
	if !m.run.TryTrigger() {
		return
	}

	onHit := m.OnHit()
	m.logger.Info("Player got hit", log.Stringer("on_hit", onHit))
	if err := m.run.Knockout(host, onHit); err != nil {
		m.logger.Error("Knockout failed", log.Err(err))
	}
}

func singleSegmentBar(health Health) Bar {
	bar := Bar{
		Fills:      1,
		Segments:   1,
		Activation: health.HealingFeedback,
	}
	if health.Percentage < 1 {
		bar.Fills = 0
	}
	return bar
}
