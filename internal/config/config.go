// Package config handles application configuration and setup
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/retropatch/internal/ohko"
	"github.com/retroenv/retropatch/internal/options"
	"github.com/retroenv/retropatch/internal/patcher"
	"github.com/retroenv/retropatch/internal/run"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// Settings is the content of a settings file.
type Settings struct {
	Mod     ModSettings              `toml:"mod"`
	Patches map[string]PatchSettings `toml:"patches"`
}

// ModSettings contains the user facing options of the mod.
type ModSettings struct {
	Enabled bool      `toml:"enabled"`
	OnHit   run.OnHit `toml:"on_hit"`
}

// PatchSettings contains the options of a single patch.
type PatchSettings struct {
	Policy string `toml:"policy"`
}

// Load reads the settings file and returns the patch options. An empty path
// returns the default options.
func Load(path string) (options.Patch, error) {
	opts := options.NewPatch()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if err := Parse(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return opts, nil
}

// Parse decodes settings and applies them to the patch options.
func Parse(data []byte, opts *options.Patch) error {
	var settings Settings
	md, err := toml.Decode(string(data), &settings)
	if err != nil {
		return fmt.Errorf("decoding toml: %w", err)
	}

	var errs []error
	for _, key := range md.Undecoded() {
		errs = append(errs, fmt.Errorf("unknown setting '%s'", key))
	}

	opts.Enabled = settings.Mod.Enabled
	opts.OnHit = settings.Mod.OnHit
	if opts.Policies == nil {
		opts.Policies = map[string]patcher.Policy{}
	}

	known := set.New[string]()
	for _, spec := range ohko.Specs(nil) {
		known.Add(spec.Name)
	}

	for name, patch := range settings.Patches {
		if !known.Contains(name) {
			errs = append(errs, fmt.Errorf("unknown patch '%s'", name))
			continue
		}
		policy, err := patcher.ParsePolicy(patch.Policy)
		if err != nil {
			errs = append(errs, fmt.Errorf("patch %s: %w", name, err))
			continue
		}
		opts.Policies[name] = policy
	}
	return errors.Join(errs...)
}
