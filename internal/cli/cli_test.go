package cli

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retropatch/internal/options"
	"github.com/retroenv/retropatch/internal/patcher"
	"github.com/retroenv/retropatch/internal/run"
)

func parseArgs(t *testing.T, args ...string) (options.Program, options.Patch, error) {
	t.Helper()

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"prog"}, args...)

	return ParseFlags()
}

func TestParseFlags(t *testing.T) {
	opts, patchOpts, err := parseArgs(t, "-table", "-stack", "UI_PlayerLives.il")
	assert.NoError(t, err)
	assert.Equal(t, "UI_PlayerLives.il", opts.Input)
	assert.True(t, opts.Table)
	assert.True(t, opts.StackComments)
	assert.False(t, patchOpts.Enabled)
	assert.Equal(t, run.EndRun, patchOpts.OnHit)
}

func TestParseFlags_Settings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohko.toml")
	settings := "[mod]\nenabled = true\non_hit = \"restart_new_shard\"\n[patches.lives_changed]\npolicy = \"required\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(settings), 0600))

	_, patchOpts, err := parseArgs(t, "-c", path, "UI_PlayerLives.il")
	assert.NoError(t, err)
	assert.True(t, patchOpts.Enabled)
	assert.Equal(t, run.RestartNewShard, patchOpts.OnHit)
	assert.Equal(t, patcher.PolicyRequired, patchOpts.Policies["lives_changed"])
}

func TestParseFlags_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"flag after file", []string{"UI_PlayerLives.il", "-q"}},
		{"unknown flag", []string{"-z", "UI_PlayerLives.il"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseArgs(t, tt.args...)
			var usageErr *UsageError
			assert.True(t, errors.As(err, &usageErr))
		})
	}
}

func TestValidateOptionCombinations(t *testing.T) {
	tests := []struct {
		name        string
		opts        options.Program
		expectError bool
	}{
		{
			name: "no conflict",
			opts: options.Program{},
		},
		{
			name: "table to listing",
			opts: options.Program{
				Parameters:  options.Parameters{Output: "patched.il"},
				OutputFlags: options.OutputFlags{Table: true},
			},
		},
		{
			name: "table to snapshot",
			opts: options.Program{
				Parameters:  options.Parameters{Output: "patched.cbor"},
				OutputFlags: options.OutputFlags{Table: true},
			},
			expectError: true,
		},
		{
			name: "batch with output",
			opts: options.Program{
				Parameters: options.Parameters{Batch: "*.il", Output: "patched.il"},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOptionCombinations(tt.opts)
			if tt.expectError {
				assert.True(t, err != nil)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
	}{
		{"single file", []string{"UI_PlayerLives.il"}, false},
		{"empty argument", []string{"UI_PlayerLives.il", ""}, false},
		{"flag after file", []string{"UI_PlayerLives.il", "-table"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(tt.args)
			if tt.expectError {
				var usageErr *UsageError
				assert.True(t, errors.As(err, &usageErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	var opts options.Program
	registerFlags(flags, &opts)

	for _, name := range []string{"i", "o", "c", "batch", "verify", "eval", "debug", "q", "table", "stack"} {
		f := flags.Lookup(name)
		assert.True(t, f != nil && f.Usage != "", "missing flag "+name)
	}

	err := flags.Parse([]string{"-o", "hud.cbor", "-verify", "-stack", "hud.il"})
	assert.NoError(t, err)
	assert.Equal(t, "hud.cbor", opts.Output)
	assert.True(t, opts.Verify)
	assert.True(t, opts.StackComments)
	assert.False(t, opts.Table)
	assert.Equal(t, []string{"hud.il"}, flags.Args())
}
