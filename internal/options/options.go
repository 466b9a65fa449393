// Package options contains the program options.
package options

import (
	"github.com/retroenv/retropatch/internal/patcher"
	"github.com/retroenv/retropatch/internal/run"
)

// Parameters contains file path options.
type Parameters struct {
	Input  string `flag:"i" usage:"name of the input method listing (.il) or snapshot (.cbor)"`
	Output string `flag:"o" usage:"name of the output file, printed on console if no name given, .cbor writes a snapshot"`
	Config string `flag:"c" usage:"name of the .toml mod settings file"`
	Batch  string `flag:"batch" usage:"process all files matching the pattern with automatic output naming, for example *.il"`
}

// Flags contains behavior options.
type Flags struct {
	Verify bool `flag:"verify" usage:"verify the patched methods by stack analysis and snapshot round trip"`
	Eval   bool `flag:"eval" usage:"evaluate the patched methods and print the calls to the host"`
	Debug  bool `flag:"debug" usage:"enable debugging options for extended logging"`
	Quiet  bool `flag:"q" usage:"perform operations quietly"`
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	Table         bool `flag:"table" usage:"print the patched methods as table instead of a listing"`
	StackComments bool `flag:"stack" usage:"append the stack depth of every instruction as comment"`
}

// Program options of the patcher.
type Program struct {
	Parameters
	Flags
	OutputFlags
}

// Patch defines options to control the mod and its patches.
type Patch struct {
	Enabled  bool                      // condition value of the injected code
	OnHit    run.OnHit                 // action when the player gets hit
	Policies map[string]patcher.Policy // failure policy per patch name
}

// NewPatch returns a new options instance with default options.
func NewPatch() Patch {
	return Patch{
		OnHit:    run.EndRun,
		Policies: map[string]patcher.Policy{},
	}
}
