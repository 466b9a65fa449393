// Package detector handles method body file format detection.
package detector

import (
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/options"
)

// Format is a file format of method bodies.
type Format string

const (
	Listing  Format = "listing"
	Snapshot Format = "snapshot"
)

func (f Format) String() string {
	return string(f)
}

// Detector handles format detection from file extensions.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the input and output formats from the file names.
// Console output is always a listing.
func (d *Detector) Detect(opts options.Program) (input, output Format) {
	input = DetectFormat(opts.Input)
	output = Listing
	if opts.Output != "" {
		output = DetectFormat(opts.Output)
	}

	d.logger.Debug("Detected formats",
		log.Stringer("input", input),
		log.Stringer("output", output),
		log.String("file", opts.Input))
	return input, output
}

// DetectFormat determines the format based on the file extension.
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".cbor", ".snap":
		return Snapshot
	default:
		// .il and unknown extensions are read as text listing
		return Listing
	}
}
