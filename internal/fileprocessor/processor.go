// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/options"
	"github.com/retroenv/retropatch/internal/pipeline"
)

// ProcessFile handles the complete file processing workflow. The output is
// only created if all stages succeed.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program, patchOpts options.Patch) error {
	var buf bytes.Buffer
	pipe := pipeline.New(logger)
	result, err := pipe.Execute(ctx, opts, patchOpts, &buf)
	if err != nil {
		return fmt.Errorf("processing %s: %w", opts.Input, err)
	}

	if err := writeOutput(opts, buf.Bytes()); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logger.Debug("Processed file",
		log.String("file", opts.Input),
		log.Int("methods", len(result.Bodies)),
		log.Int("patches", len(result.Patches)),
	)
	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file,
// the patched file keeps the extension and thereby the format of the input.
func GenerateOutputFilename(inputFile string) string {
	ext := filepath.Ext(inputFile)
	if ext == "" {
		ext = ".il"
	}
	return inputFile[:len(inputFile)-len(filepath.Ext(inputFile))] + ".patched" + ext
}

func writeOutput(opts options.Program, data []byte) error {
	if opts.Output == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing to console: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("retropatch", log.String("version", buildinfo.Version(version, commit, date)))
}
