// Package main implements the entry point of the method body patcher
package main

import (
	"context"
	"errors"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/cli"
	"github.com/retroenv/retropatch/internal/config"
	"github.com/retroenv/retropatch/internal/fileprocessor"
	"github.com/tebeka/atexit"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, patchOpts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
		} else {
			logger.Error(err.Error())
		}
		atexit.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	files, err := fileprocessor.GetFilesToProcess(&opts)
	if err != nil {
		logger.Error(err.Error())
		atexit.Exit(1)
	}

	var failed int
	atexit.Register(func() {
		if len(files) > 1 {
			logger.Info("Batch finished",
				log.Int("files", len(files)),
				log.Int("failed", failed))
		}
	})

	for _, file := range files {
		opts.Input = file
		if opts.Batch != "" {
			opts.Output = fileprocessor.GenerateOutputFilename(file)
		}

		if err := fileprocessor.ProcessFile(ctx, logger, opts, patchOpts); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("Operation cancelled")
				atexit.Exit(1)
			}
			failed++
			logger.Error("Patching failed", log.String("file", file), log.Err(err))
		}
	}

	if failed > 0 {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
