// Package pipeline orchestrates the patch workflow stages.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/codec"
	"github.com/retroenv/retropatch/internal/detector"
	"github.com/retroenv/retropatch/internal/interp"
	"github.com/retroenv/retropatch/internal/loader"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/ohko"
	"github.com/retroenv/retropatch/internal/options"
	"github.com/retroenv/retropatch/internal/patcher"
	"github.com/retroenv/retropatch/internal/verification"
	"github.com/retroenv/retropatch/internal/writer"
)

const (
	evalArguments = 4 // arguments passed to evaluated methods
	evalDefault   = int32(3)
)

// Result of a pipeline execution.
type Result struct {
	Bodies  []*method.Body
	Patches []patcher.Result
}

// Pipeline orchestrates the complete patch workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
	patcher  *patcher.Patcher
}

// New creates a new patch pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(logger),
		patcher:  patcher.New(logger, nil),
	}
}

// Execute runs the complete patch pipeline.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, patchOpts options.Patch, out io.Writer) (*Result, error) {
	input, output := p.detector.Detect(opts)

	bodies, err := p.loader.Load(opts.Input, input)
	if err != nil {
		return nil, fmt.Errorf("loading methods: %w", err)
	}

	if !opts.Quiet {
		p.logger.Info("Processing methods",
			log.String("file", opts.Input),
			log.Stringer("format", input),
			log.Int("methods", len(bodies)),
		)
	}

	return p.ExecuteWithBodies(ctx, bodies, opts, patchOpts, output, out)
}

// ExecuteWithBodies runs the patch pipeline with already loaded method bodies.
// Patched methods replace their original in the bodies slice.
func (p *Pipeline) ExecuteWithBodies(ctx context.Context, bodies []*method.Body, opts options.Program,
	patchOpts options.Patch, output detector.Format, out io.Writer) (*Result, error) {

	result := &Result{
		Bodies: bodies,
	}

	for i, body := range bodies {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("patching: %w", err)
		}

		patched, patches, err := p.patch(body, patchOpts)
		result.Patches = append(result.Patches, patches...)
		if err != nil {
			return nil, fmt.Errorf("patching %s: %w", body.Name, err)
		}
		bodies[i] = patched
	}

	if opts.Verify {
		if err := verification.VerifyOutput(ctx, p.logger, bodies); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	if opts.Eval {
		if err := p.evaluate(bodies, patchOpts); err != nil {
			return nil, fmt.Errorf("evaluating: %w", err)
		}
	}

	if err := p.write(bodies, opts, output, out); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return result, nil
}

// patch applies all patches that target the method to a copy of the body.
// The copy is only returned if no required patch failed, so that a method is
// never left with a subset of its required patches.
func (p *Pipeline) patch(body *method.Body, patchOpts options.Patch) (*method.Body, []patcher.Result, error) {
	specs := ohko.SpecsFor(body.Name, patchOpts.Policies)
	if len(specs) == 0 {
		p.logger.Debug("No patches for method", log.String("method", body.Name))
		return body, nil, nil
	}

	patched, err := body.Clone()
	if err != nil {
		return nil, nil, fmt.Errorf("copying method: %w", err)
	}

	results, err := p.patcher.ApplyAll(patched, specs...)
	if err != nil {
		return nil, results, err
	}

	for _, res := range results {
		if res.State != patcher.Complete {
			continue
		}
		p.logger.Info("Patched method",
			log.String("method", res.Method),
			log.String("patch", res.Spec),
			log.Int("injected", res.Injected),
		)
	}
	return patched, results, nil
}

// evaluate executes every method with the mod condition set from the options
// and logs the calls the method makes.
func (p *Pipeline) evaluate(bodies []*method.Body, patchOpts options.Patch) error {
	mod := ohko.New(p.logger, ohko.Settings{
		Enabled: patchOpts.Enabled,
		OnHit:   patchOpts.OnHit,
	})

	p.logger.Debug("Evaluating methods", log.Stringer("on_hit", patchOpts.OnHit))

	for _, body := range bodies {
		env := interp.NewMapEnv()
		mod.Register(env)
		recorder := &interp.RecordingEnv{
			Env:     env,
			Default: evalDefault,
		}

		args := make([]any, evalArguments)
		for i := range args {
			args[i] = interp.Object{}
		}

		value, err := interp.New(recorder).Run(body, args...)
		if err != nil {
			return fmt.Errorf("running %s: %w", body.Name, err)
		}

		result := "none"
		if body.Returns {
			result = fmt.Sprint(value)
		}
		p.logger.Info("Evaluated method",
			log.String("method", body.Name),
			log.String("result", result),
			log.Int("calls", len(recorder.Calls)),
		)

		for _, call := range recorder.Calls {
			p.logger.Info("Host call", log.String("method", body.Name), log.Stringer("call", call))
		}
	}
	return nil
}

func (p *Pipeline) write(bodies []*method.Body, opts options.Program, output detector.Format, out io.Writer) error {
	if output == detector.Snapshot {
		data, err := codec.Marshal(bodies...)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		return nil
	}

	w := writer.New(out, writer.Options{
		StackComments: opts.StackComments,
	})
	if opts.Table {
		return w.Table(bodies...)
	}
	return w.Listing(bodies...)
}
