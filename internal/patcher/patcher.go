// Package patcher rewrites method bodies by injecting conditional code at
// locations found by instruction patterns.
//
// The injected code has the shape
//
//	call     <condition>
//	brfalse  skip
//	<plan>
//	skip:    <original continuation>
//
// so that the method behaves exactly as before while the condition is false.
package patcher

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/stack"
)

var (
	// ErrPatchSiteNotFound is returned when the anchor pattern of a patch does
	// not exist in the method body.
	ErrPatchSiteNotFound = errors.New("patch site not found")
	// ErrAlreadyPatched is returned when the guard of the patch already sits at the anchor.
	ErrAlreadyPatched = errors.New("patch site is already patched")
	// ErrWrongMethod is returned when a patch is applied to a method it does not target.
	ErrWrongMethod = errors.New("patch targets a different method")
	// ErrUnreachableAnchor is returned when no code path reaches the anchor.
	ErrUnreachableAnchor = errors.New("patch site is unreachable")
)

// State is the progress of a single patch application.
type State int

const (
	Unpatched State = iota
	Matched
	Injected
	Rebalanced
	Bound
	Complete
	Failed
)

var stateNames = map[State]string{
	Unpatched:  "unpatched",
	Matched:    "matched",
	Injected:   "injected",
	Rebalanced: "rebalanced",
	Bound:      "bound",
	Complete:   "complete",
	Failed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reporter receives a message for every reported failed patch application.
type Reporter func(msg string)

// Result is the outcome of a patch application, either Complete or Failed.
type Result struct {
	Spec     string
	Method   string
	State    State
	Anchor   int // index of the first injected instruction
	Injected int // number of injected instructions
	Widened  int // number of short branches changed to long form
	Err      error
}

// Patcher applies patches to method bodies.
type Patcher struct {
	logger   *log.Logger
	reporter Reporter
}

// New returns a new patcher. Failures are reported to the given reporter,
// or logged as errors if no reporter is passed.
func New(logger *log.Logger, reporter Reporter) *Patcher {
	p := &Patcher{
		logger:   logger,
		reporter: reporter,
	}
	if p.reporter == nil {
		p.reporter = func(msg string) {
			logger.Error(msg)
		}
	}
	return p
}

// ApplyAll applies the patches in the given order. Every application
// searches the body as left by the previous ones. Failures of patches
// with the required policy are returned joined, after all patches
// have been tried.
func (p *Patcher) ApplyAll(body *method.Body, specs ...Spec) ([]Result, error) {
	results := make([]Result, 0, len(specs))
	var errs []error

	for _, spec := range specs {
		result := p.Apply(body, spec)
		results = append(results, result)

		if result.State == Failed && spec.Policy == PolicyRequired {
			errs = append(errs, fmt.Errorf("applying required patch %s: %w", spec.Name, result.Err))
		}
	}
	return results, errors.Join(errs...)
}

// Apply patches the body in place. The returned result is either Complete
// or Failed, in which case the body is left unmodified.
func (p *Patcher) Apply(body *method.Body, spec Spec) Result {
	result := Result{
		Spec:   spec.Name,
		Method: body.Name,
		State:  Unpatched,
	}

	if err := spec.Validate(); err != nil {
		return p.fail(result, spec, err)
	}
	if spec.Method != "" && spec.Method != body.Name {
		return p.fail(result, spec, fmt.Errorf("%s instead of %s: %w", spec.Method, body.Name, ErrWrongMethod))
	}

	cursor := NewCursor(body)
	if err := cursor.GotoNext(spec.Move, spec.Pattern...); err != nil {
		return p.fail(result, spec, fmt.Errorf("%w: %w", ErrPatchSiteNotFound, err))
	}
	result.Anchor = cursor.Index()
	p.transition(&result, Matched)

	depth, err := p.checkSite(body, spec, result.Anchor)
	if err != nil {
		return p.fail(result, spec, err)
	}

	opcodes := make([]*instruction.OpCode, body.Len())
	for i, ins := range body.Instructions {
		opcodes[i] = ins.OpCode
	}

	skip := cursor.DefineLabel()
	injected, err := inject(cursor, spec, skip)
	result.Injected = injected
	if err != nil {
		p.rollback(body, result, opcodes)
		return p.fail(result, spec, fmt.Errorf("injecting code: %w", err))
	}
	p.transition(&result, Injected)

	if converged, ok := spec.Plan.reconverge(depth); ok && converged != depth {
		p.rollback(body, result, opcodes)
		return p.fail(result, spec, fmt.Errorf("condition paths rejoin with depth %d and %d: %w",
			depth, converged, stack.ErrStackImbalance))
	}
	p.transition(&result, Rebalanced)

	if err := cursor.MarkLabel(skip); err != nil {
		p.rollback(body, result, opcodes)
		return p.fail(result, spec, err)
	}
	result.Widened = body.RecomputeOffsets()
	p.transition(&result, Bound)

	if err := verify(body); err != nil {
		p.rollback(body, result, opcodes)
		return p.fail(result, spec, err)
	}
	p.transition(&result, Complete)

	p.logger.Debug("Patch applied",
		log.String("patch", spec.Name),
		log.String("method", body.Name),
		log.Int("anchor", result.Anchor),
		log.Int("injected", result.Injected),
	)
	return result
}

// checkSite verifies that the anchor can be patched and returns the stack
// depth at the anchor.
func (p *Patcher) checkSite(body *method.Body, spec Spec, anchor int) (int, error) {
	if isGuard(body, anchor, spec.Condition) || guardedBy(body, anchor, spec.Condition) {
		return 0, fmt.Errorf("%s at index %d: %w", spec.Condition, anchor, ErrAlreadyPatched)
	}
	if body.At(anchor) == nil {
		return 0, fmt.Errorf("anchor at index %d: %w", anchor, ErrNoContinuation)
	}

	depths, err := stack.Analyze(body)
	if err != nil {
		return 0, fmt.Errorf("analyzing original body: %w", err)
	}
	depth := depths.At(anchor)
	if depth == stack.Unreachable {
		return 0, fmt.Errorf("anchor at index %d: %w", anchor, ErrUnreachableAnchor)
	}

	if err := spec.Plan.check(body, depth); err != nil {
		return 0, err
	}
	return depth, nil
}

func inject(cursor *Cursor, spec Spec, skip *instruction.Label) (int, error) {
	if _, err := cursor.Emit(instruction.CallOp, spec.Condition); err != nil {
		return 0, err
	}
	if _, err := cursor.Emit(instruction.BrfalseS, skip); err != nil {
		return 1, err
	}

	emitted, err := spec.Plan.emit(cursor)
	return emitted + 2, err
}

// verify checks the branch targets and the stack balance of the edited body.
func verify(body *method.Body) error {
	if err := body.Validate(); err != nil {
		return fmt.Errorf("validating patched body: %w", err)
	}
	if _, err := stack.Analyze(body); err != nil {
		return fmt.Errorf("analyzing patched body: %w", err)
	}
	return nil
}

// isGuard returns whether the injected condition check of a previous
// application of the same condition starts at the index.
func isGuard(body *method.Body, index int, condition instruction.MethodRef) bool {
	call, branch := body.At(index), body.At(index+1)
	if call == nil || branch == nil || call.OpCode != instruction.CallOp {
		return false
	}
	m, ok := call.Method()
	return ok && m.Same(condition) && branch.OpCode.Long() == instruction.Brfalse
}

// guardedBy returns whether a guard of the condition precedes the index and
// skips to the instruction at the index.
func guardedBy(body *method.Body, index int, condition instruction.MethodRef) bool {
	anchor := body.At(index)
	if anchor == nil {
		return false
	}

	for i := range index - 1 {
		if !isGuard(body, i, condition) {
			continue
		}
		if target, ok := body.At(i + 1).Target(); ok && target == anchor {
			return true
		}
	}
	return false
}

// rollback removes the injected instructions and restores the original
// branch encodings and offsets.
func (p *Patcher) rollback(body *method.Body, result Result, opcodes []*instruction.OpCode) {
	if result.Injected > 0 {
		if err := body.RemoveRange(result.Anchor, result.Injected); err != nil {
			p.logger.Error("Rolling back patch failed", log.String("patch", result.Spec), log.Err(err))
			return
		}
	}
	for i, ins := range body.Instructions {
		if i < len(opcodes) {
			ins.OpCode = opcodes[i]
		}
	}
	body.RecomputeOffsets()
}

func (p *Patcher) transition(result *Result, state State) {
	result.State = state
	p.logger.Debug("Patch state",
		log.String("patch", result.Spec),
		log.Stringer("state", state),
	)
}

func (p *Patcher) fail(result Result, spec Spec, err error) Result {
	result.State = Failed
	result.Err = err
	result.Injected = 0
	result.Widened = 0

	msg := fmt.Sprintf("Patching %s with %s failed: %v", result.Method, result.Spec, err)
	switch spec.Policy {
	case PolicyBestEffort:
		p.logger.Debug(msg)
	default:
		p.reporter(msg)
	}
	return result
}
