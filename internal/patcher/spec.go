package patcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/pattern"
	"github.com/retroenv/retropatch/internal/stack"
)

// ErrInvalidSpec is returned for patch definitions that are incomplete.
var ErrInvalidSpec = errors.New("invalid patch definition")

// Policy defines how a failed patch application is escalated.
type Policy string

const (
	// PolicyReport reports the failure through the reporter, the default.
	PolicyReport Policy = "report"
	// PolicyBestEffort only logs the failure at debug level.
	PolicyBestEffort Policy = "best-effort"
	// PolicyRequired reports the failure and makes ApplyAll return an error.
	PolicyRequired Policy = "required"
)

// ParsePolicy converts a policy name. An empty name returns the default policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case "":
		return PolicyReport, nil
	case PolicyReport, PolicyBestEffort, PolicyRequired:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported patch policy '%s'", s)
	}
}

// Spec declares where a method is patched, the condition that guards the
// injected code and what the injected code does when the condition holds.
type Spec struct {
	Name      string                // identifier used in diagnostics
	Method    string                // qualified name of the target method, optional
	Pattern   pattern.Pattern       // anchor to locate
	Move      MoveType              // cursor placement relative to the anchor
	Condition instruction.MethodRef // static zero argument method returning a bool
	Plan      Plan
	Policy    Policy
}

// Validate checks the parts of the patch that do not depend on the
// target method. A plan that can not be stack neutral is a programming error
// and returns stack.ErrStackImbalance.
func (s Spec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("missing name: %w", ErrInvalidSpec)
	case len(s.Pattern) == 0:
		return fmt.Errorf("%s: missing pattern: %w", s.Name, ErrInvalidSpec)
	case s.Plan == nil:
		return fmt.Errorf("%s: missing plan: %w", s.Name, ErrInvalidSpec)
	case s.Condition.Name == "" || s.Condition.HasThis || len(s.Condition.Params) > 0 || !s.Condition.Returns():
		return fmt.Errorf("%s: condition %s is not a static zero argument predicate: %w",
			s.Name, s.Condition, ErrInvalidSpec)
	}

	if err := s.Plan.validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	return nil
}

// Plan is the code that runs when the condition of a patch holds.
type Plan interface {
	// Discards returns the number of values the plan removes from the stack.
	Discards() int

	validate() error
	check(body *method.Body, depth int) error
	reconverge(depth int) (int, bool)
	emit(c *Cursor) (int, error)
}

// Replace discards values from the stack and pushes constants instead, then
// continues with the original code.
type Replace struct {
	Discard int
	Push    []int32
}

// Discards returns the number of values the plan removes from the stack.
func (r Replace) Discards() int {
	return r.Discard
}

func (r Replace) validate() error {
	if r.Discard < 0 {
		return fmt.Errorf("negative discard count %d: %w", r.Discard, ErrInvalidSpec)
	}
	if len(r.Push) != r.Discard {
		return fmt.Errorf("replacing %d values with %d: %w", r.Discard, len(r.Push), stack.ErrStackImbalance)
	}
	return nil
}

func (r Replace) check(_ *method.Body, depth int) error {
	if depth < r.Discard {
		return fmt.Errorf("discarding %d values with depth %d: %w", r.Discard, depth, stack.ErrStackUnderflow)
	}
	return nil
}

func (r Replace) reconverge(depth int) (int, bool) {
	return depth - r.Discard + len(r.Push), true
}

func (r Replace) emit(c *Cursor) (int, error) {
	emitted := 0
	for range r.Discard {
		if _, err := c.Emit(instruction.Pop, nil); err != nil {
			return emitted, err
		}
		emitted++
	}
	for _, value := range r.Push {
		if _, err := c.Emit(instruction.LdcI4, value); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// Return discards values from the stack and returns from the method, with
// Value as result for methods that return a value.
type Return struct {
	Discard int
	Value   *int32
}

// Discards returns the number of values the plan removes from the stack.
func (r Return) Discards() int {
	return r.Discard
}

func (r Return) validate() error {
	if r.Discard < 0 {
		return fmt.Errorf("negative discard count %d: %w", r.Discard, ErrInvalidSpec)
	}
	return nil
}

func (r Return) check(body *method.Body, depth int) error {
	if depth != r.Discard {
		return fmt.Errorf("returning with %d of %d values discarded: %w", r.Discard, depth, stack.ErrStackImbalance)
	}
	if (r.Value != nil) != body.Returns {
		return fmt.Errorf("return value does not match the signature of %s: %w", body.Name, stack.ErrStackImbalance)
	}
	return nil
}

func (r Return) reconverge(int) (int, bool) {
	return 0, false
}

func (r Return) emit(c *Cursor) (int, error) {
	emitted, err := Replace{Discard: r.Discard}.emit(c)
	if err != nil {
		return emitted, err
	}
	if r.Value != nil {
		if _, err := c.Emit(instruction.LdcI4, *r.Value); err != nil {
			return emitted, err
		}
		emitted++
	}
	if _, err := c.Emit(instruction.Ret, nil); err != nil {
		return emitted, err
	}
	return emitted + 1, nil
}
