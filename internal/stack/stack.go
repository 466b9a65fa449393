// Package stack computes the evaluation stack depth of every instruction of a
// method body and verifies that all control flow paths agree on it.
package stack

import (
	"errors"
	"fmt"

	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
)

// Unreachable is the depth of instructions that no path reaches.
const Unreachable = -1

var (
	// ErrStackImbalance is returned when two paths reach an instruction with
	// different stack depths, or a return leaves values on the stack.
	ErrStackImbalance = errors.New("stack imbalance")
	// ErrStackUnderflow is returned when an instruction pops more values than available.
	ErrStackUnderflow = errors.New("stack underflow")
	// ErrFallthrough is returned when execution can run past the last instruction.
	ErrFallthrough = errors.New("control flow falls off the end of the method")
	// ErrInvalidTarget is returned for branches without a target inside the body.
	ErrInvalidTarget = errors.New("invalid branch target")
)

// Depths contains the stack depth before execution of every instruction.
type Depths []int

// Analyze walks all reachable paths of the body starting with an empty stack.
func Analyze(body *method.Body) (Depths, error) {
	index := make(map[*instruction.Instruction]int, body.Len())
	depths := make(Depths, body.Len())
	for i, ins := range body.Instructions {
		index[ins] = i
		depths[i] = Unreachable
	}
	if body.Len() == 0 {
		return depths, nil
	}

	depths[0] = 0
	queue := []int{0}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		ins := body.Instructions[i]
		depth := depths[i]

		pop, push := ins.StackEffect(body.Returns)
		if depth < pop {
			return nil, fmt.Errorf("%s pops %d with depth %d: %w", ins, pop, depth, ErrStackUnderflow)
		}
		after := depth - pop + push

		successors, err := successors(body, index, i)
		if err != nil {
			return nil, err
		}

		if ins.OpCode.Flow == instruction.Return && after != 0 {
			return nil, fmt.Errorf("%s leaves %d values on the stack: %w", ins, after, ErrStackImbalance)
		}

		for _, next := range successors {
			switch depths[next] {
			case Unreachable:
				depths[next] = after
				queue = append(queue, next)
			case after:
			default:
				return nil, fmt.Errorf("%s reached with depth %d and %d: %w",
					body.Instructions[next], depths[next], after, ErrStackImbalance)
			}
		}
	}

	return depths, nil
}

// At returns the depth before the instruction at the given index.
func (d Depths) At(index int) int {
	if index < 0 || index >= len(d) {
		return Unreachable
	}
	return d[index]
}

func successors(body *method.Body, index map[*instruction.Instruction]int, i int) ([]int, error) {
	ins := body.Instructions[i]

	var result []int
	switch ins.OpCode.Flow {
	case instruction.Return:
		return nil, nil

	case instruction.Branch, instruction.CondBranch:
		target, ok := ins.Target()
		if !ok {
			return nil, fmt.Errorf("%s: %w", ins, ErrInvalidTarget)
		}
		t, ok := index[target]
		if !ok {
			return nil, fmt.Errorf("%s: %w", ins, ErrInvalidTarget)
		}
		result = append(result, t)
		if ins.OpCode.Flow == instruction.Branch {
			return result, nil
		}
	}

	if i+1 >= body.Len() {
		return nil, fmt.Errorf("%s: %w", ins, ErrFallthrough)
	}
	return append(result, i+1), nil
}
