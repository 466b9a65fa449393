// Package pattern locates contiguous instruction subsequences that match an
// ordered list of predicates.
package pattern

import (
	"errors"

	"github.com/retroenv/retropatch/internal/instruction"
)

// ErrPatternNotFound is returned when no contiguous match exists between the
// start position and the end of the instruction sequence.
var ErrPatternNotFound = errors.New("instruction pattern not found")

// Predicate inspects a single instruction.
type Predicate func(ins *instruction.Instruction) bool

// Pattern is an ordered list of predicates that have to match consecutive
// instructions.
type Pattern []Predicate

// Match returns the index of the first instruction of the lowest positioned
// match at or after start. The instructions are not modified.
func Match(instructions []*instruction.Instruction, start int, pattern Pattern) (int, error) {
	if start < 0 {
		start = 0
	}

	for i := start; i+len(pattern) <= len(instructions); i++ {
		if matchesAt(instructions, i, pattern) {
			return i, nil
		}
	}
	return 0, ErrPatternNotFound
}

// Find returns the position immediately after the lowest positioned match at
// or after start.
func Find(instructions []*instruction.Instruction, start int, pattern Pattern) (int, error) {
	i, err := Match(instructions, start, pattern)
	if err != nil {
		return 0, err
	}
	return i + len(pattern), nil
}

func matchesAt(instructions []*instruction.Instruction, index int, pattern Pattern) bool {
	for j, predicate := range pattern {
		if !predicate(instructions[index+j]) {
			return false
		}
	}
	return true
}
