// Package method implements the instruction sequence of a single method body.
package method

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/retropatch/internal/instruction"
)

var (
	// ErrDanglingTarget is returned when a branch references an instruction that
	// is not part of the method body.
	ErrDanglingTarget = errors.New("branch target is not part of the method body")
	// ErrUnboundLabel is returned when a branch references a label that was never bound.
	ErrUnboundLabel = errors.New("branch references an unbound label")
	// ErrIndexOutOfRange is returned for edits outside of the instruction sequence.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Body is the ordered instruction sequence of one method. It exclusively owns
// its instructions.
type Body struct {
	Name       string // qualified method name, Type::Method
	Returns    bool   // the method returns a value
	ReturnType string // optional name of the result type

	Instructions []*instruction.Instruction
}

// New returns a new method body and assigns the instruction offsets.
func New(name string, returns bool, instructions ...*instruction.Instruction) *Body {
	b := &Body{
		Name:         name,
		Returns:      returns,
		Instructions: instructions,
	}
	b.RecomputeOffsets()
	return b
}

// Len returns the number of instructions.
func (b *Body) Len() int {
	return len(b.Instructions)
}

// At returns the instruction at the given index or nil.
func (b *Body) At(index int) *instruction.Instruction {
	if index < 0 || index >= len(b.Instructions) {
		return nil
	}
	return b.Instructions[index]
}

// IndexOf returns the index of the given instruction or -1.
func (b *Body) IndexOf(ins *instruction.Instruction) int {
	for i, existing := range b.Instructions {
		if existing == ins {
			return i
		}
	}
	return -1
}

// Insert inserts the instructions before the given index. An index equal to
// the length appends. Offsets are not updated, call RecomputeOffsets after
// all edits are done.
func (b *Body) Insert(index int, instructions ...*instruction.Instruction) error {
	if index < 0 || index > len(b.Instructions) {
		return fmt.Errorf("inserting at %d of %d: %w", index, len(b.Instructions), ErrIndexOutOfRange)
	}

	b.Instructions = slices.Insert(b.Instructions, index, instructions...)
	return nil
}

// RemoveRange removes count instructions starting at index.
func (b *Body) RemoveRange(index, count int) error {
	if index < 0 || count < 0 || index+count > len(b.Instructions) {
		return fmt.Errorf("removing %d at %d of %d: %w", count, index, len(b.Instructions), ErrIndexOutOfRange)
	}

	b.Instructions = slices.Delete(b.Instructions, index, index+count)
	return nil
}

// RecomputeOffsets assigns the byte offsets of all instructions. Short branches
// whose displacement does not fit into a signed byte anymore are changed to
// their long form, which can move other instructions, so the process repeats
// until all branches fit. It returns the number of widened branches.
func (b *Body) RecomputeOffsets() int {
	widened := 0
	for {
		b.assignOffsets()

		changed := false
		for _, ins := range b.Instructions {
			if !ins.OpCode.IsShortBranch() {
				continue
			}
			target, ok := ins.Target()
			if !ok {
				continue
			}

			delta := target.Offset - (ins.Offset + ins.Size())
			if delta < math.MinInt8 || delta > math.MaxInt8 {
				ins.OpCode = ins.OpCode.Long()
				changed = true
				widened++
			}
		}

		if !changed {
			return widened
		}
	}
}

func (b *Body) assignOffsets() {
	offset := 0
	for _, ins := range b.Instructions {
		ins.Offset = offset
		offset += ins.Size()
	}
}

// Size returns the encoded size of the method body.
func (b *Body) Size() int {
	size := 0
	for _, ins := range b.Instructions {
		size += ins.Size()
	}
	return size
}

// Validate checks that every branch references a bound label or an
// instruction that is a member of this body.
func (b *Body) Validate() error {
	members := set.New[*instruction.Instruction]()
	for _, ins := range b.Instructions {
		members.Add(ins)
	}

	for _, ins := range b.Instructions {
		if !ins.IsBranch() {
			continue
		}

		if label, ok := ins.Operand.(*instruction.Label); ok && (label == nil || !label.Bound()) {
			return fmt.Errorf("%s in %s: %w", ins, b.Name, ErrUnboundLabel)
		}

		target, ok := ins.Target()
		if !ok || !members.Contains(target) {
			return fmt.Errorf("%s in %s: %w", ins, b.Name, ErrDanglingTarget)
		}
	}
	return nil
}

// Clone returns a deep copy of the body. Branch targets and labels are
// remapped to the copied instructions.
func (b *Body) Clone() (*Body, error) {
	clone := &Body{
		Name:         b.Name,
		Returns:      b.Returns,
		ReturnType:   b.ReturnType,
		Instructions: make([]*instruction.Instruction, len(b.Instructions)),
	}

	mapping := make(map[*instruction.Instruction]*instruction.Instruction, len(b.Instructions))
	for i, ins := range b.Instructions {
		c := *ins
		clone.Instructions[i] = &c
		mapping[ins] = &c
	}

	labels := map[*instruction.Label]*instruction.Label{}
	for _, ins := range clone.Instructions {
		switch op := ins.Operand.(type) {
		case *instruction.Instruction:
			if mapped, ok := mapping[op]; ok {
				ins.Operand = mapped
			}

		case *instruction.Label:
			mapped, ok := labels[op]
			if !ok {
				mapped = instruction.NewLabel()
				if op != nil && op.Bound() {
					target := op.Target()
					if m, ok := mapping[target]; ok {
						target = m
					}
					if err := mapped.Bind(target); err != nil {
						return nil, fmt.Errorf("cloning %s: %w", ins, err)
					}
				}
				labels[op] = mapped
			}
			ins.Operand = mapped
		}
	}
	return clone, nil
}

// String returns a listing of all instructions, one per line.
func (b *Body) String() string {
	var sb strings.Builder
	for _, ins := range b.Instructions {
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
