// Package instruction contains the fundamental types of decoded method bodies:
// opcodes, operands, instructions and labels.
package instruction

import (
	"fmt"
)

// Instruction is a single decoded operation of a method body.
type Instruction struct {
	OpCode  *OpCode
	Operand any // Field, MethodRef, int32, float32, string, uint8, *Instruction or *Label
	Offset  int // byte offset inside the method, recomputed after edits
}

// New returns a new instruction for the given opcode and operand.
func New(op *OpCode, operand any) *Instruction {
	return &Instruction{
		OpCode:  op,
		Operand: operand,
	}
}

// Size returns the encoded size of the instruction.
func (i *Instruction) Size() int {
	return i.OpCode.Size()
}

// IsBranch returns whether the instruction references a branch target.
func (i *Instruction) IsBranch() bool {
	return i.OpCode.IsBranch()
}

// Target returns the instruction a branch jumps to. Branches referencing an
// unbound label or not referencing anything return false.
func (i *Instruction) Target() (*Instruction, bool) {
	switch op := i.Operand.(type) {
	case *Instruction:
		return op, op != nil
	case *Label:
		if op == nil || !op.Bound() {
			return nil, false
		}
		return op.Target(), true
	default:
		return nil, false
	}
}

// Method returns the method operand of a call instruction.
func (i *Instruction) Method() (MethodRef, bool) {
	m, ok := i.Operand.(MethodRef)
	return m, ok
}

// Field returns the field operand of a field access instruction.
func (i *Instruction) Field() (Field, bool) {
	f, ok := i.Operand.(Field)
	return f, ok
}

// StackEffect returns the number of values the instruction pops from and
// pushes onto the evaluation stack. returns defines whether the method that
// contains the instruction returns a value, which affects ret.
func (i *Instruction) StackEffect(returns bool) (pop, push int) {
	if i.OpCode.Pop != VarPop {
		return i.OpCode.Pop, i.OpCode.Push
	}

	switch i.OpCode.Flow {
	case Call:
		if m, ok := i.Method(); ok {
			return m.StackEffect()
		}
		return 0, 0
	case Return:
		if returns {
			return 1, 0
		}
		return 0, 0
	default:
		return 0, i.OpCode.Push
	}
}

func (i *Instruction) String() string {
	s := fmt.Sprintf("IL_%04x: %s", i.Offset, i.OpCode.Name)
	if operand := i.OperandString(); operand != "" {
		s += " " + operand
	}
	return s
}

// OperandString returns the textual representation of the operand.
func (i *Instruction) OperandString() string {
	switch op := i.Operand.(type) {
	case nil:
		return ""
	case *Instruction:
		if op == nil {
			return "<nil>"
		}
		return fmt.Sprintf("IL_%04x", op.Offset)
	case *Label:
		if op == nil || !op.Bound() {
			return "(unbound label)"
		}
		return fmt.Sprintf("(label -> IL_%04x)", op.Target().Offset)
	case string:
		return fmt.Sprintf("%q", op)
	default:
		return fmt.Sprint(op)
	}
}
