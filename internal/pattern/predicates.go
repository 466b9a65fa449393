package pattern

import (
	"github.com/retroenv/retropatch/internal/instruction"
)

// Any matches every instruction.
func Any() Predicate {
	return func(*instruction.Instruction) bool {
		return true
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(ins *instruction.Instruction) bool {
		return !p(ins)
	}
}

// OpCode matches instructions with the given opcode. Short and long branch
// forms are treated as equal.
func OpCode(op *instruction.OpCode) Predicate {
	return func(ins *instruction.Instruction) bool {
		return ins.OpCode.Long() == op.Long()
	}
}

// Branch matches any instruction that references a branch target.
func Branch() Predicate {
	return func(ins *instruction.Instruction) bool {
		return ins.IsBranch()
	}
}

// Ldfld matches a load of the given instance field.
func Ldfld(field instruction.Field) Predicate {
	return fieldAccess(instruction.Ldfld, field)
}

// Ldsfld matches a load of the given static field.
func Ldsfld(field instruction.Field) Predicate {
	return fieldAccess(instruction.Ldsfld, field)
}

// Call matches a direct call of the given method.
func Call(method instruction.MethodRef) Predicate {
	return methodCall(instruction.CallOp, method)
}

// Callvirt matches a virtual call of the given method.
func Callvirt(method instruction.MethodRef) Predicate {
	return methodCall(instruction.Callvirt, method)
}

// LdcI4 matches the load of the given int32 constant in any of its encodings.
func LdcI4(value int32) Predicate {
	return func(ins *instruction.Instruction) bool {
		switch ins.OpCode {
		case instruction.LdcI4S, instruction.LdcI4:
			v, ok := ins.Operand.(int32)
			return ok && v == value
		case instruction.LdcI40:
			return value == 0
		case instruction.LdcI41:
			return value == 1
		default:
			return false
		}
	}
}

func fieldAccess(op *instruction.OpCode, field instruction.Field) Predicate {
	return func(ins *instruction.Instruction) bool {
		if ins.OpCode != op {
			return false
		}
		f, ok := ins.Field()
		return ok && f.Same(field)
	}
}

func methodCall(op *instruction.OpCode, method instruction.MethodRef) Predicate {
	return func(ins *instruction.Instruction) bool {
		if ins.OpCode != op {
			return false
		}
		m, ok := ins.Method()
		return ok && m.Same(method)
	}
}
