package instruction

// FlowControl describes how an opcode hands control to the next instruction.
type FlowControl int

const (
	Next       FlowControl = iota // falls through to the following instruction
	Branch                        // unconditional jump to the operand target
	CondBranch                    // jump to the operand target or fall through
	Call                          // calls a method and falls through
	Return                        // leaves the method
)

// OperandType defines the encoding of the operand following an opcode.
type OperandType int

const (
	InlineNone OperandType = iota
	InlineI
	InlineR
	InlineString
	InlineField
	InlineMethod
	InlineVar
	ShortInlineI
	ShortInlineBrTarget
	InlineBrTarget
)

// VarPop marks an opcode whose stack pop count depends on the operand or the method.
const VarPop = -1

// OpCode describes a single operation of the intermediate language.
type OpCode struct {
	Name    string
	Value   uint16 // values above 0xff use the two byte 0xfe prefixed encoding
	Operand OperandType
	Flow    FlowControl
	Pop     int
	Push    int

	long *OpCode // long branch form of a short branch opcode
}

// Long returns the long form of a short branch opcode, or the opcode itself.
func (o *OpCode) Long() *OpCode {
	if o.long == nil {
		return o
	}
	return o.long
}

// IsShortBranch returns whether the opcode encodes its target as a signed byte.
func (o *OpCode) IsShortBranch() bool {
	return o.Operand == ShortInlineBrTarget
}

// IsBranch returns whether the opcode references a branch target.
func (o *OpCode) IsBranch() bool {
	return o.Operand == ShortInlineBrTarget || o.Operand == InlineBrTarget
}

// Size returns the encoded size of the opcode including its operand.
func (o *OpCode) Size() int {
	size := 1
	if o.Value > 0xff {
		size = 2
	}

	switch o.Operand {
	case InlineNone:
	case InlineVar, ShortInlineI, ShortInlineBrTarget:
		size++
	default:
		size += 4
	}
	return size
}

func (o *OpCode) String() string {
	return o.Name
}

// Opcodes supported by the decoder and emitter.
var (
	Nop      = &OpCode{Name: "nop", Value: 0x00}
	Ldarg0   = &OpCode{Name: "ldarg.0", Value: 0x02, Push: 1}
	Ldarg1   = &OpCode{Name: "ldarg.1", Value: 0x03, Push: 1}
	Ldloc0   = &OpCode{Name: "ldloc.0", Value: 0x06, Push: 1}
	Ldloc1   = &OpCode{Name: "ldloc.1", Value: 0x07, Push: 1}
	Stloc0   = &OpCode{Name: "stloc.0", Value: 0x0a, Pop: 1}
	Stloc1   = &OpCode{Name: "stloc.1", Value: 0x0b, Pop: 1}
	LdargS   = &OpCode{Name: "ldarg.s", Value: 0x0e, Operand: InlineVar, Push: 1}
	LdlocS   = &OpCode{Name: "ldloc.s", Value: 0x11, Operand: InlineVar, Push: 1}
	StlocS   = &OpCode{Name: "stloc.s", Value: 0x13, Operand: InlineVar, Pop: 1}
	Ldnull   = &OpCode{Name: "ldnull", Value: 0x14, Push: 1}
	LdcI40   = &OpCode{Name: "ldc.i4.0", Value: 0x16, Push: 1}
	LdcI41   = &OpCode{Name: "ldc.i4.1", Value: 0x17, Push: 1}
	LdcI4S   = &OpCode{Name: "ldc.i4.s", Value: 0x1f, Operand: ShortInlineI, Push: 1}
	LdcI4    = &OpCode{Name: "ldc.i4", Value: 0x20, Operand: InlineI, Push: 1}
	LdcR4    = &OpCode{Name: "ldc.r4", Value: 0x22, Operand: InlineR, Push: 1}
	Dup      = &OpCode{Name: "dup", Value: 0x25, Pop: 1, Push: 2}
	Pop      = &OpCode{Name: "pop", Value: 0x26, Pop: 1}
	CallOp   = &OpCode{Name: "call", Value: 0x28, Operand: InlineMethod, Flow: Call, Pop: VarPop}
	Ret      = &OpCode{Name: "ret", Value: 0x2a, Flow: Return, Pop: VarPop}
	Add      = &OpCode{Name: "add", Value: 0x58, Pop: 2, Push: 1}
	Sub      = &OpCode{Name: "sub", Value: 0x59, Pop: 2, Push: 1}
	Mul      = &OpCode{Name: "mul", Value: 0x5a, Pop: 2, Push: 1}
	ConvR4   = &OpCode{Name: "conv.r4", Value: 0x6b, Pop: 1, Push: 1}
	ConvI4   = &OpCode{Name: "conv.i4", Value: 0x69, Pop: 1, Push: 1}
	Callvirt = &OpCode{Name: "callvirt", Value: 0x6f, Operand: InlineMethod, Flow: Call, Pop: VarPop}
	Ldstr    = &OpCode{Name: "ldstr", Value: 0x72, Operand: InlineString, Push: 1}
	Ldfld    = &OpCode{Name: "ldfld", Value: 0x7b, Operand: InlineField, Pop: 1, Push: 1}
	Stfld    = &OpCode{Name: "stfld", Value: 0x7d, Operand: InlineField, Pop: 2}
	Ldsfld   = &OpCode{Name: "ldsfld", Value: 0x7e, Operand: InlineField, Push: 1}
	Stsfld   = &OpCode{Name: "stsfld", Value: 0x80, Operand: InlineField, Pop: 1}
	Ceq      = &OpCode{Name: "ceq", Value: 0xfe01, Pop: 2, Push: 1}
	Cgt      = &OpCode{Name: "cgt", Value: 0xfe02, Pop: 2, Push: 1}
	Clt      = &OpCode{Name: "clt", Value: 0xfe04, Pop: 2, Push: 1}

	Br       = &OpCode{Name: "br", Value: 0x38, Operand: InlineBrTarget, Flow: Branch}
	Brfalse  = &OpCode{Name: "brfalse", Value: 0x39, Operand: InlineBrTarget, Flow: CondBranch, Pop: 1}
	Brtrue   = &OpCode{Name: "brtrue", Value: 0x3a, Operand: InlineBrTarget, Flow: CondBranch, Pop: 1}
	Beq      = &OpCode{Name: "beq", Value: 0x3b, Operand: InlineBrTarget, Flow: CondBranch, Pop: 2}
	Bge      = &OpCode{Name: "bge", Value: 0x3c, Operand: InlineBrTarget, Flow: CondBranch, Pop: 2}
	Bgt      = &OpCode{Name: "bgt", Value: 0x3d, Operand: InlineBrTarget, Flow: CondBranch, Pop: 2}
	Ble      = &OpCode{Name: "ble", Value: 0x3e, Operand: InlineBrTarget, Flow: CondBranch, Pop: 2}
	Blt      = &OpCode{Name: "blt", Value: 0x3f, Operand: InlineBrTarget, Flow: CondBranch, Pop: 2}
	BrS      = &OpCode{Name: "br.s", Value: 0x2b, Operand: ShortInlineBrTarget, Flow: Branch, long: Br}
	BrfalseS = &OpCode{Name: "brfalse.s", Value: 0x2c, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 1, long: Brfalse}
	BrtrueS  = &OpCode{Name: "brtrue.s", Value: 0x2d, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 1, long: Brtrue}
	BeqS     = &OpCode{Name: "beq.s", Value: 0x2e, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 2, long: Beq}
	BgeS     = &OpCode{Name: "bge.s", Value: 0x2f, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 2, long: Bge}
	BgtS     = &OpCode{Name: "bgt.s", Value: 0x30, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 2, long: Bgt}
	BleS     = &OpCode{Name: "ble.s", Value: 0x31, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 2, long: Ble}
	BltS     = &OpCode{Name: "blt.s", Value: 0x32, Operand: ShortInlineBrTarget, Flow: CondBranch, Pop: 2, long: Blt}
)

// Opcodes maps all opcode names to their opcode.
var Opcodes = map[string]*OpCode{}

func init() {
	for _, op := range []*OpCode{
		Nop, Ldarg0, Ldarg1, Ldloc0, Ldloc1, Stloc0, Stloc1, LdargS, LdlocS, StlocS,
		Ldnull, LdcI40, LdcI41, LdcI4S, LdcI4, LdcR4, Dup, Pop, CallOp, Ret,
		Add, Sub, Mul, ConvR4, ConvI4, Callvirt, Ldstr, Ldfld, Stfld, Ldsfld, Stsfld,
		Ceq, Cgt, Clt,
		Br, Brfalse, Brtrue, Beq, Bge, Bgt, Ble, Blt,
		BrS, BrfalseS, BrtrueS, BeqS, BgeS, BgtS, BleS, BltS,
	} {
		Opcodes[op.Name] = op
	}
}
