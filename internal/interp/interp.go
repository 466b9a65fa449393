// Package interp executes method bodies on a simple evaluation stack machine.
// It resolves field loads and calls through an environment provided by the caller.
package interp

import (
	"errors"
	"fmt"

	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
)

const defaultMaxSteps = 100_000

var (
	ErrStepLimit       = errors.New("step limit exceeded")
	ErrStackUnderflow  = errors.New("evaluation stack underflow")
	ErrUnsupported     = errors.New("unsupported instruction")
	ErrUnresolved      = errors.New("unresolved reference")
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrInvalidArgument = errors.New("invalid argument index")
)

// Env resolves the host references of a method body.
type Env interface {
	// LoadField returns the value of an instance field of the object.
	LoadField(obj any, field instruction.Field) (any, error)
	// LoadStatic returns the value of a static field.
	LoadStatic(field instruction.Field) (any, error)
	// StoreField sets an instance field of the object.
	StoreField(obj any, field instruction.Field, value any) error
	// Call invokes the method. For instance methods the receiver is the first argument.
	Call(m instruction.MethodRef, args []any) (any, error)
}

// Machine executes method bodies.
type Machine struct {
	env      Env
	maxSteps int
}

// New returns a new machine using the given environment.
func New(env Env) *Machine {
	return &Machine{
		env:      env,
		maxSteps: defaultMaxSteps,
	}
}

type frame struct {
	body   *method.Body
	args   []any
	locals [256]any
	stack  []any
	index  map[*instruction.Instruction]int
}

// Run executes the body with the given arguments and returns the result of
// the method, or nil for methods without result.
func (m *Machine) Run(body *method.Body, args ...any) (any, error) {
	f := &frame{
		body:  body,
		args:  args,
		index: make(map[*instruction.Instruction]int, body.Len()),
	}
	for i, ins := range body.Instructions {
		f.index[ins] = i
	}

	pc := 0
	for step := 0; step < m.maxSteps; step++ {
		ins := body.At(pc)
		if ins == nil {
			return nil, fmt.Errorf("pc %d: %w", pc, ErrUnsupported)
		}

		next, done, err := m.execute(f, ins, pc)
		if err != nil {
			return nil, fmt.Errorf("executing %s: %w", ins, err)
		}
		if done {
			if body.Returns {
				return f.pop()
			}
			return nil, nil
		}
		pc = next
	}
	return nil, ErrStepLimit
}

//nolint:cyclop,funlen // opcode dispatch
func (m *Machine) execute(f *frame, ins *instruction.Instruction, pc int) (int, bool, error) {
	switch ins.OpCode {
	case instruction.Nop:
	case instruction.Ldarg0, instruction.Ldarg1, instruction.LdargS:
		i, err := varIndex(ins, instruction.Ldarg0)
		if err != nil {
			return 0, false, err
		}
		if i >= len(f.args) {
			return 0, false, fmt.Errorf("argument %d: %w", i, ErrInvalidArgument)
		}
		f.push(f.args[i])
	case instruction.Ldloc0, instruction.Ldloc1, instruction.LdlocS:
		i, err := varIndex(ins, instruction.Ldloc0)
		if err != nil {
			return 0, false, err
		}
		f.push(f.locals[i])
	case instruction.Stloc0, instruction.Stloc1, instruction.StlocS:
		i, err := varIndex(ins, instruction.Stloc0)
		if err != nil {
			return 0, false, err
		}
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		f.locals[i] = v
	case instruction.Ldnull:
		f.push(nil)
	case instruction.LdcI40:
		f.push(int32(0))
	case instruction.LdcI41:
		f.push(int32(1))
	case instruction.LdcI4S, instruction.LdcI4, instruction.LdcR4, instruction.Ldstr:
		f.push(ins.Operand)
	case instruction.Dup:
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		f.push(v)
		f.push(v)
	case instruction.Pop:
		if _, err := f.pop(); err != nil {
			return 0, false, err
		}
	case instruction.Ldfld, instruction.Ldsfld, instruction.Stfld, instruction.Stsfld:
		if err := m.field(f, ins); err != nil {
			return 0, false, err
		}
	case instruction.CallOp, instruction.Callvirt:
		if err := m.call(f, ins); err != nil {
			return 0, false, err
		}
	case instruction.Ret:
		return 0, true, nil
	case instruction.Add, instruction.Sub, instruction.Mul, instruction.Ceq, instruction.Cgt, instruction.Clt:
		if err := f.binary(ins.OpCode); err != nil {
			return 0, false, err
		}
	case instruction.ConvI4, instruction.ConvR4:
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		if ins.OpCode == instruction.ConvI4 {
			f.push(int32(toFloat(v)))
		} else {
			f.push(float32(toFloat(v)))
		}
	default:
		if ins.IsBranch() {
			return f.branch(ins, pc)
		}
		return 0, false, ErrUnsupported
	}
	return pc + 1, false, nil
}

func (m *Machine) field(f *frame, ins *instruction.Instruction) error {
	field, ok := ins.Field()
	if !ok {
		return ErrInvalidOperand
	}

	switch ins.OpCode {
	case instruction.Ldsfld:
		v, err := m.env.LoadStatic(field)
		if err != nil {
			return err
		}
		f.push(v)
	case instruction.Ldfld:
		obj, err := f.pop()
		if err != nil {
			return err
		}
		v, err := m.env.LoadField(obj, field)
		if err != nil {
			return err
		}
		f.push(v)
	case instruction.Stfld:
		v, err := f.pop()
		if err != nil {
			return err
		}
		obj, err := f.pop()
		if err != nil {
			return err
		}
		return m.env.StoreField(obj, field, v)
	default:
		v, err := f.pop()
		if err != nil {
			return err
		}
		return m.env.StoreField(nil, field, v)
	}
	return nil
}

func (m *Machine) call(f *frame, ins *instruction.Instruction) error {
	ref, ok := ins.Method()
	if !ok {
		return ErrInvalidOperand
	}

	pop, push := ref.StackEffect()
	if len(f.stack) < pop {
		return ErrStackUnderflow
	}
	args := append([]any{}, f.stack[len(f.stack)-pop:]...)
	f.stack = f.stack[:len(f.stack)-pop]

	result, err := m.env.Call(ref, args)
	if err != nil {
		return fmt.Errorf("calling %s: %w", ref, err)
	}
	if push > 0 {
		f.push(result)
	}
	return nil
}

func (f *frame) branch(ins *instruction.Instruction, pc int) (int, bool, error) {
	target, ok := ins.Target()
	if !ok {
		return 0, false, ErrInvalidOperand
	}
	destination, ok := f.index[target]
	if !ok {
		return 0, false, ErrInvalidOperand
	}

	taken := true
	switch ins.OpCode.Long() {
	case instruction.Br:
	case instruction.Brfalse, instruction.Brtrue:
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		taken = truthy(v) == (ins.OpCode.Long() == instruction.Brtrue)
	default:
		b, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		a, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		x, y := toFloat(a), toFloat(b)
		switch ins.OpCode.Long() {
		case instruction.Beq:
			taken = x == y
		case instruction.Bge:
			taken = x >= y
		case instruction.Bgt:
			taken = x > y
		case instruction.Ble:
			taken = x <= y
		case instruction.Blt:
			taken = x < y
		default:
			return 0, false, ErrUnsupported
		}
	}

	if taken {
		return destination, false, nil
	}
	return pc + 1, false, nil
}

func (f *frame) binary(op *instruction.OpCode) error {
	b, err := f.pop()
	if err != nil {
		return err
	}
	a, err := f.pop()
	if err != nil {
		return err
	}

	_, aInt := a.(int32)
	_, bInt := b.(int32)
	x, y := toFloat(a), toFloat(b)

	var result float64
	switch op {
	case instruction.Add:
		result = x + y
	case instruction.Sub:
		result = x - y
	case instruction.Mul:
		result = x * y
	case instruction.Ceq:
		f.push(boolInt(x == y))
		return nil
	case instruction.Cgt:
		f.push(boolInt(x > y))
		return nil
	case instruction.Clt:
		f.push(boolInt(x < y))
		return nil
	}

	if aInt && bInt {
		f.push(int32(result))
	} else {
		f.push(float32(result))
	}
	return nil
}

func (f *frame) push(v any) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (any, error) {
	if len(f.stack) == 0 {
		return nil, ErrStackUnderflow
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// varIndex returns the argument or local index of the instruction. Short
// forms encode the index in the opcode relative to base.
func varIndex(ins *instruction.Instruction, base *instruction.OpCode) (int, error) {
	if ins.OpCode.Operand == instruction.InlineVar {
		i, ok := ins.Operand.(uint8)
		if !ok {
			return 0, ErrInvalidOperand
		}
		return int(i), nil
	}
	return int(ins.OpCode.Value - base.Value), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int32:
		return t != 0
	case float32:
		return t != 0
	default:
		return true
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int32:
		return float64(t)
	case float32:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
