// Package codec encodes method bodies as CBOR snapshots. Branch targets are
// stored as instruction indexes, offsets are recomputed when decoding.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
)

// Version of the snapshot format.
const Version = 1

var (
	// ErrUnsupportedVersion is returned for snapshots of a different format version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrInvalidSnapshot is returned for snapshots with inconsistent content.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: creating CBOR encoding mode: %v", err))
	}
	encMode = em
}

// Snapshot is the serialized form of a list of method bodies.
type Snapshot struct {
	Version int      `cbor:"1,keyasint"`
	Methods []Method `cbor:"2,keyasint"`
}

// Method is the serialized form of a method body.
type Method struct {
	Name         string        `cbor:"1,keyasint"`
	Returns      bool          `cbor:"2,keyasint,omitempty"`
	Instructions []Instruction `cbor:"3,keyasint"`
	ReturnType   string        `cbor:"4,keyasint,omitempty"`
}

// Instruction is the serialized form of an instruction. At most one operand
// field is set, matching the operand type of the opcode.
type Instruction struct {
	OpCode string     `cbor:"1,keyasint"`
	Int    *int32     `cbor:"2,keyasint,omitempty"`
	Float  *float32   `cbor:"3,keyasint,omitempty"`
	String *string    `cbor:"4,keyasint,omitempty"`
	Var    *uint8     `cbor:"5,keyasint,omitempty"`
	Field  *Field     `cbor:"6,keyasint,omitempty"`
	Method *MethodRef `cbor:"7,keyasint,omitempty"`
	Target *int       `cbor:"8,keyasint,omitempty"` // index of the branch target
}

// Field is the serialized form of a field reference.
type Field struct {
	FieldType string `cbor:"1,keyasint,omitempty"`
	Type      string `cbor:"2,keyasint"`
	Name      string `cbor:"3,keyasint"`
}

// MethodRef is the serialized form of a method reference.
type MethodRef struct {
	Type       string   `cbor:"1,keyasint"`
	Name       string   `cbor:"2,keyasint"`
	ReturnType string   `cbor:"3,keyasint,omitempty"`
	Params     []string `cbor:"4,keyasint,omitempty"`
	HasThis    bool     `cbor:"5,keyasint,omitempty"`
}

// Marshal serializes the method bodies to CBOR bytes.
func Marshal(bodies ...*method.Body) ([]byte, error) {
	snapshot := Snapshot{
		Version: Version,
		Methods: make([]Method, 0, len(bodies)),
	}

	for _, body := range bodies {
		m, err := encodeMethod(body)
		if err != nil {
			return nil, fmt.Errorf("encoding method %s: %w", body.Name, err)
		}
		snapshot.Methods = append(snapshot.Methods, m)
	}

	data, err := encMode.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshalling snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes method bodies from CBOR bytes.
func Unmarshal(data []byte) ([]*method.Body, error) {
	var snapshot Snapshot
	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	if snapshot.Version != Version {
		return nil, fmt.Errorf("version %d: %w", snapshot.Version, ErrUnsupportedVersion)
	}

	bodies := make([]*method.Body, 0, len(snapshot.Methods))
	for _, m := range snapshot.Methods {
		body, err := decodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("decoding method %s: %w", m.Name, err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

func encodeMethod(body *method.Body) (Method, error) {
	index := make(map[*instruction.Instruction]int, body.Len())
	for i, ins := range body.Instructions {
		index[ins] = i
	}

	m := Method{
		Name:         body.Name,
		Returns:      body.Returns,
		ReturnType:   body.ReturnType,
		Instructions: make([]Instruction, 0, body.Len()),
	}

	for _, ins := range body.Instructions {
		encoded, err := encodeInstruction(ins, index)
		if err != nil {
			return Method{}, err
		}
		m.Instructions = append(m.Instructions, encoded)
	}
	return m, nil
}

func encodeInstruction(ins *instruction.Instruction, index map[*instruction.Instruction]int) (Instruction, error) {
	encoded := Instruction{OpCode: ins.OpCode.Name}

	if ins.IsBranch() {
		target, ok := ins.Target()
		if !ok {
			return Instruction{}, fmt.Errorf("%s: %w", ins, method.ErrUnboundLabel)
		}
		i, ok := index[target]
		if !ok {
			return Instruction{}, fmt.Errorf("%s: %w", ins, method.ErrDanglingTarget)
		}
		encoded.Target = &i
		return encoded, nil
	}

	switch op := ins.Operand.(type) {
	case nil:
	case int32:
		encoded.Int = &op
	case float32:
		encoded.Float = &op
	case string:
		encoded.String = &op
	case uint8:
		encoded.Var = &op
	case instruction.Field:
		encoded.Field = &Field{FieldType: op.FieldType, Type: op.Type, Name: op.Name}
	case instruction.MethodRef:
		encoded.Method = &MethodRef{
			Type:       op.Type,
			Name:       op.Name,
			ReturnType: op.ReturnType,
			Params:     op.Params,
			HasThis:    op.HasThis,
		}
	default:
		return Instruction{}, fmt.Errorf("%s: unsupported operand type %T: %w", ins, op, ErrInvalidSnapshot)
	}
	return encoded, nil
}

func decodeMethod(m Method) (*method.Body, error) {
	instructions := make([]*instruction.Instruction, len(m.Instructions))
	for i, encoded := range m.Instructions {
		op, ok := instruction.Opcodes[encoded.OpCode]
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown opcode '%s': %w", i, encoded.OpCode, ErrInvalidSnapshot)
		}
		instructions[i] = instruction.New(op, nil)
	}

	for i, encoded := range m.Instructions {
		ins := instructions[i]
		operand, err := decodeOperand(ins.OpCode, encoded, instructions)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		ins.Operand = operand
	}

	body := method.New(m.Name, m.Returns, instructions...)
	body.ReturnType = m.ReturnType
	return body, nil
}

func decodeOperand(op *instruction.OpCode, encoded Instruction, instructions []*instruction.Instruction) (any, error) {
	var (
		operand any
		present bool
	)

	switch op.Operand {
	case instruction.InlineNone:
		return nil, nil
	case instruction.InlineI, instruction.ShortInlineI:
		if present = encoded.Int != nil; present {
			operand = *encoded.Int
		}
	case instruction.InlineR:
		if present = encoded.Float != nil; present {
			operand = *encoded.Float
		}
	case instruction.InlineString:
		if present = encoded.String != nil; present {
			operand = *encoded.String
		}
	case instruction.InlineVar:
		if present = encoded.Var != nil; present {
			operand = *encoded.Var
		}
	case instruction.InlineField:
		if present = encoded.Field != nil; present {
			f := encoded.Field
			operand = instruction.Field{FieldType: f.FieldType, Type: f.Type, Name: f.Name}
		}
	case instruction.InlineMethod:
		if present = encoded.Method != nil; present {
			m := encoded.Method
			operand = instruction.MethodRef{
				Type:       m.Type,
				Name:       m.Name,
				ReturnType: m.ReturnType,
				Params:     m.Params,
				HasThis:    m.HasThis,
			}
		}
	case instruction.ShortInlineBrTarget, instruction.InlineBrTarget:
		if present = encoded.Target != nil; present {
			target := *encoded.Target
			if target < 0 || target >= len(instructions) {
				return nil, fmt.Errorf("%s target %d out of range: %w", op, target, ErrInvalidSnapshot)
			}
			operand = instructions[target]
		}
	}

	if !present {
		return nil, fmt.Errorf("%s is missing its operand: %w", op, ErrInvalidSnapshot)
	}
	return operand, nil
}
