package codec

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
)

func patchedBody(t *testing.T) *method.Body {
	t.Helper()

	setLives := instruction.MethodRef{Type: "UI_PlayerLives", Name: "SetLives", ReturnType: "void",
		Params: []string{"int32"}, HasThis: true}
	condition := instruction.MethodRef{Type: "OneHitKnockOut", Name: "get_IsOHKOEnabled", ReturnType: "bool"}

	call := instruction.New(instruction.CallOp, setLives)
	skip := instruction.NewLabel()
	assert.NoError(t, skip.Bind(call))

	return method.New("UI_PlayerLives::LivesChanged", false,
		instruction.New(instruction.Ldarg0, nil),
		instruction.New(instruction.Ldarg1, nil),
		instruction.New(instruction.Ldfld, instruction.Field{FieldType: "int32", Type: "PersistentPlayerData", Name: "lives"}),
		instruction.New(instruction.CallOp, condition),
		instruction.New(instruction.BrfalseS, skip),
		instruction.New(instruction.Pop, nil),
		instruction.New(instruction.LdcI4, int32(1)),
		call,
		instruction.New(instruction.Ldstr, "lives // updated"),
		instruction.New(instruction.Pop, nil),
		instruction.New(instruction.LdcR4, float32(0.5)),
		instruction.New(instruction.StlocS, uint8(4)),
		instruction.New(instruction.Ret, nil),
	)
}

func TestRoundTrip(t *testing.T) {
	body := patchedBody(t)

	data, err := Marshal(body)
	assert.NoError(t, err)

	again, err := Marshal(body)
	assert.NoError(t, err)
	assert.Equal(t, data, again)

	bodies, err := Unmarshal(data)
	assert.NoError(t, err)
	assert.Len(t, bodies, 1)

	decoded := bodies[0]
	assert.Equal(t, body.Name, decoded.Name)
	assert.Equal(t, body.Returns, decoded.Returns)
	assert.Equal(t, body.Len(), decoded.Len())
	assert.Equal(t, body.Size(), decoded.Size())

	for i, ins := range body.Instructions {
		got := decoded.At(i)
		assert.Equal(t, ins.OpCode, got.OpCode)
		assert.Equal(t, ins.Offset, got.Offset)

		if ins.IsBranch() {
			want, _ := ins.Target()
			target, ok := got.Target()
			assert.True(t, ok)
			assert.Equal(t, body.IndexOf(want), decoded.IndexOf(target))
			continue
		}
		assert.Equal(t, ins.Operand, got.Operand)
	}
	assert.NoError(t, decoded.Validate())
}

func TestMarshal_UnboundLabel(t *testing.T) {
	body := method.New("T::M", false,
		instruction.New(instruction.BrS, instruction.NewLabel()),
		instruction.New(instruction.Ret, nil),
	)

	_, err := Marshal(body)
	assert.True(t, errors.Is(err, method.ErrUnboundLabel))
}

func TestUnmarshal_Errors(t *testing.T) {
	target := 5
	tests := []struct {
		name     string
		snapshot Snapshot
		err      error
	}{
		{
			name:     "version",
			snapshot: Snapshot{Version: 2},
			err:      ErrUnsupportedVersion,
		},
		{
			name: "unknown opcode",
			snapshot: Snapshot{Version: Version, Methods: []Method{
				{Name: "T::M", Instructions: []Instruction{{OpCode: "jmp"}}},
			}},
			err: ErrInvalidSnapshot,
		},
		{
			name: "missing operand",
			snapshot: Snapshot{Version: Version, Methods: []Method{
				{Name: "T::M", Instructions: []Instruction{{OpCode: "ldc.i4"}, {OpCode: "ret"}}},
			}},
			err: ErrInvalidSnapshot,
		},
		{
			name: "target out of range",
			snapshot: Snapshot{Version: Version, Methods: []Method{
				{Name: "T::M", Instructions: []Instruction{{OpCode: "br.s", Target: &target}, {OpCode: "ret"}}},
			}},
			err: ErrInvalidSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := cbor.Marshal(tt.snapshot)
			assert.NoError(t, err)

			_, err = Unmarshal(data)
			assert.True(t, errors.Is(err, tt.err))
		})
	}

	_, err := Unmarshal([]byte{0xff})
	assert.Error(t, err)
}
