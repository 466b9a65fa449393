package pattern

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retropatch/internal/instruction"
)

var (
	livesField  = instruction.Field{FieldType: "PlayerStat", Type: "PlayerStats", Name: "lives"}
	getValueInt = instruction.MethodRef{Type: "PlayerStat", Name: "GetValueInt", ReturnType: "int32", HasThis: true}
	livesPair   = Pattern{Ldfld(livesField), Callvirt(getValueInt)}
)

func ldfldLives() *instruction.Instruction {
	return instruction.New(instruction.Ldfld, livesField)
}

func callGetValueInt() *instruction.Instruction {
	return instruction.New(instruction.Callvirt, getValueInt)
}

func nop() *instruction.Instruction {
	return instruction.New(instruction.Nop, nil)
}

func TestFind(t *testing.T) {
	tests := []struct {
		name         string
		instructions []*instruction.Instruction
		start        int
		expected     int
		err          error
	}{
		{
			name:         "match at start",
			instructions: []*instruction.Instruction{ldfldLives(), callGetValueInt()},
			expected:     2,
		},
		{
			name:         "match after prefix",
			instructions: []*instruction.Instruction{nop(), nop(), ldfldLives(), callGetValueInt(), nop()},
			expected:     4,
		},
		{
			name:         "first of two matches",
			instructions: []*instruction.Instruction{ldfldLives(), callGetValueInt(), ldfldLives(), callGetValueInt()},
			expected:     2,
		},
		{
			name:         "start skips first match",
			instructions: []*instruction.Instruction{ldfldLives(), callGetValueInt(), ldfldLives(), callGetValueInt()},
			start:        1,
			expected:     4,
		},
		{
			name:         "gap between predicates",
			instructions: []*instruction.Instruction{ldfldLives(), nop(), callGetValueInt()},
			err:          ErrPatternNotFound,
		},
		{
			name:         "partial match at the end",
			instructions: []*instruction.Instruction{nop(), ldfldLives()},
			err:          ErrPatternNotFound,
		},
		{
			name:         "overlapping partial match",
			instructions: []*instruction.Instruction{ldfldLives(), ldfldLives(), callGetValueInt()},
			expected:     3,
		},
		{
			name: "empty sequence",
			err:  ErrPatternNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := Find(tt.instructions, tt.start, livesPair)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, pos)
		})
	}
}

func TestFind_EmptyPattern(t *testing.T) {
	instructions := []*instruction.Instruction{nop(), nop()}

	pos, err := Find(instructions, 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestFind_NotFoundLeavesSequenceUnchanged(t *testing.T) {
	instructions := make([]*instruction.Instruction, 0, 50)
	for i := range 50 {
		instructions = append(instructions, instruction.New(instruction.LdcI4, int32(i)))
	}
	before := append([]*instruction.Instruction{}, instructions...)
	var listing []string
	for _, ins := range instructions {
		listing = append(listing, ins.String())
	}

	_, err := Find(instructions, 0, livesPair)
	assert.True(t, errors.Is(err, ErrPatternNotFound))

	assert.Len(t, instructions, 50)
	for i, ins := range instructions {
		assert.True(t, before[i] == ins)
		assert.Equal(t, listing[i], ins.String())
	}
}

// TestFind_LowestMatch compares the matcher against a brute force search over
// random sequences built from a small alphabet.
func TestFind_LowestMatch(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	alphabet := []func() *instruction.Instruction{ldfldLives, callGetValueInt, nop}

	for range 500 {
		n := rnd.Intn(12)
		instructions := make([]*instruction.Instruction, n)
		for i := range instructions {
			instructions[i] = alphabet[rnd.Intn(len(alphabet))]()
		}

		expected := -1
		for i := 0; i+1 < n; i++ {
			if instructions[i].OpCode == instruction.Ldfld && instructions[i+1].OpCode == instruction.Callvirt {
				expected = i + 2
				break
			}
		}

		pos, err := Find(instructions, 0, livesPair)
		if expected == -1 {
			assert.True(t, errors.Is(err, ErrPatternNotFound))
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, expected, pos)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		predicate Predicate
		ins       *instruction.Instruction
		expected  bool
	}{
		{"ldfld same field", Ldfld(livesField), ldfldLives(), true},
		{"ldfld ignores field type", Ldfld(instruction.Field{Type: "PlayerStats", Name: "lives"}), ldfldLives(), true},
		{"ldfld other field", Ldfld(instruction.Field{Type: "PlayerStats", Name: "health"}), ldfldLives(), false},
		{"ldfld other type", Ldfld(instruction.Field{Type: "PersistentPlayerData", Name: "lives"}), ldfldLives(), false},
		{"ldsfld is not ldfld", Ldsfld(livesField), ldfldLives(), false},
		{"callvirt same method", Callvirt(getValueInt), callGetValueInt(), true},
		{"call is not callvirt", Call(getValueInt), callGetValueInt(), false},
		{"ldc.i4 value", LdcI4(7), instruction.New(instruction.LdcI4, int32(7)), true},
		{"ldc.i4 other value", LdcI4(7), instruction.New(instruction.LdcI4, int32(8)), false},
		{"ldc.i4.1 short form", LdcI4(1), instruction.New(instruction.LdcI41, nil), true},
		{"ldc.i4.0 short form", LdcI4(0), instruction.New(instruction.LdcI40, nil), true},
		{"opcode long matches short", OpCode(instruction.Brfalse), instruction.New(instruction.BrfalseS, nil), true},
		{"opcode mismatch", OpCode(instruction.Pop), nop(), false},
		{"branch", Branch(), instruction.New(instruction.BrS, nil), true},
		{"not branch", Not(Branch()), nop(), true},
		{"any", Any(), nop(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.predicate(tt.ins))
		})
	}
}
