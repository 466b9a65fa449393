// Package listing decodes textual method body listings.
//
// A listing contains one or more methods. Every method starts with a header
// line followed by one instruction per line:
//
//	.method void UI_PlayerLives::LivesChanged
//	  IL_0000: ldarg.1
//	  IL_0001: ldfld int32 PersistentPlayerData::lives
//	  IL_0006: brtrue.s IL_000c
//
// Instructions may be prefixed by a label, branches reference labels by name.
// Text following // is a comment.
package listing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
)

const methodDirective = ".method"

var (
	// ErrSyntax is returned for lines that can not be parsed.
	ErrSyntax = errors.New("syntax error")
	// ErrUnknownOpCode is returned for unsupported instruction names.
	ErrUnknownOpCode = errors.New("unknown opcode")
	// ErrUnknownLabel is returned for branches to labels that are not defined in the method.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrDuplicateLabel is returned for labels that are defined twice in a method.
	ErrDuplicateLabel = errors.New("duplicate label")
)

// Decoder reads method bodies from listings.
type Decoder struct {
	logger *log.Logger
}

// NewDecoder returns a new listing decoder.
func NewDecoder(logger *log.Logger) *Decoder {
	return &Decoder{
		logger: logger,
	}
}

type pendingBranch struct {
	ins   *instruction.Instruction
	label string
	line  int
}

// methodState collects the instructions of the method that is currently decoded.
type methodState struct {
	name       string
	returns    bool
	returnType string
	line       int

	instructions []*instruction.Instruction
	labels       map[string]*instruction.Instruction
	branches     []pendingBranch
}

// Decode reads all methods of the listing.
func (d *Decoder) Decode(r io.Reader) ([]*method.Body, error) {
	var (
		bodies  []*method.Body
		current *methodState
	)

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, methodDirective) {
			if current != nil {
				body, err := current.finish()
				if err != nil {
					return nil, err
				}
				bodies = append(bodies, body)
			}

			state, err := parseHeader(line, lineNumber)
			if err != nil {
				return nil, err
			}
			current = state
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("line %d: instruction outside of method: %w", lineNumber, ErrSyntax)
		}
		if err := current.parseInstruction(line, lineNumber); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}

	if current != nil {
		body, err := current.finish()
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}

	d.logger.Debug("Listing decoded", log.Int("methods", len(bodies)))
	return bodies, nil
}

// DecodeString reads all methods of the listing text.
func (d *Decoder) DecodeString(s string) ([]*method.Body, error) {
	return d.Decode(strings.NewReader(s))
}

func parseHeader(line string, lineNumber int) (*methodState, error) {
	fields := strings.Fields(strings.TrimPrefix(line, methodDirective))

	state := &methodState{
		line:   lineNumber,
		labels: map[string]*instruction.Instruction{},
	}

	switch len(fields) {
	case 1:
		state.name = fields[0]
	case 2:
		state.name = fields[1]
		state.returnType = fields[0]
		state.returns = fields[0] != "void"
	default:
		return nil, fmt.Errorf("line %d: invalid method header '%s': %w", lineNumber, line, ErrSyntax)
	}

	if !strings.Contains(state.name, "::") {
		return nil, fmt.Errorf("line %d: method name '%s' is not qualified: %w", lineNumber, state.name, ErrSyntax)
	}
	return state, nil
}

func (m *methodState) parseInstruction(line string, lineNumber int) error {
	first, rest := splitToken(line)

	label, hasLabel := strings.CutSuffix(first, ":")
	if hasLabel {
		if label == "" {
			return fmt.Errorf("line %d: empty label: %w", lineNumber, ErrSyntax)
		}
		if _, exists := m.labels[label]; exists {
			return fmt.Errorf("line %d: label '%s': %w", lineNumber, label, ErrDuplicateLabel)
		}
		first, rest = splitToken(rest)
		if first == "" {
			return fmt.Errorf("line %d: label '%s' without instruction: %w", lineNumber, label, ErrSyntax)
		}
	}

	op, ok := instruction.Opcodes[strings.ToLower(first)]
	if !ok {
		return fmt.Errorf("line %d: '%s': %w", lineNumber, first, ErrUnknownOpCode)
	}

	ins := instruction.New(op, nil)
	if op.IsBranch() {
		if rest == "" {
			return fmt.Errorf("line %d: %s is missing the branch target: %w", lineNumber, op, ErrSyntax)
		}
		m.branches = append(m.branches, pendingBranch{ins: ins, label: rest, line: lineNumber})
	} else {
		operand, err := parseOperand(op, rest)
		if err != nil {
			return fmt.Errorf("line %d: parsing operand of %s: %w", lineNumber, op, err)
		}
		ins.Operand = operand
	}

	m.instructions = append(m.instructions, ins)
	if hasLabel {
		m.labels[label] = ins
	}
	return nil
}

// finish resolves the branch targets and returns the method body.
func (m *methodState) finish() (*method.Body, error) {
	for _, branch := range m.branches {
		target, ok := m.labels[branch.label]
		if !ok {
			return nil, fmt.Errorf("line %d: '%s' in %s: %w", branch.line, branch.label, m.name, ErrUnknownLabel)
		}
		branch.ins.Operand = target
	}

	body := method.New(m.name, m.returns, m.instructions...)
	body.ReturnType = m.returnType
	return body, nil
}

func parseOperand(op *instruction.OpCode, s string) (any, error) {
	if op.Operand == instruction.InlineNone {
		if s != "" {
			return nil, fmt.Errorf("unexpected operand '%s': %w", s, ErrSyntax)
		}
		return nil, nil
	}
	if s == "" {
		return nil, fmt.Errorf("missing operand: %w", ErrSyntax)
	}

	switch op.Operand {
	case instruction.InlineI:
		i, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing integer '%s': %w", s, ErrSyntax)
		}
		return int32(i), nil

	case instruction.ShortInlineI:
		i, err := strconv.ParseInt(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("parsing short integer '%s': %w", s, ErrSyntax)
		}
		return int32(i), nil

	case instruction.InlineR:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing float '%s': %w", s, ErrSyntax)
		}
		return float32(f), nil

	case instruction.InlineString:
		str, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("parsing string %s: %w", s, ErrSyntax)
		}
		return str, nil

	case instruction.InlineVar:
		i, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("parsing variable index '%s': %w", s, ErrSyntax)
		}
		return uint8(i), nil

	case instruction.InlineField:
		return ParseField(s)

	case instruction.InlineMethod:
		return ParseMethod(s)

	default:
		return nil, fmt.Errorf("operand type %d: %w", op.Operand, ErrSyntax)
	}
}

// ParseField parses a field reference of the form [FieldType] Type::Name.
func ParseField(s string) (instruction.Field, error) {
	var field instruction.Field

	qualified := s
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		field.FieldType = strings.TrimSpace(s[:i])
		qualified = s[i+1:]
	}

	typ, name, ok := splitQualified(qualified)
	if !ok {
		return instruction.Field{}, fmt.Errorf("field '%s' is not qualified: %w", s, ErrSyntax)
	}
	field.Type = typ
	field.Name = name
	return field, nil
}

// ParseMethod parses a method reference of the form
// [instance] ReturnType Type::Name(Param, ...).
func ParseMethod(s string) (instruction.MethodRef, error) {
	var ref instruction.MethodRef

	rest, hasThis := strings.CutPrefix(s, "instance ")
	ref.HasThis = hasThis

	returnType, signature := splitToken(rest)
	open := strings.IndexByte(signature, '(')
	if returnType == "" || open < 0 || !strings.HasSuffix(signature, ")") {
		return instruction.MethodRef{}, fmt.Errorf("invalid method signature '%s': %w", s, ErrSyntax)
	}
	ref.ReturnType = returnType

	typ, name, ok := splitQualified(signature[:open])
	if !ok {
		return instruction.MethodRef{}, fmt.Errorf("method '%s' is not qualified: %w", s, ErrSyntax)
	}
	ref.Type = typ
	ref.Name = name

	params := strings.TrimSpace(signature[open+1 : len(signature)-1])
	if params != "" {
		for _, param := range strings.Split(params, ",") {
			param = strings.TrimSpace(param)
			if param == "" {
				return instruction.MethodRef{}, fmt.Errorf("empty parameter in '%s': %w", s, ErrSyntax)
			}
			ref.Params = append(ref.Params, param)
		}
	}
	return ref, nil
}

func splitQualified(s string) (string, string, bool) {
	i := strings.LastIndex(s, "::")
	if i <= 0 || i+2 >= len(s) {
		return "", "", false
	}
	return s[:i], s[i+2:], true
}

// splitToken returns the first whitespace separated token and the trimmed rest.
func splitToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// stripComment removes a trailing // comment that is not part of a string.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case c == '/' && !inString && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}
