package instruction

import (
	"strings"
)

// Field references a field of a host type.
type Field struct {
	FieldType string
	Type      string
	Name      string
}

// Same returns whether both references name the same field, ignoring the field type.
func (f Field) Same(other Field) bool {
	return f.Type == other.Type && f.Name == other.Name
}

func (f Field) String() string {
	if f.FieldType == "" {
		return f.Type + "::" + f.Name
	}
	return f.FieldType + " " + f.Type + "::" + f.Name
}

// MethodRef references a method of a host type together with the parts of its
// signature that determine the stack effect of a call.
type MethodRef struct {
	Type       string
	Name       string
	ReturnType string // empty or void for methods without result
	Params     []string
	HasThis    bool // instance method, the receiver is popped as well
}

// Same returns whether both references name the same method, ignoring the signature.
func (m MethodRef) Same(other MethodRef) bool {
	return m.Type == other.Type && m.Name == other.Name
}

// Returns returns whether calling the method pushes a result.
func (m MethodRef) Returns() bool {
	return m.ReturnType != "" && m.ReturnType != "void"
}

// StackEffect returns the number of values a call pops and pushes.
func (m MethodRef) StackEffect() (pop, push int) {
	pop = len(m.Params)
	if m.HasThis {
		pop++
	}
	if m.Returns() {
		push = 1
	}
	return pop, push
}

func (m MethodRef) String() string {
	var sb strings.Builder
	if m.HasThis {
		sb.WriteString("instance ")
	}
	if m.Returns() {
		sb.WriteString(m.ReturnType)
	} else {
		sb.WriteString("void")
	}
	sb.WriteString(" ")
	sb.WriteString(m.Type)
	sb.WriteString("::")
	sb.WriteString(m.Name)
	sb.WriteString("(")
	sb.WriteString(strings.Join(m.Params, ", "))
	sb.WriteString(")")
	return sb.String()
}
