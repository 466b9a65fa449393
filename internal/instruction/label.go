package instruction

import "errors"

var (
	// ErrLabelRebound is returned when binding a label that is already bound.
	ErrLabelRebound = errors.New("label is already bound")
	// ErrNilTarget is returned when binding a label to no instruction.
	ErrNilTarget = errors.New("label target is nil")
)

// Label is a forward reference to an instruction that does not exist yet or
// whose position is not known. Branches may reference a label until it is bound.
type Label struct {
	target *Instruction
}

// NewLabel returns a new unbound label.
func NewLabel() *Label {
	return &Label{}
}

// Bind binds the label to its target instruction. A label can only be bound once.
func (l *Label) Bind(target *Instruction) error {
	if target == nil {
		return ErrNilTarget
	}
	if l.target != nil {
		return ErrLabelRebound
	}
	l.target = target
	return nil
}

// Bound returns whether the label has a target.
func (l *Label) Bound() bool {
	return l.target != nil
}

// Target returns the bound target instruction or nil.
func (l *Label) Target() *Instruction {
	return l.target
}
