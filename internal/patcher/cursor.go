package patcher

import (
	"errors"
	"fmt"

	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/pattern"
)

// ErrNoContinuation is returned when a label is marked at the end of a body,
// where no instruction exists that it could be bound to.
var ErrNoContinuation = errors.New("no instruction follows the cursor")

// MoveType defines where the cursor is placed relative to a match.
type MoveType int

const (
	MoveAfter  MoveType = iota // position after the last matched instruction
	MoveBefore                 // position before the first matched instruction
)

// Cursor is an insertion point inside a method body. Emitted instructions
// are inserted before the instruction at the cursor.
type Cursor struct {
	body  *method.Body
	index int
}

// NewCursor returns a cursor positioned before the first instruction.
func NewCursor(body *method.Body) *Cursor {
	return &Cursor{body: body}
}

// Index returns the index of the instruction following the cursor.
func (c *Cursor) Index() int {
	return c.index
}

// Next returns the instruction following the cursor or nil at the end.
func (c *Cursor) Next() *instruction.Instruction {
	return c.body.At(c.index)
}

// Goto moves the cursor to the given index.
func (c *Cursor) Goto(index int) error {
	if index < 0 || index > c.body.Len() {
		return fmt.Errorf("moving cursor to %d: %w", index, method.ErrIndexOutOfRange)
	}
	c.index = index
	return nil
}

// GotoNext searches for the pattern starting at the cursor and moves the
// cursor according to the move type. The cursor is unchanged if the pattern
// is not found.
func (c *Cursor) GotoNext(move MoveType, predicates ...pattern.Predicate) error {
	start, err := pattern.Match(c.body.Instructions, c.index, predicates)
	if err != nil {
		return err
	}

	switch move {
	case MoveBefore:
		c.index = start
	default:
		c.index = start + len(predicates)
	}
	return nil
}

// Emit inserts a new instruction at the cursor and moves the cursor after it.
func (c *Cursor) Emit(op *instruction.OpCode, operand any) (*instruction.Instruction, error) {
	ins := instruction.New(op, operand)
	if err := c.body.Insert(c.index, ins); err != nil {
		return nil, err
	}
	c.index++
	return ins, nil
}

// DefineLabel returns a new unbound label.
func (c *Cursor) DefineLabel() *instruction.Label {
	return instruction.NewLabel()
}

// MarkLabel binds the label to the instruction following the cursor.
func (c *Cursor) MarkLabel(label *instruction.Label) error {
	next := c.Next()
	if next == nil {
		return ErrNoContinuation
	}
	if err := label.Bind(next); err != nil {
		return fmt.Errorf("binding label to %s: %w", next, err)
	}
	return nil
}
