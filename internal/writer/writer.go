// Package writer implements method body listing output.
package writer

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/stack"
)

// Writer writes method bodies as listings that the listing decoder can read back.
type Writer struct {
	options Options
	writer  io.Writer
}

// Options of the writer.
type Options struct {
	StackComments bool // append the stack depth before every instruction as comment
}

// New creates a new writer.
func New(writer io.Writer, options Options) *Writer {
	return &Writer{
		options: options,
		writer:  writer,
	}
}

// Listing writes all method bodies, separated by an empty line.
func (w Writer) Listing(bodies ...*method.Body) error {
	for i, body := range bodies {
		if i > 0 {
			if _, err := fmt.Fprintln(w.writer); err != nil {
				return fmt.Errorf("writing line: %w", err)
			}
		}
		if err := w.writeMethod(body); err != nil {
			return fmt.Errorf("writing method %s: %w", body.Name, err)
		}
	}
	return nil
}

// Table writes all method bodies as a table with one row per instruction.
func (w Writer) Table(bodies ...*method.Body) error {
	for _, body := range bodies {
		depths, err := stack.Analyze(body)
		if err != nil {
			return fmt.Errorf("analyzing stack of %s: %w", body.Name, err)
		}

		t := table.NewWriter()
		t.SetTitle(body.Name)
		t.AppendHeader(table.Row{"Offset", "OpCode", "Operand", "Size", "Stack"})

		for i, ins := range body.Instructions {
			depth := ""
			if d := depths.At(i); d != stack.Unreachable {
				depth = fmt.Sprint(d)
			}
			t.AppendRow(table.Row{offsetLabel(ins), ins.OpCode.Name, operand(ins), ins.Size(), depth})
		}
		t.AppendFooter(table.Row{"", "", "", body.Size(), ""})

		if _, err := fmt.Fprintln(w.writer, t.Render()); err != nil {
			return fmt.Errorf("writing table: %w", err)
		}
	}
	return nil
}

func (w Writer) writeMethod(body *method.Body) error {
	returnType := body.ReturnType
	switch {
	case !body.Returns:
		returnType = "void"
	case returnType == "" || returnType == "void":
		returnType = "object"
	}
	if _, err := fmt.Fprintf(w.writer, ".method %s %s\n", returnType, body.Name); err != nil {
		return fmt.Errorf("writing method header: %w", err)
	}

	var depths stack.Depths
	if w.options.StackComments {
		var err error
		depths, err = stack.Analyze(body)
		if err != nil {
			return fmt.Errorf("analyzing stack: %w", err)
		}
	}

	for i, ins := range body.Instructions {
		code := offsetLabel(ins) + ": " + ins.OpCode.Name
		if s := operand(ins); s != "" {
			code += " " + s
		}

		if depths == nil {
			if _, err := fmt.Fprintf(w.writer, "  %s\n", code); err != nil {
				return fmt.Errorf("writing line: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintf(w.writer, "  %-60s // stack %d\n", code, depths.At(i)); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	return nil
}

func offsetLabel(ins *instruction.Instruction) string {
	return fmt.Sprintf("IL_%04x", ins.Offset)
}

// operand returns the operand text, branches reference the offset label of
// their target.
func operand(ins *instruction.Instruction) string {
	if ins.IsBranch() {
		if target, ok := ins.Target(); ok {
			return offsetLabel(target)
		}
	}
	return ins.OperandString()
}
