package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/retroenv/retropatch/internal/instruction"
)

// Object is an instance whose fields are addressed by name.
type Object map[string]any

// MapEnv is an environment backed by maps, keyed by qualified Type::Name references.
type MapEnv struct {
	Statics map[string]any
	Methods map[string]func(args []any) (any, error)
}

// NewMapEnv returns an empty map environment.
func NewMapEnv() *MapEnv {
	return &MapEnv{
		Statics: map[string]any{},
		Methods: map[string]func(args []any) (any, error){},
	}
}

// Define registers the implementation of a method.
func (e *MapEnv) Define(m instruction.MethodRef, fn func(args []any) (any, error)) {
	e.Methods[m.Type+"::"+m.Name] = fn
}

// Predicate registers a zero argument method returning the result of fn.
func (e *MapEnv) Predicate(m instruction.MethodRef, fn func() bool) {
	e.Define(m, func([]any) (any, error) {
		return fn(), nil
	})
}

// LoadField returns the value of an instance field of the object.
func (e *MapEnv) LoadField(obj any, field instruction.Field) (any, error) {
	o, ok := obj.(Object)
	if !ok {
		return nil, fmt.Errorf("loading %s from %T: %w", field, obj, ErrUnresolved)
	}
	v, ok := o[field.Name]
	if !ok {
		return nil, fmt.Errorf("field %s: %w", field, ErrUnresolved)
	}
	return v, nil
}

// LoadStatic returns the value of a static field.
func (e *MapEnv) LoadStatic(field instruction.Field) (any, error) {
	v, ok := e.Statics[field.Type+"::"+field.Name]
	if !ok {
		return nil, fmt.Errorf("static field %s: %w", field, ErrUnresolved)
	}
	return v, nil
}

// StoreField sets an instance field, or a static field if obj is nil.
func (e *MapEnv) StoreField(obj any, field instruction.Field, value any) error {
	if obj == nil {
		e.Statics[field.Type+"::"+field.Name] = value
		return nil
	}
	o, ok := obj.(Object)
	if !ok {
		return fmt.Errorf("storing %s to %T: %w", field, obj, ErrUnresolved)
	}
	o[field.Name] = value
	return nil
}

// Call invokes a registered method.
func (e *MapEnv) Call(m instruction.MethodRef, args []any) (any, error) {
	fn, ok := e.Methods[m.Type+"::"+m.Name]
	if !ok {
		return nil, fmt.Errorf("method %s: %w", m, ErrUnresolved)
	}
	return fn(args)
}

// Call is a recorded method invocation.
type Call struct {
	Method instruction.MethodRef
	Args   []any
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = fmt.Sprint(arg)
	}
	return fmt.Sprintf("%s::%s(%s)", c.Method.Type, c.Method.Name, strings.Join(args, ", "))
}

// RecordingEnv records all calls and resolves the references that the
// wrapped environment does not know to a default value.
type RecordingEnv struct {
	Env     Env
	Default any
	Calls   []Call
}

// LoadField returns the value of an instance field of the object.
func (e *RecordingEnv) LoadField(obj any, field instruction.Field) (any, error) {
	v, err := e.Env.LoadField(obj, field)
	if errors.Is(err, ErrUnresolved) {
		return e.Default, nil
	}
	return v, err
}

// LoadStatic returns the value of a static field.
func (e *RecordingEnv) LoadStatic(field instruction.Field) (any, error) {
	v, err := e.Env.LoadStatic(field)
	if errors.Is(err, ErrUnresolved) {
		return e.Default, nil
	}
	return v, err
}

// StoreField sets an instance field.
func (e *RecordingEnv) StoreField(obj any, field instruction.Field, value any) error {
	err := e.Env.StoreField(obj, field, value)
	if errors.Is(err, ErrUnresolved) {
		return nil
	}
	return err
}

// Call records and invokes the method.
func (e *RecordingEnv) Call(m instruction.MethodRef, args []any) (any, error) {
	e.Calls = append(e.Calls, Call{Method: m, Args: args})

	v, err := e.Env.Call(m, args)
	if errors.Is(err, ErrUnresolved) {
		if m.Returns() {
			return e.Default, nil
		}
		return nil, nil
	}
	return v, err
}
