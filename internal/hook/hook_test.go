package hook

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestPoint_Order(t *testing.T) {
	logger := log.NewTestLogger(t)
	var calls []string

	p := New(logger, "double", func(x int) int {
		calls = append(calls, "base")
		return x * 2
	})
	assert.Equal(t, "double", p.Name())
	assert.Equal(t, 6, p.Call(3))

	p.Add(func(orig Func[int, int], x int) int {
		calls = append(calls, "first")
		return orig(x) + 1
	})
	p.Add(func(orig Func[int, int], x int) int {
		calls = append(calls, "second")
		return orig(x) * 10
	})
	assert.Equal(t, 2, p.Len())

	calls = nil
	assert.Equal(t, 70, p.Call(3))
	assert.Equal(t, []string{"second", "first", "base"}, calls)

	p.Reset()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 6, p.Call(3))
}

func TestPoint_SkipOriginal(t *testing.T) {
	logger := log.NewTestLogger(t)
	called := false

	p := New(logger, "health", func(x float32) float32 {
		called = true
		return x
	})
	p.Add(func(_ Func[float32, float32], x float32) float32 {
		if x < 1 {
			return 0
		}
		return 1
	})

	assert.Equal(t, float32(0), p.Call(0.5))
	assert.Equal(t, float32(1), p.Call(1))
	assert.False(t, called)
}

func TestAction(t *testing.T) {
	logger := log.NewTestLogger(t)
	var events []string

	p := NewAction(logger, "stat", func(name string) {
		events = append(events, "add "+name)
	})
	p.Add(Action(func(orig func(string), name string) {
		orig(name)
		events = append(events, "after "+name)
	}))

	p.Call("damage_taken")
	assert.Equal(t, []string{"add damage_taken", "after damage_taken"}, events)
}
