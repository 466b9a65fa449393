// Package hook implements interception points around host functions.
// An interceptor receives the function it wraps explicitly and decides
// whether and when to call it.
package hook

import (
	"sync"

	"github.com/retroenv/retrogolib/log"
)

// Func is a host function taking a single argument.
type Func[A, R any] func(arg A) R

// Interceptor wraps a function. It may call orig zero or one times and may
// substitute the result.
type Interceptor[A, R any] func(orig Func[A, R], arg A) R

// Point is a named interception point of a host function.
type Point[A, R any] struct {
	name   string
	logger *log.Logger

	mu    sync.RWMutex
	base  Func[A, R]
	chain Func[A, R]
	count int
}

// New returns a new interception point for the base function.
func New[A, R any](logger *log.Logger, name string, base Func[A, R]) *Point[A, R] {
	return &Point[A, R]{
		name:   name,
		logger: logger,
		base:   base,
		chain:  base,
	}
}

// Name returns the name of the point.
func (p *Point[A, R]) Name() string {
	return p.name
}

// Len returns the number of installed interceptors.
func (p *Point[A, R]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// Add installs an interceptor. Interceptors added later wrap the ones added
// before and are called first.
func (p *Point[A, R]) Add(interceptor Interceptor[A, R]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inner := p.chain
	p.chain = func(arg A) R {
		return interceptor(inner, arg)
	}
	p.count++

	p.logger.Debug("Interceptor added",
		log.String("point", p.name),
		log.Int("count", p.count),
	)
}

// Reset removes all interceptors.
func (p *Point[A, R]) Reset() {
	p.mu.Lock()
	p.chain = p.base
	p.count = 0
	p.mu.Unlock()
}

// Call invokes the function through all installed interceptors.
func (p *Point[A, R]) Call(arg A) R {
	p.mu.RLock()
	chain := p.chain
	p.mu.RUnlock()
	return chain(arg)
}

// None is the result type of functions without a result.
type None struct{}

// Action returns an interceptor for functions without a result.
func Action[A any](fn func(orig func(A), arg A)) Interceptor[A, None] {
	return func(orig Func[A, None], arg A) None {
		fn(func(a A) { orig(a) }, arg)
		return None{}
	}
}

// NewAction returns a new interception point for a function without a result.
func NewAction[A any](logger *log.Logger, name string, base func(A)) *Point[A, None] {
	return New(logger, name, func(arg A) None {
		base(arg)
		return None{}
	})
}
