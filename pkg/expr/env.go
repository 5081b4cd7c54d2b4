package expr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrTimeout is returned when an evaluation exceeds the configured
// deadline and is interrupted.
var ErrTimeout = errors.New("expr: evaluation timed out")

// DefaultDeadline bounds a single evaluation. Directive expressions are
// tiny; anything running this long is a runaway loop.
const DefaultDeadline = 250 * time.Millisecond

// Env evaluates directive expressions against a Scope.
//
// Expressions are ECMAScript, interpreted in-process; there is no code
// generation and no host eval. Identifier resolution goes through the
// scope chain, so reads track and assignments write the backing signal.
//
// The evaluator trusts its input. Expressions come from the page author,
// not from clients; the interrupt deadline bounds runtime but nothing
// restricts what an expression may compute. Do not feed it untrusted
// templates.
//
// An Env is not safe for concurrent use. Each session owns one.
type Env struct {
	vm       *goja.Runtime
	deadline time.Duration

	// programs caches compiled sources. Directive expressions repeat
	// (every row of a p-for shares them), so compilation is once per
	// distinct source.
	programs   map[string]*goja.Program
	programsMu sync.Mutex
}

// Option configures an Env.
type Option func(*Env)

// WithDeadline sets the per-evaluation interrupt deadline.
// Zero disables the interrupt entirely.
func WithDeadline(d time.Duration) Option {
	return func(e *Env) {
		e.deadline = d
	}
}

// New creates an evaluation environment.
func New(opts ...Option) *Env {
	e := &Env{
		vm:       goja.New(),
		deadline: DefaultDeadline,
		programs: make(map[string]*goja.Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval evaluates src as an expression in the given scope and returns
// its value, exported to a plain Go value.
func (e *Env) Eval(src string, scope *Scope) (any, error) {
	// Parenthesized so object literals parse as expressions, not blocks.
	prog, err := e.compile("with($scope){(" + src + "\n)}")
	if err != nil {
		return nil, fmt.Errorf("expr: compile %q: %w", src, err)
	}

	v, err := e.run(prog, scope)
	if err != nil {
		return nil, err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

// Exec runs src as a statement list in the given scope. Assignments to
// scope identifiers write the backing signal.
func (e *Env) Exec(src string, scope *Scope) error {
	prog, err := e.compile("with($scope){" + src + "\n}")
	if err != nil {
		return fmt.Errorf("expr: compile %q: %w", src, err)
	}

	_, err = e.run(prog, scope)
	return err
}

// compile returns the cached program for wrapped source, compiling on
// first use. Non-strict: the with statement is the scoping mechanism.
func (e *Env) compile(wrapped string) (*goja.Program, error) {
	e.programsMu.Lock()
	defer e.programsMu.Unlock()

	if prog, ok := e.programs[wrapped]; ok {
		return prog, nil
	}

	prog, err := goja.Compile("directive", wrapped, false)
	if err != nil {
		return nil, err
	}
	e.programs[wrapped] = prog
	return prog, nil
}

// run executes a compiled program with $scope bound and the interrupt
// deadline armed.
func (e *Env) run(prog *goja.Program, scope *Scope) (goja.Value, error) {
	e.vm.Set("$scope", e.vm.NewDynamicObject(&scopeObject{env: e, scope: scope}))

	// A previous run's timer may have fired after its result was read;
	// drop any pending interrupt before executing.
	e.vm.ClearInterrupt()

	if e.deadline > 0 {
		timer := time.AfterFunc(e.deadline, func() {
			e.vm.Interrupt(ErrTimeout)
		})
		// LIFO: the timer stops first, then the interrupt it may have
		// planted in the meantime is cleared.
		defer e.vm.ClearInterrupt()
		defer timer.Stop()
	}

	v, err := e.vm.RunProgram(prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("expr: %w", err)
	}
	return v, nil
}

// scopeObject adapts a Scope to goja's dynamic object interface so that
// "with($scope)" resolves identifiers through the scope chain.
type scopeObject struct {
	env   *Env
	scope *Scope
}

func (o *scopeObject) Get(key string) goja.Value {
	if v, ok := o.scope.Resolve(key); ok {
		return o.env.vm.ToValue(v.Get())
	}
	return goja.Undefined()
}

func (o *scopeObject) Set(key string, val goja.Value) bool {
	if v, ok := o.scope.Resolve(key); ok {
		if v.Set == nil {
			return false
		}
		v.Set(val.Export())
		return true
	}

	// Assignment to an unbound name defines it in the innermost scope.
	o.scope.Define(key, Stored(val.Export()))
	return true
}

func (o *scopeObject) Has(key string) bool {
	_, ok := o.scope.Resolve(key)
	return ok
}

func (o *scopeObject) Delete(key string) bool {
	return false
}

func (o *scopeObject) Keys() []string {
	return o.scope.Names()
}
