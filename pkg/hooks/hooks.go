// Package hooks runs app-specific setup routines ("scenarios") when a
// browser session starts. A hook receives the session's page and may
// return a Stop callback that runs when the session is torn down.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// ErrUnknownHook is returned when no hook is registered under a name.
var ErrUnknownHook = errors.New("unknown hook")

// Page is the part of the browser page a hook may drive.
type Page interface {
	Goto(url string) error
	Click(selector string) error
	Fill(selector, value string) error
	WaitForSelector(selector string) error
	Evaluate(script string) (interface{}, error)
	URL() string
}

// Context is handed to every hook.
type Context struct {
	Page    Page
	BaseURL string
}

// Result is what a hook returns. Stop is optional.
type Result struct {
	Stop func() error
}

// Func is a hook implementation.
type Func func(Context) (Result, error)

// Invoker runs a named hook.
type Invoker interface {
	// Has reports whether a hook is defined under name. An error means
	// the hooks module itself could not be loaded.
	Has(name string) (bool, error)
	Invoke(ctx context.Context, name string, hc Context) (Result, error)
}

// Registry holds hooks compiled into the binary.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name, replacing any previous entry.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Has reports whether a hook is registered under name.
func (r *Registry) Has(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok, nil
}

// Invoke runs the hook registered under name.
func (r *Registry) Invoke(ctx context.Context, name string, hc Context) (Result, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}
	return run(ctx, name, fn, hc)
}

// run calls fn and waits for it or for ctx. A hook that outlives ctx keeps
// running in the background; its result is discarded.
func run(ctx context.Context, name string, fn Func, hc Context) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("hook %q panicked: %v", name, p)}
			}
		}()
		res, err := fn(hc)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, fmt.Errorf("hook %q: %w", name, ctx.Err())
	}
}

// FuncName converts a scenario name such as "admin-login" into the
// exported Go identifier "AdminLogin".
func FuncName(scenario string) string {
	var b strings.Builder
	upper := true
	for _, r := range scenario {
		if r == '-' || r == '_' || r == ' ' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
