package hooks

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ImportPath is the path hook sources use to import this package.
const ImportPath = "github.com/entrhq/domscope/pkg/hooks"

// Symbols exposes the hook types to interpreted code.
var Symbols = interp.Exports{
	ImportPath + "/hooks": {
		"Context": reflect.ValueOf((*Context)(nil)),
		"Result":  reflect.ValueOf((*Result)(nil)),
		"Page":    reflect.ValueOf((*Page)(nil)),
	},
}

// ScriptInvoker loads hooks from a Go source file and interprets them with
// yaegi. The file is loaded once, on first use. A scenario "admin-login"
// resolves to the function AdminLogin, which must have the signature
//
//	func(hooks.Context) (hooks.Result, error)
type ScriptInvoker struct {
	path string

	once    sync.Once
	loadErr error
	pkg     string
	interp  *interp.Interpreter
	mu      sync.Mutex
}

// NewScriptInvoker creates an invoker for the hooks file at path.
func NewScriptInvoker(path string) *ScriptInvoker {
	return &ScriptInvoker{path: path}
}

// Path returns the hooks file path.
func (s *ScriptInvoker) Path() string {
	return s.path
}

// Has reports whether the hooks file defines a function for scenario
// name. Load failures and malformed hooks are returned as errors.
func (s *ScriptInvoker) Has(name string) (bool, error) {
	_, err := s.lookup(name)
	if errors.Is(err, ErrUnknownHook) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Invoke runs the hook for scenario name.
func (s *ScriptInvoker) Invoke(ctx context.Context, name string, hc Context) (Result, error) {
	fn, err := s.lookup(name)
	if err != nil {
		return Result{}, err
	}
	return run(ctx, name, fn, hc)
}

func (s *ScriptInvoker) lookup(name string) (Func, error) {
	s.once.Do(func() { s.loadErr = s.load() })
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := s.pkg + "." + FuncName(name)
	v, err := s.interp.Eval(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (%s not defined in %s)", ErrUnknownHook, name, symbol, s.path)
	}
	fn, ok := v.Interface().(func(Context) (Result, error))
	if !ok {
		return nil, fmt.Errorf("hook %s has signature %s, want func(hooks.Context) (hooks.Result, error)", symbol, v.Type())
	}
	return fn, nil
}

func (s *ScriptInvoker) load() error {
	src, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read hooks file: %w", err)
	}

	f, err := parser.ParseFile(token.NewFileSet(), s.path, src, parser.PackageClauseOnly)
	if err != nil {
		return fmt.Errorf("failed to parse hooks file: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return fmt.Errorf("failed to load hook symbols: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return fmt.Errorf("failed to evaluate hooks file: %w", err)
	}

	s.pkg = f.Name.Name
	s.interp = i
	return nil
}
