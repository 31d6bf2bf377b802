package targeting

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// ExpressionEvaluator evaluates free-form campaign expressions written in
// CEL against the request context. Compiled programs are cached.
type ExpressionEvaluator struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewExpressionEvaluator creates an expression evaluator with caching
func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{
		cache: make(map[string]cel.Program),
	}
}

// Evaluate evaluates a CEL expression; the request context is bound to `ctx`
func (e *ExpressionEvaluator) Evaluate(expr string, context map[string]any) (bool, error) {
	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()

	if !exists {
		var err error
		prg, err = e.compile(expr)
		if err != nil {
			return false, err
		}

		e.mu.Lock()
		e.cache[expr] = prg
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"ctx": context,
	})
	if err != nil {
		return false, fmt.Errorf("expression evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}

// Check compiles an expression without evaluating it, for validation
func (e *ExpressionEvaluator) Check(expr string) error {
	_, err := e.compile(expr)
	return err
}

func (e *ExpressionEvaluator) compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("ctx", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expression compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

// ClearCache clears the compiled expression cache
func (e *ExpressionEvaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}
