package hydra

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprFilter accepts field names for which a boolean expression holds.
// The expression sees the field under the variable "name", for example
// `not (name startsWith "secret")` or `name in ["id", "title"]`.
type ExprFilter struct {
	source  string
	program *vm.Program
}

type exprEnv struct {
	Name string `expr:"name"`
}

// NewExprFilter compiles source into a filter.
// Compilation failures are configuration errors.
func NewExprFilter(source string) (*ExprFilter, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeConfiguration, "invalid filter expression: "+source, err)
	}
	return &ExprFilter{source: source, program: program}, nil
}

// String returns the expression source.
func (f *ExprFilter) String() string {
	return f.source
}

// Filter implements Filter. Runtime failures reject the name.
func (f *ExprFilter) Filter(name string) bool {
	out, err := expr.Run(f.program, exprEnv{Name: name})
	if err != nil {
		return false
	}
	accepted, _ := out.(bool)
	return accepted
}
