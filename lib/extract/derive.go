package extract

import (
	"github.com/expr-lang/expr"
)

// DeriveExpr compiles an expression into a DeriveFunc. The expression is
// evaluated against the fields extracted so far, each exposed under its
// declared name; missing fields appear as nil. Guard against them with
// short-circuits, e.g.
//
//	sale_price != nil && original_price != nil && sale_price < original_price
//
// Any evaluation fault resolves to the missing sentinel rather than an
// error, keeping derive fields total.
func DeriveExpr(expression string) (DeriveFunc, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	return func(record *Record) Value {
		env := map[string]any{}
		for _, name := range record.Names() {
			env[name] = record.Get(name).Native()
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return Missing
		}
		return FromAny(out)
	}, nil
}
