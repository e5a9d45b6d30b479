package lake

import (
	"strings"

	"github.com/pkg/errors"
)

// ColumnFunc computes a derived value from the values of a Call's input
// columns, in the order the inputs were named.
type ColumnFunc func(args ...interface{}) (interface{}, error)

type evaluator func(Row) (interface{}, error)

// Expr describes how to compute one output column from an input row. It is
// either a column reference (Col) or a function of columns (Call), optionally
// renamed with As.
type Expr struct {
	inputs []string
	alias  string
	typ    Type
	fn     ColumnFunc
}

// Col references the input column named ref, which may be qualified as
// "alias.name".
func Col(ref string) Expr {
	return Expr{inputs: []string{ref}}
}

// Call computes a column of type typ by applying fn to the named input
// columns. A Call must be given a name with As before it is bound.
func Call(typ Type, fn ColumnFunc, inputs ...string) Expr {
	return Expr{inputs: inputs, typ: typ, fn: fn}
}

// As names the output column.
func (e Expr) As(alias string) Expr {
	e.alias = alias
	return e
}

// Cols is shorthand for a Col expression per name.
func Cols(refs ...string) []Expr {
	exprs := make([]Expr, len(refs))
	for i, ref := range refs {
		exprs[i] = Col(ref)
	}
	return exprs
}

// bind resolves e against schema, returning the output column and a function
// which evaluates e against rows of that schema.
func (e Expr) bind(schema Schema) (Column, evaluator, error) {
	idxs := make([]int, len(e.inputs))
	for i, ref := range e.inputs {
		idx, err := schema.Lookup(ref)
		if err != nil {
			return Column{}, nil, err
		}
		idxs[i] = idx
	}
	if e.fn == nil {
		if len(idxs) != 1 {
			return Column{}, nil, errors.New("column reference needs exactly one input")
		}
		col := schema[idxs[0]]
		col.Qualifier = ""
		if e.alias != "" {
			col.Name = e.alias
		}
		idx := idxs[0]
		return col, func(r Row) (interface{}, error) { return r[idx], nil }, nil
	}
	if e.alias == "" {
		return Column{}, nil, errors.Errorf("function of %v has no name", e.inputs)
	}
	fn := e.fn
	typ := e.typ
	return Column{Name: e.alias, Type: typ}, func(r Row) (interface{}, error) {
		args := make([]interface{}, len(idxs))
		for i, idx := range idxs {
			args[i] = r[idx]
		}
		val, err := fn(args...)
		if err != nil {
			return nil, err
		}
		return Coerce(val, typ)
	}, nil
}

// Lit is a constant of type typ. Like Call, it must be named with As.
func Lit(val interface{}, typ Type) Expr {
	return Call(typ, func(args ...interface{}) (interface{}, error) { return val, nil })
}

// Cast converts the column ref to typ, keeping its unqualified name.
func Cast(ref string, typ Type) Expr {
	name := ref
	if dot := strings.LastIndex(ref, "."); dot >= 0 {
		name = ref[dot+1:]
	}
	return Call(typ, func(args ...interface{}) (interface{}, error) { return args[0], nil }, ref).As(name)
}
