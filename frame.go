package lake

import (
	"strings"

	"github.com/pkg/errors"
)

// Column is a named, typed column of a Frame. Qualifier is set by
// Frame.Alias so that columns can be referenced as "qualifier.name" after a
// join.
type Column struct {
	Name      string
	Type      Type
	Qualifier string
}

// Schema is the ordered list of columns of a Frame.
type Schema []Column

// Names returns the unqualified column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup finds the index of the column referenced by ref, which is either a
// bare column name or "qualifier.name". A bare name which matches more than
// one column is an error.
func (s Schema) Lookup(ref string) (int, error) {
	if dot := strings.Index(ref, "."); dot > 0 {
		qual, name := ref[:dot], ref[dot+1:]
		for i, c := range s {
			if c.Qualifier == qual && c.Name == name {
				return i, nil
			}
		}
	}
	found := -1
	for i, c := range s {
		if c.Name != ref {
			continue
		}
		if found >= 0 {
			return -1, errors.Errorf("reference '%s' is ambiguous", ref)
		}
		found = i
	}
	if found < 0 {
		return -1, errors.Errorf("cannot resolve '%s' given columns %v", ref, s.Names())
	}
	return found, nil
}

// Row is one record of a Frame. Its values line up with the Frame's Schema.
type Row []interface{}

// Frame is an immutable, partitioned set of rows sharing one Schema. Every
// operation returns a new Frame and leaves the receiver untouched, so frames
// may be reused by independent transformations.
type Frame struct {
	schema Schema
	parts  [][]Row
}

// NewFrame returns a Frame with the given schema, one partition per rows
// slice.
func NewFrame(schema Schema, parts ...[]Row) *Frame {
	return &Frame{schema: schema, parts: parts}
}

// Schema returns the columns of the frame.
func (f *Frame) Schema() Schema { return f.schema }

// Partitions returns the rows of the frame grouped by partition. Callers must
// not modify the returned rows.
func (f *Frame) Partitions() [][]Row { return f.parts }

// Count returns the number of rows over all partitions.
func (f *Frame) Count() int {
	n := 0
	for _, rows := range f.parts {
		n += len(rows)
	}
	return n
}

// Rows returns every row of the frame in partition order.
func (f *Frame) Rows() []Row {
	return f.Head(f.Count())
}

// Head returns at most n rows in partition order.
func (f *Frame) Head(n int) []Row {
	ret := make([]Row, 0, n)
	for _, rows := range f.parts {
		for _, row := range rows {
			if len(ret) == n {
				return ret
			}
			ret = append(ret, row)
		}
	}
	return ret
}

// Alias returns the same frame with every column qualified by name.
func (f *Frame) Alias(name string) *Frame {
	schema := make(Schema, len(f.schema))
	for i, c := range f.schema {
		c.Qualifier = name
		schema[i] = c
	}
	return &Frame{schema: schema, parts: f.parts}
}

// Select projects every row onto exprs.
func (f *Frame) Select(exprs ...Expr) (*Frame, error) {
	schema := make(Schema, len(exprs))
	evals := make([]evaluator, len(exprs))
	for i, e := range exprs {
		var err error
		schema[i], evals[i], err = e.bind(f.schema)
		if err != nil {
			return nil, errors.Wrap(err, "binding select")
		}
	}
	parts := make([][]Row, len(f.parts))
	for p, rows := range f.parts {
		out := make([]Row, len(rows))
		for j, row := range rows {
			nr := make(Row, len(evals))
			for k, eval := range evals {
				val, err := eval(row)
				if err != nil {
					return nil, errors.Wrapf(err, "evaluating %s", schema[k].Name)
				}
				nr[k] = val
			}
			out[j] = nr
		}
		parts[p] = out
	}
	return &Frame{schema: schema, parts: parts}, nil
}

// WithColumn returns a frame with e evaluated into a column called name. An
// existing column of that name is replaced, otherwise the column is
// appended.
func (f *Frame) WithColumn(name string, e Expr) (*Frame, error) {
	col, eval, err := e.As(name).bind(f.schema)
	if err != nil {
		return nil, errors.Wrapf(err, "binding column %s", name)
	}
	pos := len(f.schema)
	for i, c := range f.schema {
		if c.Name == name {
			pos = i
			break
		}
	}
	schema := make(Schema, len(f.schema), len(f.schema)+1)
	copy(schema, f.schema)
	if pos == len(schema) {
		schema = append(schema, col)
	} else {
		schema[pos] = col
	}
	parts := make([][]Row, len(f.parts))
	for p, rows := range f.parts {
		out := make([]Row, len(rows))
		for j, row := range rows {
			val, err := eval(row)
			if err != nil {
				return nil, errors.Wrapf(err, "evaluating %s", name)
			}
			nr := make(Row, len(schema))
			copy(nr, row)
			nr[pos] = val
			out[j] = nr
		}
		parts[p] = out
	}
	return &Frame{schema: schema, parts: parts}, nil
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	parts := make([][]Row, len(f.parts))
	for p, rows := range f.parts {
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			if keep(row) {
				out = append(out, row)
			}
		}
		parts[p] = out
	}
	return &Frame{schema: f.schema, parts: parts}
}

// Where keeps the rows whose column col equals val. Null never equals
// anything.
func (f *Frame) Where(col string, val interface{}) (*Frame, error) {
	idx, err := f.schema.Lookup(col)
	if err != nil {
		return nil, errors.Wrap(err, "binding where")
	}
	return f.Filter(func(r Row) bool {
		return r[idx] != nil && r[idx] == val
	}), nil
}

// Distinct drops every row which is identical to an earlier one, comparing
// all columns. The set records which rows have been seen; it is the caller's
// to close.
func (f *Frame) Distinct(set DistinctSet) (*Frame, error) {
	parts := make([][]Row, len(f.parts))
	var key []byte
	for p, rows := range f.parts {
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			key = AppendRowKey(key[:0], row)
			fresh, err := set.Add(key)
			if err != nil {
				return nil, errors.Wrap(err, "adding row to distinct set")
			}
			if fresh {
				out = append(out, row)
			}
		}
		parts[p] = out
	}
	return &Frame{schema: f.schema, parts: parts}, nil
}

// Join is an inner equi-join of f and right on f.leftKey == right.rightKey.
// The result has f's columns followed by right's, and keeps f's partitioning.
// Rows whose key is null never match, and a left row matching several right
// rows is emitted once per match.
func (f *Frame) Join(right *Frame, leftKey, rightKey string) (*Frame, error) {
	li, err := f.schema.Lookup(leftKey)
	if err != nil {
		return nil, errors.Wrap(err, "binding left join key")
	}
	ri, err := right.schema.Lookup(rightKey)
	if err != nil {
		return nil, errors.Wrap(err, "binding right join key")
	}
	index := make(map[interface{}][]Row)
	for _, rows := range right.parts {
		for _, row := range rows {
			if k := row[ri]; k != nil {
				index[k] = append(index[k], row)
			}
		}
	}
	schema := make(Schema, 0, len(f.schema)+len(right.schema))
	schema = append(schema, f.schema...)
	schema = append(schema, right.schema...)

	parts := make([][]Row, len(f.parts))
	for p, rows := range f.parts {
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			if row[li] == nil {
				continue
			}
			for _, match := range index[row[li]] {
				nr := make(Row, 0, len(schema))
				nr = append(nr, row...)
				nr = append(nr, match...)
				out = append(out, nr)
			}
		}
		parts[p] = out
	}
	return &Frame{schema: schema, parts: parts}, nil
}

// WithUniqueID appends an Int64 column called name holding an id which is
// unique across the frame. Each non-empty partition draws its own id range
// from ra, so ids are dense within a partition but not across partitions.
func (f *Frame) WithUniqueID(name string, ra RangeAllocator) (*Frame, error) {
	schema := make(Schema, len(f.schema), len(f.schema)+1)
	copy(schema, f.schema)
	schema = append(schema, Column{Name: name, Type: Int64})

	parts := make([][]Row, len(f.parts))
	for p, rows := range f.parts {
		if len(rows) == 0 {
			parts[p] = rows
			continue
		}
		nexter, err := NewRangeNexter(ra)
		if err != nil {
			return nil, errors.Wrapf(err, "getting id range for partition %d", p)
		}
		out := make([]Row, len(rows))
		for j, row := range rows {
			id, err := nexter.Next()
			if err != nil {
				return nil, errors.Wrapf(err, "getting id for partition %d", p)
			}
			out[j] = append(row[:len(row):len(row)], int64(id))
		}
		parts[p] = out
	}
	return &Frame{schema: schema, parts: parts}, nil
}
