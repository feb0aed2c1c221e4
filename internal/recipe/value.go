package recipe

import "github.com/hashicorp/hcl/v2"

// Value is the load-time AST over a step argument: either a leaf HCL
// expression (literal, reference, or template with embedded references),
// or a composite assembled by a loader from a structured encoding.
// Exactly one of the three fields is set.
type Value struct {
	Expr   hcl.Expression
	Object map[string]Value
	Tuple  []Value
}

// ExprValue wraps a leaf expression.
func ExprValue(expr hcl.Expression) Value {
	return Value{Expr: expr}
}

// ObjectValue wraps a composite mapping.
func ObjectValue(fields map[string]Value) Value {
	return Value{Object: fields}
}

// TupleValue wraps a composite sequence.
func TupleValue(elems []Value) Value {
	return Value{Tuple: elems}
}

// IsLeaf reports whether the value is a single expression.
func (v Value) IsLeaf() bool {
	return v.Expr != nil
}
