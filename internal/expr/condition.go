package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// EvalCondition evaluates a step condition. The expression language is
// HCL's: equality, inequality, boolean and/or/not, plus the contains()
// function for membership. A non-boolean result is an error, reported as
// a step failure by the caller.
func (r *Resolver) EvalCondition(cond hcl.Expression, scope *Scope) (bool, error) {
	val, err := r.Evaluate(cond, scope)
	if err != nil {
		return false, err
	}

	if val.IsNull() {
		return false, fmt.Errorf("%w: condition produced null", ErrNotBoolean)
	}
	boolVal, convErr := convert.Convert(val, cty.Bool)
	if convErr != nil {
		return false, fmt.Errorf("%w: got %s", ErrNotBoolean, val.Type().FriendlyName())
	}
	return boolVal.True(), nil
}

// stdFunctions is the full function surface conditions and arguments may
// call. Deliberately tiny: this is a comparison-and-membership language,
// not a scripting language.
var stdFunctions = map[string]function.Function{
	"contains": containsFunc,
}

// containsFunc reports membership: element of a list/tuple/set, or
// substring of a string.
var containsFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "collection", Type: cty.DynamicPseudoType, AllowDynamicType: true},
		{Name: "value", Type: cty.DynamicPseudoType, AllowDynamicType: true},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		collection, value := args[0], args[1]

		if collection.Type() == cty.String {
			str, err := convert.Convert(value, cty.String)
			if err != nil {
				return cty.NilVal, fmt.Errorf("contains: cannot compare %s with a string", value.Type().FriendlyName())
			}
			return cty.BoolVal(strings.Contains(collection.AsString(), str.AsString())), nil
		}

		ty := collection.Type()
		if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
			for it := collection.ElementIterator(); it.Next(); {
				_, elem := it.Element()
				if elem.RawEquals(value) {
					return cty.True, nil
				}
			}
			return cty.False, nil
		}

		return cty.NilVal, fmt.Errorf("contains: unsupported collection type %s", ty.FriendlyName())
	},
})
