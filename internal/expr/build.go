package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// TemplateExpr parses a string that may embed ${...} placeholders into a
// leaf expression. Loaders for structured encodings use this so their
// strings get the same placeholder syntax HCL recipes have natively.
func TemplateExpr(src, filename string) (hcl.Expression, error) {
	e, diags := hclsyntax.ParseTemplate([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid template %q: %s", src, diags.Error())
	}
	return e, nil
}

// ParseExpr parses a bare expression, e.g. a condition string.
func ParseExpr(src, filename string) (hcl.Expression, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid expression %q: %s", src, diags.Error())
	}
	return e, nil
}

// LiteralExpr wraps a native scalar as a literal leaf expression.
func LiteralExpr(value any) (hcl.Expression, error) {
	cv, err := toCty(value)
	if err != nil {
		return nil, err
	}
	return &hclsyntax.LiteralValueExpr{Val: cv}, nil
}

// Native converts an evaluated cty value to a native Go value. Exposed
// for loaders that evaluate static defaults at load time.
func Native(val cty.Value) (any, error) {
	return fromCty(val)
}
