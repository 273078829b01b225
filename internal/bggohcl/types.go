package bggohcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// HCLTypeToCtyType converts an HCL expression that represents a type (e.g., the `string`
// keyword) into its corresponding cty.Type. Only the primitive keywords `string`,
// `number` and `bool` are supported; anything else yields a diagnostic.
func HCLTypeToCtyType(expr hcl.Expression) (cty.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	// We expect a simple identifier like `string`, not a complex expression.
	traversal, hclDiags := hcl.AbsTraversalForExpr(expr)
	if hclDiags.HasErrors() || len(traversal) != 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type specification",
			Detail:   "The 'type' attribute must be a simple type keyword like 'string', 'number', or 'bool', not a complex expression.",
			Subject:  expr.Range().Ptr(),
		})
		return cty.NilType, diags
	}

	switch typeName := traversal.RootName(); typeName {
	case "string":
		return cty.String, diags
	case "number":
		return cty.Number, diags
	case "bool":
		return cty.Bool, diags
	case "any", "list", "map", "set", "object", "tuple":
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported type",
			Detail:   fmt.Sprintf("Plugin properties are flat key/value pairs; the type '%s' cannot be used.", typeName),
			Subject:  expr.Range().Ptr(),
		})
		return cty.NilType, diags
	default:
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported type",
			Detail:   fmt.Sprintf("The keyword '%s' is not a valid type. Supported types are: string, number, bool.", typeName),
			Subject:  expr.Range().Ptr(),
		})
		return cty.NilType, diags
	}
}
