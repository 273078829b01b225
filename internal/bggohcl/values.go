package bggohcl

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ConformValue converts val to ty, reporting a diagnostic against rng when
// the conversion is impossible.
func ConformValue(val cty.Value, ty cty.Type, rng hcl.Range) (cty.Value, hcl.Diagnostics) {
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return cty.NilVal, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid default value",
			Detail:   fmt.Sprintf("Cannot use a %s value where %s is required: %s.", val.Type().FriendlyName(), ty.FriendlyName(), err),
			Subject:  rng.Ptr(),
		}}
	}
	return converted, nil
}

// ValueToGo converts a known cty value into plain Go data through its JSON
// form: strings, float64 numbers, bools, []any and map[string]any.
func ValueToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s value: %w", val.Type().FriendlyName(), err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
