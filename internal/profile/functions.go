package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// LookupFunc returns the value of an environment variable.
type LookupFunc func(name string) string

// envFunction builds env(name) and env(name, default). A variable that is
// unset or blank yields the default, or "" without one.
func envFunction(lookup LookupFunc) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 2 {
				return cty.NilVal, fmt.Errorf("env takes a name and at most one default, got %d arguments", len(args))
			}
			if v := strings.TrimSpace(lookup(args[0].AsString())); v != "" {
				return cty.StringVal(v), nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return cty.StringVal(""), nil
		},
	})
}

func newEvalContext(lookup LookupFunc) *hcl.EvalContext {
	if lookup == nil {
		lookup = os.Getenv
	}
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunction(lookup),
		},
	}
}
