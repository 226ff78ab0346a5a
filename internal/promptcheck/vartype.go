package promptcheck

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/typecheck"
)

// ParseType reads a variable type written as a primitive (string, int,
// float, bool, number, none) or a class or enum name, followed by any
// number of [] and ? suffixes. Classes are looked up in types, enums in r
// (which may be nil); an enum value renders as a string.
func ParseType(spec string, types *typecheck.PredefinedTypes, r *ir.IntermediateRepr) (typecheck.Type, error) {
	switch {
	case strings.HasSuffix(spec, "?"):
		inner, err := ParseType(strings.TrimSuffix(spec, "?"), types, r)
		if err != nil {
			return nil, err
		}
		return typecheck.Optional{Inner: inner}, nil
	case strings.HasSuffix(spec, "[]"):
		inner, err := ParseType(strings.TrimSuffix(spec, "[]"), types, r)
		if err != nil {
			return nil, err
		}
		return typecheck.List{Inner: inner}, nil
	}

	switch spec {
	case "string":
		return typecheck.String{}, nil
	case "int":
		return typecheck.Int{}, nil
	case "float":
		return typecheck.Float{}, nil
	case "bool":
		return typecheck.Bool{}, nil
	case "number":
		return typecheck.Number{}, nil
	case "none":
		return typecheck.None{}, nil
	}
	if _, ok := types.Class(spec); ok {
		return typecheck.ClassRef{Name: spec}, nil
	}
	if r != nil {
		if _, ok := r.FindEnum(spec); ok {
			return typecheck.String{}, nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", spec)
}
