package ir

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// Expression is a literal value in the schema: attribute arguments, client
// options, retry policy options and test arguments.
type Expression interface {
	json.Marshaler
	isExpression()
}

// IdentifierKind discriminates Identifier.
type IdentifierKind string

const (
	// IdentEnv is an environment variable reference (env.NAME).
	IdentEnv IdentifierKind = "env"
	// IdentLocal is a bare local name.
	IdentLocal IdentifierKind = "local"
)

// Identifier is a name that is resolved later, by the consumer.
type Identifier struct {
	Kind IdentifierKind
	Name string
}

// BoolExpr is a boolean literal.
type BoolExpr bool

// NumericExpr is a number kept in its source spelling.
type NumericExpr string

// StringExpr is a quoted string.
type StringExpr string

// RawStringExpr is a raw (unescaped, possibly multi-line) string.
type RawStringExpr string

// ListExpr is an ordered list of expressions.
type ListExpr []Expression

// MapEntry is one key/value pair of a MapExpr.
type MapEntry struct {
	Key   string
	Value Expression
}

// MapExpr is an ordered map. Keys keep declaration order.
type MapExpr []MapEntry

// TemplateExpr is a template expression string, such as a constraint body.
type TemplateExpr string

func (Identifier) isExpression()    {}
func (BoolExpr) isExpression()      {}
func (NumericExpr) isExpression()   {}
func (StringExpr) isExpression()    {}
func (RawStringExpr) isExpression() {}
func (ListExpr) isExpression()      {}
func (MapExpr) isExpression()       {}
func (TemplateExpr) isExpression()  {}

func (e Identifier) String() string {
	if e.Kind == IdentEnv {
		return "env." + e.Name
	}
	return e.Name
}

func (e Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}{string(e.Kind), e.Name})
}

func (e BoolExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value bool   `json:"value"`
	}{"bool", bool(e)})
}

func (e NumericExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}{"numeric", string(e)})
}

func (e StringExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}{"string", string(e)})
}

func (e RawStringExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}{"raw_string", string(e)})
}

func (e TemplateExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}{"template", string(e)})
}

func (e ListExpr) MarshalJSON() ([]byte, error) {
	items := []Expression(e)
	if items == nil {
		items = []Expression{}
	}
	return json.Marshal(struct {
		Kind  string       `json:"kind"`
		Items []Expression `json:"items"`
	}{"list", items})
}

// MarshalJSON keeps entries as a list so declaration order survives.
func (e MapExpr) MarshalJSON() ([]byte, error) {
	type entry struct {
		Key   string     `json:"key"`
		Value Expression `json:"value"`
	}
	entries := make([]entry, len(e))
	for i, kv := range e {
		entries[i] = entry{kv.Key, kv.Value}
	}
	return json.Marshal(struct {
		Kind    string  `json:"kind"`
		Entries []entry `json:"entries"`
	}{"map", entries})
}

// Get returns the value stored under key.
func (e MapExpr) Get(key string) (Expression, bool) {
	for _, kv := range e {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// ExpressionString renders e the way it would be written in a schema.
func ExpressionString(e Expression) string {
	switch v := e.(type) {
	case Identifier:
		return v.String()
	case BoolExpr:
		return strconv.FormatBool(bool(v))
	case NumericExpr:
		return string(v)
	case StringExpr:
		return strconv.Quote(string(v))
	case RawStringExpr:
		return `#"` + string(v) + `"#`
	case TemplateExpr:
		return "{{ " + string(v) + " }}"
	case ListExpr:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = ExpressionString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapExpr:
		parts := make([]string, len(v))
		for i, kv := range v {
			parts[i] = kv.Key + ": " + ExpressionString(kv.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// EnvVars returns the environment variable names referenced by e, descending
// into lists and maps, in first-occurrence order without duplicates.
func EnvVars(e Expression) []string {
	var out []string
	collectEnvVars(e, &out)
	return out
}

func collectEnvVars(e Expression, out *[]string) {
	switch v := e.(type) {
	case Identifier:
		if v.Kind == IdentEnv && !slices.Contains(*out, v.Name) {
			*out = append(*out, v.Name)
		}
	case ListExpr:
		for _, item := range v {
			collectEnvVars(item, out)
		}
	case MapExpr:
		for _, kv := range v {
			collectEnvVars(kv.Value, out)
		}
	}
}
