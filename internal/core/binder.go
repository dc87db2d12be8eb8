package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParamType is the declared type of one template parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
	TypeDate   ParamType = "date"
)

// ValidParamType reports whether t is a known declared type.
func ValidParamType(t ParamType) bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeDate:
		return true
	}
	return false
}

// ParamSpec is one declared parameter: a name and its declared type.
type ParamSpec struct {
	Name string    `json:"name"`
	Type ParamType `json:"type"`
}

// ValidateSchema checks a parameter schema string against the grammar
// "name1:type1,name2:type2". The empty string declares zero
// parameters. Used at template write time; unlike DeclaredParams it
// rejects segments without a type.
func ValidateSchema(schema string) error {
	if strings.TrimSpace(schema) == "" {
		return nil
	}

	seen := map[string]bool{}
	for _, part := range strings.Split(schema, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("parameter %q has no type, expected name:type", part)
		}
		name = strings.TrimSpace(name)
		typ = strings.ToLower(strings.TrimSpace(typ))
		if name == "" || typ == "" {
			return fmt.Errorf("parameter %q is incomplete, expected name:type", part)
		}
		if !ValidParamType(ParamType(typ)) {
			return fmt.Errorf("parameter %q has unknown type %q, allowed: string, int, float, bool, date", name, typ)
		}
		if seen[name] {
			return fmt.Errorf("parameter %q declared twice", name)
		}
		seen[name] = true
	}
	return nil
}

// DeclaredParams parses a parameter schema string into its declared
// parameters, in declaration order. A segment without a type is kept
// as a string-typed bare name; stored templates predating strict
// write-time validation still bind.
func DeclaredParams(schema string) []ParamSpec {
	var specs []ParamSpec
	for _, part := range strings.Split(schema, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			specs = append(specs, ParamSpec{Name: part, Type: TypeString})
			continue
		}
		typ = strings.ToLower(strings.TrimSpace(typ))
		if !ValidParamType(ParamType(typ)) {
			typ = string(TypeString)
		}
		specs = append(specs, ParamSpec{Name: strings.TrimSpace(name), Type: ParamType(typ)})
	}
	return specs
}

// placeholderPattern matches :name references in template SQL. \b
// after the name keeps :id from swallowing :id_ext.
var placeholderPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)\b`)

// Placeholder renders the Nth (1-based) positional marker for the
// target driver.
type Placeholder func(n int) string

// QuestionPlaceholder is the ?-style marker (SQLite, MySQL, ODBC).
func QuestionPlaceholder(int) string { return "?" }

// NamedOrdinalPlaceholder is the @pN marker used by the SQL Server
// driver.
func NamedOrdinalPlaceholder(n int) string { return fmt.Sprintf("@p%d", n) }

// Bind rewrites every :name reference of a declared parameter in
// sqlText to the driver's positional marker and collects the supplied
// values in marker order. Values are never interpolated into the SQL
// text; they travel to the driver as bound arguments.
//
// The rewrite is a single left-to-right pass, so the Nth marker always
// pairs with the Nth value even when a name occurs several times or in
// an order different from its declaration (each occurrence gets its
// own value entry). A :name not covered by the declared schema is left
// untouched.
//
// Every declared name must have a supplied value, whether or not it
// occurs in the text; the first absent one is reported as a
// MissingParameterError.
func Bind(sqlText string, declared []ParamSpec, supplied map[string]any, ph Placeholder) (string, []any, error) {
	coerced := make(map[string]any, len(declared))
	for _, spec := range declared {
		raw, ok := supplied[spec.Name]
		if !ok {
			return "", nil, &MissingParameterError{Name: spec.Name}
		}
		val, err := CoerceValue(raw, spec.Type)
		if err != nil {
			return "", nil, &ParameterError{Err: fmt.Errorf("parameter %q: %w", spec.Name, err)}
		}
		coerced[spec.Name] = val
	}

	var values []any
	bound := placeholderPattern.ReplaceAllStringFunc(sqlText, func(match string) string {
		name := match[1:]
		val, ok := coerced[name]
		if !ok {
			return match
		}
		values = append(values, val)
		return ph(len(values))
	})

	return bound, values, nil
}

// CoerceValue converts a caller-supplied value to its declared type.
// Inputs arrive via JSON, so numbers show up as float64 and everything
// else as string or bool.
func CoerceValue(v any, t ParamType) (any, error) {
	switch t {
	case TypeString:
		switch val := v.(type) {
		case string:
			return val, nil
		case float64, int, int64, bool:
			return fmt.Sprint(val), nil
		}
	case TypeInt:
		switch val := v.(type) {
		case int:
			return int64(val), nil
		case int64:
			return val, nil
		case float64:
			if val == float64(int64(val)) {
				return int64(val), nil
			}
			return nil, fmt.Errorf("%v is not an integer", val)
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", val)
			}
			return n, nil
		}
	case TypeFloat:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", val)
			}
			return f, nil
		}
	case TypeBool:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", val)
			}
			return b, nil
		case float64:
			return val != 0, nil
		}
	case TypeDate:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if d, err := time.Parse("2006-01-02", s); err == nil {
				return d, nil
			}
			if d, err := time.Parse(time.RFC3339, s); err == nil {
				return d, nil
			}
			return nil, fmt.Errorf("%q is not a date (want YYYY-MM-DD)", s)
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, t)
}
