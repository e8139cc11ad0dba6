// Package params validates loosely-typed request parameter bags against the
// parameter schema a catalog model declares, so malformed input is rejected
// at the API boundary instead of being passed through to the provider.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vicraft/backend/internal/models"
)

// Validate checks raw against the declared parameters and returns a coerced
// copy: values converted to the declared type, defaults filled in for absent
// optional parameters. Unknown fields, missing required fields, enum and
// range violations are errors.
func Validate(raw map[string]any, defs []models.ModelParameter) (map[string]any, error) {
	byName := make(map[string]models.ModelParameter, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	out := make(map[string]any, len(raw))

	for key, value := range raw {
		def, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
		if value == nil {
			continue
		}
		coerced, err := Coerce(value, def.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := checkEnum(coerced, def); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := checkRange(coerced, def); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = coerced
	}

	for _, def := range defs {
		if _, ok := out[def.Name]; ok {
			continue
		}
		if def.Default != nil {
			coerced, err := Coerce(def.Default, def.Type)
			if err != nil {
				return nil, fmt.Errorf("default for %q: %w", def.Name, err)
			}
			out[def.Name] = coerced
			continue
		}
		if def.Required {
			return nil, fmt.Errorf("missing required parameter %q", def.Name)
		}
	}

	return out, nil
}

// Coerce converts a value to the declared parameter type. Declared types
// follow the catalog convention: int, float, bool, string, list<string>.
func Coerce(value any, declared string) (any, error) {
	switch declared {
	case "int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("not an integer: %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("not an integer: %v", value)
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("not a number: %q", v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("not a number: %v", value)
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return v == "true", nil
		}
		return nil, fmt.Errorf("not a boolean: %v", value)
	case "list<string>":
		switch v := value.(type) {
		case []string:
			return v, nil
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item is not a string: %v", item)
				}
				items = append(items, s)
			}
			return items, nil
		case string:
			parts := strings.Split(v, ",")
			items := make([]string, 0, len(parts))
			for _, part := range parts {
				items = append(items, strings.TrimSpace(part))
			}
			return items, nil
		}
		return nil, fmt.Errorf("not a string list: %v", value)
	default:
		// string and any undeclared types pass through as strings.
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	}
}

func checkEnum(value any, def models.ModelParameter) error {
	if len(def.Enum) == 0 {
		return nil
	}
	for _, allowed := range def.Enum {
		if fmt.Sprint(allowed) == fmt.Sprint(value) {
			return nil
		}
	}
	return fmt.Errorf("value %v not in allowed set", value)
}

func checkRange(value any, def models.ModelParameter) error {
	if def.Min == nil && def.Max == nil {
		return nil
	}
	var n float64
	switch v := value.(type) {
	case int:
		n = float64(v)
	case float64:
		n = v
	default:
		return nil
	}
	if def.Min != nil && n < *def.Min {
		return fmt.Errorf("value %v below minimum %v", value, *def.Min)
	}
	if def.Max != nil && n > *def.Max {
		return fmt.Errorf("value %v above maximum %v", value, *def.Max)
	}
	return nil
}
