package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"odoomcp/cli/internal/errors"
)

// Operators accepted in a domain condition.
var operators = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"=?": true, "=like": true, "like": true, "not like": true,
	"ilike": true, "not ilike": true, "=ilike": true,
	"in": true, "not in": true,
	"child_of": true, "parent_of": true,
	"any": true, "not any": true,
}

// ValidateDomain checks that v is a well-formed Odoo domain and returns it as
// a list. nil yields an empty domain. A JSON string holding a list is
// accepted as well, since agents sometimes send the domain pre-encoded.
//
// Connectors are prefix operators: '&' and '|' take two operands, '!' one.
// Consecutive top-level operands are implicitly and-ed.
func ValidateDomain(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, errors.New(errors.Validation, "domain must be a list, got a string that is not JSON")
		}
		v = decoded
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.Newf(errors.Validation, "domain must be a list, got %s", typeName(v))
	}

	expected := 1
	for i, tok := range list {
		if expected == 0 {
			expected = 1
		}
		switch t := tok.(type) {
		case string:
			switch t {
			case "&", "|":
				expected++
			case "!":
			default:
				return nil, errors.Newf(errors.Validation,
					"domain element %d: %q is not a connector ('&', '|', '!') nor a [field, operator, value] condition", i, t)
			}
		case []any:
			if err := validateCondition(i, t); err != nil {
				return nil, err
			}
			expected--
		default:
			return nil, errors.Newf(errors.Validation,
				"domain element %d: expected a connector or a [field, operator, value] condition, got %s", i, typeName(tok))
		}
	}
	if len(list) > 0 && expected != 0 {
		return nil, errors.Newf(errors.Validation,
			"domain is incomplete: %d more condition(s) expected after the last connector", expected)
	}
	return list, nil
}

func validateCondition(i int, term []any) error {
	if len(term) != 3 {
		return errors.Newf(errors.Validation, "domain element %d: a condition needs exactly 3 items, got %d", i, len(term))
	}

	op, ok := term[1].(string)
	if !ok || !operators[strings.ToLower(op)] {
		return errors.Newf(errors.Validation, "domain element %d: unknown operator %v", i, term[1])
	}

	switch f := term[0].(type) {
	case string:
		if strings.TrimSpace(f) == "" {
			return errors.Newf(errors.Validation, "domain element %d: field name is empty", i)
		}
	case float64:
		// Odoo's constant leaves (1, '=', 1) and (0, '=', 1).
		if (f != 0 && f != 1) || op != "=" {
			return errors.Newf(errors.Validation, "domain element %d: field name must be a string", i)
		}
	default:
		return errors.Newf(errors.Validation, "domain element %d: field name must be a string, got %s", i, typeName(term[0]))
	}
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64, json.Number, int, int64:
		return "a number"
	case bool:
		return "a boolean"
	case map[string]any:
		return "an object"
	case []any:
		return "a list"
	default:
		return fmt.Sprintf("%T", v)
	}
}
