package odootest

import (
	"fmt"
	"strings"
)

// match evaluates a prefix-notation domain against rec. Terms not joined by
// an operator are and-ed, as in Odoo.
func match(rec map[string]any, domain []any) bool {
	pos := 0
	var next func() bool
	next = func() bool {
		tok := domain[pos]
		pos++
		switch tok {
		case "&":
			a := next()
			b := next()
			return a && b
		case "|":
			a := next()
			b := next()
			return a || b
		case "!":
			return !next()
		}
		term, _ := tok.([]any)
		if len(term) != 3 {
			return false
		}
		field, _ := term[0].(string)
		op, _ := term[1].(string)
		return compare(rec[field], op, term[2])
	}

	ok := true
	for pos < len(domain) {
		if !next() {
			ok = false
		}
	}
	return ok
}

func compare(have any, op string, want any) bool {
	switch op {
	case "=":
		return same(have, want)
	case "!=":
		return !same(have, want)
	case "in", "not in":
		list, _ := want.([]any)
		found := false
		for _, v := range list {
			if same(have, v) {
				found = true
				break
			}
		}
		return found == (op == "in")
	case "ilike", "like", "not ilike", "not like":
		h, w := fmt.Sprint(have), fmt.Sprint(want)
		if strings.HasSuffix(op, "ilike") {
			h, w = strings.ToLower(h), strings.ToLower(w)
		}
		return strings.Contains(h, w) == !strings.HasPrefix(op, "not")
	case ">", ">=", "<", "<=":
		a, aok := number(have)
		b, bok := number(want)
		if !aok || !bok {
			return false
		}
		switch op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		default:
			return a <= b
		}
	default:
		return false
	}
}

func same(a, b any) bool {
	if a == nil {
		a = false
	}
	if b == nil {
		b = false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
