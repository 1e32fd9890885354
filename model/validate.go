package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

func (t Template) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return Invalidf("title must not be empty")
	}
	switch t.Visibility {
	case VisibilityPublic, VisibilityPrivate:
	default:
		return Invalidf("unknown visibility %q", t.Visibility)
	}
	for id := range t.Slots {
		if _, ok := SlotTypeOf(id); !ok {
			return Invalidf("unknown slot %q", id)
		}
	}
	return nil
}

func (p TemplatePatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Invalidf("title must not be empty")
	}
	if p.Visibility != nil {
		switch *p.Visibility {
		case VisibilityPublic, VisibilityPrivate:
		default:
			return Invalidf("unknown visibility %q", *p.Visibility)
		}
	}
	for id := range p.Slots {
		if _, ok := SlotTypeOf(id); !ok {
			return Invalidf("unknown slot %q", id)
		}
	}
	return nil
}

// ValidateAnswers checks every provided answer against its slot's
// declared type. Nulls always pass. Answers for disabled slots pass too:
// the write side is deliberately permissive, the aggregation engine is
// the single source of truth for what counts.
func ValidateAnswers(answers map[string]any) error {
	for id, v := range answers {
		st, ok := SlotTypeOf(id)
		if !ok {
			return Invalidf("unknown slot %q", id)
		}
		if v == nil {
			continue
		}
		switch st {
		case SlotString, SlotText:
			if _, ok := v.(string); !ok {
				return Invalidf("slot %s wants text, got %v", id, v)
			}
		case SlotInt:
			if _, ok := NumericValue(v); !ok {
				return Invalidf("slot %s wants a number, got %v", id, v)
			}
		case SlotCheckbox:
			if _, ok := v.(bool); !ok {
				return Invalidf("slot %s wants a boolean, got %v", id, v)
			}
		}
	}
	return nil
}

// NumericValue interprets a submitted answer as a number. JSON numbers
// decode as float64; non-empty numeric strings count as well. Nil, empty
// strings, non-numeric text and booleans do not, and are never coerced
// to zero.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
