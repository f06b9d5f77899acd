// Package indicator implements the Indicator Evaluator (spec.md §4.7):
// driver-emitted named signals drive LED state on the active page.
package indicator

import (
	"strings"

	"github.com/jdginn/xtouch-gw/config"
)

// Evaluate computes, for every control on the active page (page-local ∪
// globals) whose indicator.signal matches signal, whether that control's
// LED should be lit.
func Evaluate(controls map[string]config.ControlMapping, signal string, value any) map[string]bool {
	out := make(map[string]bool)
	for id, c := range controls {
		if c.Indicator == nil || c.Indicator.Signal != signal {
			continue
		}
		out[id] = evalPredicate(*c.Indicator, value)
	}
	return out
}

func evalPredicate(ind config.Indicator, value any) bool {
	switch {
	case ind.Equals != nil:
		return equalsTrimmed(ind.Equals, value)
	case ind.In != nil:
		for _, candidate := range ind.In {
			if equalsTrimmed(candidate, value) {
				return true
			}
		}
		return false
	case ind.Truthy != nil && *ind.Truthy:
		return truthy(value)
	default:
		return false
	}
}

// equalsTrimmed compares a and b for deep equality, trimming whitespace
// on both sides when they are strings.
func equalsTrimmed(a, b any) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.TrimSpace(as) == strings.TrimSpace(bs)
	}
	return a == b
}

// truthy implements standard truthiness: booleans as-is, nil -> false,
// numbers non-zero, strings non-empty, arrays/objects non-empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
