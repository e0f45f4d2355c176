package memory

import (
	"fmt"
	"strings"

	"handwerk/internal/domain"
	"handwerk/internal/domain/filter"
)

// matchAdvanced evaluates filter items against the string columns of a row.
// Conditions on unknown columns never match.
func matchAdvanced(f domain.ListFilter, cols map[string]string) bool {
	for _, item := range f.AdvancedFilters {
		v, ok := cols[item.Field]
		if !ok {
			return false
		}
		if !matchItem(item, v) {
			return false
		}
	}
	return true
}

func matchItem(item filter.Item, v string) bool {
	want := fmt.Sprint(item.Value)
	switch item.Operator {
	case filter.Equal:
		return v == want
	case filter.NotEqual:
		return v != want
	case filter.Contains:
		return containsFold(v, want)
	case filter.NotContains:
		return !containsFold(v, want)
	case filter.InList:
		return inList(item.Value, v)
	case filter.NotInList:
		return !inList(item.Value, v)
	case filter.IsNull:
		return v == ""
	case filter.IsNotNull:
		return v != ""
	case filter.LessOrEqual:
		return strings.Compare(v, want) <= 0
	case filter.GreaterOrEqual:
		return strings.Compare(v, want) >= 0
	default:
		return false
	}
}

func inList(value any, v string) bool {
	switch list := value.(type) {
	case []string:
		for _, s := range list {
			if s == v {
				return true
			}
		}
	case []any:
		for _, s := range list {
			if fmt.Sprint(s) == v {
				return true
			}
		}
	}
	return false
}
