// Package filter describes generic list conditions passed to repositories.
package filter

// ComparisonType is the comparison applied to a field.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is one filter condition.
type Item struct {
	Field    string         `json:"field"` // column name (snake_case)
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Eq is shorthand for an Equal condition.
func Eq(field string, value any) Item {
	return Item{Field: field, Operator: Equal, Value: value}
}

// Valid reports whether the operator is known.
func (i Item) Valid() bool {
	switch i.Operator {
	case Equal, NotEqual, LessOrEqual, GreaterOrEqual, InList, NotInList,
		Contains, NotContains, IsNull, IsNotNull:
		return i.Field != ""
	default:
		return false
	}
}
