package documents

import (
	"handwerk/internal/core/types"
)

// ItemDocument is a quote or invoice whose items can be edited.
type ItemDocument interface {
	// EnsureEditable returns DocumentNotEditable in frozen statuses.
	EnsureEditable() error
	// LineItems returns the mutable item list.
	LineItems() *Lines
	// Recalculate refreshes derived totals from the items.
	Recalculate() error
}

// AddItem appends an item and returns the new item count.
func AddItem(doc ItemDocument, item LineItem) (int, error) {
	if err := doc.EnsureEditable(); err != nil {
		return 0, err
	}
	n, err := doc.LineItems().Add(item)
	if err != nil {
		return n, err
	}
	return n, doc.Recalculate()
}

// AddFromArticle appends the items derived from a catalog article and
// returns the new item count.
func AddFromArticle(doc ItemDocument, a CatalogArticle, quantity types.Quantity) (int, error) {
	if err := doc.EnsureEditable(); err != nil {
		return 0, err
	}
	items, err := ExpandArticle(a, quantity)
	if err != nil {
		return len(*doc.LineItems()), err
	}
	lines := doc.LineItems()
	*lines = append(*lines, items...)
	return len(*lines), doc.Recalculate()
}

// RemoveItem removes the item at index.
func RemoveItem(doc ItemDocument, index int) error {
	if err := doc.EnsureEditable(); err != nil {
		return err
	}
	if err := doc.LineItems().Remove(index); err != nil {
		return err
	}
	return doc.Recalculate()
}

// UpdateItem merges patch into the item at index.
func UpdateItem(doc ItemDocument, index int, patch ItemPatch) error {
	if err := doc.EnsureEditable(); err != nil {
		return err
	}
	if err := doc.LineItems().Update(index, patch); err != nil {
		return err
	}
	return doc.Recalculate()
}

// MoveItem reorders an item.
func MoveItem(doc ItemDocument, from, to int) error {
	if err := doc.EnsureEditable(); err != nil {
		return err
	}
	if err := doc.LineItems().Move(from, to); err != nil {
		return err
	}
	return doc.Recalculate()
}

// GroupedView returns the items as consecutive set-name runs.
// Reading is allowed in every status.
func GroupedView(doc ItemDocument) []ItemGroup {
	return doc.LineItems().Grouped()
}
