package documents

import (
	"github.com/shopspring/decimal"

	"handwerk/internal/core/types"
)

// ItemGroup is one consecutive run of items sharing a set name.
type ItemGroup struct {
	SetName    string      `json:"setName"`
	StartIndex int         `json:"startIndex"`
	Items      []LineItem  `json:"items"`
	Subtotal   types.Money `json:"subtotal"`
}

// Grouped partitions the items into consecutive runs of equal SetName.
// A set name that reappears after another run starts a new group;
// runs are never merged.
func (l Lines) Grouped() []ItemGroup {
	groups := make([]ItemGroup, 0)
	for i, item := range l {
		last := len(groups) - 1
		if last < 0 || groups[last].SetName != item.SetName {
			groups = append(groups, ItemGroup{
				SetName:    item.SetName,
				StartIndex: i,
				Subtotal:   decimal.Zero,
			})
			last++
		}
		groups[last].Items = append(groups[last].Items, item)
		groups[last].Subtotal = groups[last].Subtotal.Add(item.LineTotal())
	}
	return groups
}

// Flatten joins groups back into one list.
func Flatten(groups []ItemGroup) Lines {
	out := make(Lines, 0)
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}
