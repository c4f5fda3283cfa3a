// Package gallery implements gallery browsing: visibility, category filtering,
// ordering, pagination and lightbox navigation over a fetched item snapshot.
package gallery

import (
	"strings"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

// Visible builds a snapshot of the items the public may see. Items are cloned
// so later derivations can never write through to the source.
func Visible(items []*core.Item) []*core.Item {
	snapshot := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil || !item.Visible() {
			continue
		}
		snapshot = append(snapshot, item.Clone())
	}
	return snapshot
}

// Filter narrows items to a category. AllCategories is the identity.
func Filter(items []*core.Item, category string) []*core.Item {
	if category == core.AllCategories {
		return append([]*core.Item(nil), items...)
	}
	filtered := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item.Category == category {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Categories lists the distinct categories of items in first-seen order.
func Categories(items []*core.Item) []string {
	seen := make(map[string]struct{}, len(items))
	var categories []string
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}
	return categories
}

// ResolveCategory maps a routing parameter onto a known category, falling back
// to AllCategories for anything unrecognized.
func ResolveCategory(param string, known []string) string {
	param = strings.TrimSpace(param)
	if param == "" {
		return core.AllCategories
	}
	for _, c := range known {
		if c == param {
			return c
		}
	}
	// Routing params often come from slugs ("business-cards").
	for _, c := range known {
		if strings.EqualFold(slug(c), slug(param)) {
			return c
		}
	}
	return core.AllCategories
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(s), "-", " ")), "-")
}
