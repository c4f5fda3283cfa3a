package gallery

import (
	"cmp"
	"slices"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

// Sort orders items ascending by Order. With honorFeatured, featured items come
// first and Order applies within each group. The sort is stable, so equal keys
// keep their input positions, and the input slice is left untouched.
func Sort(items []*core.Item, honorFeatured bool) []*core.Item {
	sorted := append([]*core.Item(nil), items...)
	slices.SortStableFunc(sorted, func(a, b *core.Item) int {
		if honorFeatured && a.IsFeatured != b.IsFeatured {
			if a.IsFeatured {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}
