package gallery

import "strconv"

// GridColumns is the column count of the gallery grid. It is display-only and
// never changes membership or order.
type GridColumns int

const DefaultColumns GridColumns = 3

func (c GridColumns) Valid() bool {
	return c >= 2 && c <= 4
}

func ParseGridColumns(raw string) GridColumns {
	n, err := strconv.Atoi(raw)
	if err != nil || !GridColumns(n).Valid() {
		return DefaultColumns
	}
	return GridColumns(n)
}

// PageSizeOptions suggests page sizes that fill whole rows.
func PageSizeOptions(c GridColumns) []int {
	if !c.Valid() {
		c = DefaultColumns
	}
	n := int(c)
	return []int{n * 2, n * 3, n * 4, n * 6}
}
