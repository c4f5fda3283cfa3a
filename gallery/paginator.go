package gallery

import (
	"errors"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var ErrInvalidPageSize = errors.New("items per page must be at least 1")

// Paginator slices an ordered list into pages.
//
// An empty list has zero pages: Empty reports true and no page controls should
// be rendered. The current page stays at 1 in that case.
type Paginator struct {
	items        []*core.Item
	page         int
	perPage      int
	onPageChange func(page int)
}

func NewPaginator(perPage int) *Paginator {
	if perPage < 1 {
		perPage = DefaultPageSize
	}
	return &Paginator{page: 1, perPage: perPage}
}

// OnPageChange registers a hook run after every successful SetPage, the place
// to scroll the grid back into view.
func (p *Paginator) OnPageChange(fn func(page int)) {
	p.onPageChange = fn
}

// SetItems replaces the list being paged and clamps the current page down if
// the list shrank.
func (p *Paginator) SetItems(items []*core.Item) {
	p.items = append([]*core.Item(nil), items...)
	p.clamp()
}

// SetPage moves to page n. Out of range requests are ignored and report false.
func (p *Paginator) SetPage(n int) bool {
	if n < 1 || n > p.TotalPages() {
		return false
	}
	p.page = n
	if p.onPageChange != nil {
		p.onPageChange(n)
	}
	return true
}

// SetItemsPerPage changes the page size and always returns to page 1.
func (p *Paginator) SetItemsPerPage(n int) error {
	if n < 1 {
		return ErrInvalidPageSize
	}
	p.perPage = n
	p.page = 1
	return nil
}

// Reset returns to the first page.
func (p *Paginator) Reset() {
	p.page = 1
}

func (p *Paginator) Page() int    { return p.page }
func (p *Paginator) PerPage() int { return p.perPage }
func (p *Paginator) Len() int     { return len(p.items) }
func (p *Paginator) Empty() bool  { return len(p.items) == 0 }

func (p *Paginator) TotalPages() int {
	return (len(p.items) + p.perPage - 1) / p.perPage
}

func (p *Paginator) HasPrev() bool { return p.page > 1 }
func (p *Paginator) HasNext() bool { return p.page < p.TotalPages() }

// Items returns the slice of the current page.
func (p *Paginator) Items() []*core.Item {
	start := (p.page - 1) * p.perPage
	if start >= len(p.items) {
		return []*core.Item{}
	}
	end := min(start+p.perPage, len(p.items))
	return append([]*core.Item(nil), p.items[start:end]...)
}

func (p *Paginator) clamp() {
	if total := p.TotalPages(); total > 0 && p.page > total {
		p.page = total
	}
	if p.page < 1 {
		p.page = 1
	}
}
