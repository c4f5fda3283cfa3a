package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/sirupsen/logrus"
)

// ErrSuperseded is returned by Load when a newer load started before this one
// finished. Its result was discarded.
var ErrSuperseded = errors.New("gallery load superseded by a newer request")

type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

type (
	// Key identifies what a Source should fetch.
	Key struct {
		Category   string
		ExternalID string
	}

	// Source supplies the raw item list for a gallery.
	Source interface {
		Fetch(ctx context.Context, key Key) ([]*core.Item, error)
	}

	// SourceFunc adapts a function to Source.
	SourceFunc func(ctx context.Context, key Key) ([]*core.Item, error)

	Options struct {
		// HonorFeatured sorts featured items ahead of the rest.
		HonorFeatured bool
		// Categories fixes the category list. When empty the categories present
		// in the snapshot are used.
		Categories []string
		PageSize   int
		Columns    GridColumns
	}

	LightboxView struct {
		Open  bool       `json:"open"`
		Index int        `json:"index"`
		Image string     `json:"image,omitempty"`
		Item  *core.Item `json:"item,omitempty"`
		Total int        `json:"total"`
	}

	// View is a rendering of the browser state.
	View struct {
		State           string       `json:"state"`
		Error           string       `json:"error,omitempty"`
		Categories      []string     `json:"categories"`
		ActiveCategory  string       `json:"activeCategory"`
		Items           []*core.Item `json:"items"`
		Page            int          `json:"page"`
		PerPage         int          `json:"perPage"`
		TotalPages      int          `json:"totalPages"`
		HasPrev         bool         `json:"hasPrev"`
		HasNext         bool         `json:"hasNext"`
		Empty           bool         `json:"empty"`
		Columns         int          `json:"columns"`
		PageSizeOptions []int        `json:"pageSizeOptions"`
		Order           []string     `json:"order"`
		Lightbox        LightboxView `json:"lightbox"`
	}
)

func (f SourceFunc) Fetch(ctx context.Context, key Key) ([]*core.Item, error) {
	return f(ctx, key)
}

// Browser owns one gallery instance: its snapshot, the active category, the
// paginator and the lightbox. It is safe for concurrent use; fetches run
// outside the lock and only the most recently issued one may apply its result.
type Browser struct {
	mu sync.Mutex

	source        Source
	honorFeatured bool
	fixed         []string

	state      State
	err        string
	category   string
	externalID string
	deepLink   string
	// resolve marks a routing param that still has to be checked against the
	// categories of the first snapshot.
	resolve bool

	snapshot []*core.Item
	ordered  []*core.Item

	paginator    *Paginator
	lightbox     *Lightbox
	columns      GridColumns
	onPageChange func(page int)

	seq uint64
}

func NewBrowser(source Source, opts Options) *Browser {
	columns := opts.Columns
	if !columns.Valid() {
		columns = DefaultColumns
	}
	return &Browser{
		source:        source,
		honorFeatured: opts.HonorFeatured,
		fixed:         append([]string(nil), opts.Categories...),
		category:      core.AllCategories,
		paginator:     NewPaginator(opts.PageSize),
		lightbox:      NewLightbox(),
		columns:       columns,
	}
}

// Mount performs the initial load. The category param is resolved against the
// known categories and deepLink is applied once the first snapshot arrives.
func (b *Browser) Mount(ctx context.Context, categoryParam, deepLink string) error {
	b.mu.Lock()
	b.deepLink = deepLink
	b.category = categoryParam
	if len(b.fixed) > 0 {
		b.category = ResolveCategory(categoryParam, b.fixed)
	} else {
		b.resolve = true
	}
	b.mu.Unlock()

	return b.Load(ctx)
}

// SetCategory switches the active category and reloads.
func (b *Browser) SetCategory(ctx context.Context, category string) error {
	b.mu.Lock()
	b.category = category
	b.paginator.Reset()
	b.mu.Unlock()

	return b.Load(ctx)
}

// SetExternalID narrows the source (for example to one sub-folder) and reloads.
func (b *Browser) SetExternalID(ctx context.Context, id string) error {
	b.mu.Lock()
	b.externalID = id
	b.mu.Unlock()

	return b.Load(ctx)
}

// Load fetches a fresh snapshot for the current key.
func (b *Browser) Load(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.state = StateLoading
	b.err = ""
	key := Key{Category: b.category, ExternalID: b.externalID}
	b.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"category": key.Category, "external_id": key.ExternalID, "seq": seq})
	log.Debug("Loading gallery items")

	items, err := b.source.Fetch(ctx, key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq {
		log.Debug("Discarding superseded gallery load")
		return ErrSuperseded
	}

	if err != nil {
		log.WithError(err).Warn("Failed to load gallery items")
		b.state = StateError
		b.err = err.Error()
		b.snapshot = nil
		if b.resolve {
			b.category = ResolveCategory(b.category, b.fixed)
			b.resolve = false
		}
		b.derive()
		return err
	}

	b.state = StateIdle
	b.snapshot = Visible(items)
	if b.resolve {
		b.category = ResolveCategory(b.category, Categories(b.snapshot))
		b.resolve = false
	}
	b.derive()
	b.lightbox.Hydrate(b.deepLink)
	log.WithField("count", len(b.ordered)).Debug("Gallery items loaded")
	return nil
}

// derive rebuilds the ordered list from the snapshot. Callers hold mu.
func (b *Browser) derive() {
	b.ordered = Sort(Filter(b.snapshot, b.category), b.honorFeatured)
	b.paginator.Reset()
	b.paginator.SetItems(b.ordered)
	b.lightbox.SetItems(b.ordered)
}

// SetPage moves to page n and then runs the page-change hook outside the
// lock, so the hook may read the browser.
func (b *Browser) SetPage(n int) bool {
	b.mu.Lock()
	ok := b.paginator.SetPage(n)
	hook := b.onPageChange
	b.mu.Unlock()

	if ok && hook != nil {
		hook(n)
	}
	return ok
}

func (b *Browser) SetItemsPerPage(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paginator.SetItemsPerPage(n)
}

// OnPageChange registers the scroll-into-view hook.
func (b *Browser) OnPageChange(fn func(page int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPageChange = fn
}

func (b *Browser) SetColumns(c GridColumns) bool {
	if !c.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns = c
	return true
}

func (b *Browser) Open(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lightbox.Open(index)
}

func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lightbox.Close()
}

func (b *Browser) Next() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lightbox.Next()
}

func (b *Browser) Prev() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lightbox.Prev()
}

func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Browser) Category() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category
}

func (b *Browser) TotalPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paginator.TotalPages()
}

// View renders the current state.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	categories := b.fixed
	if len(categories) == 0 {
		categories = Categories(b.snapshot)
	}

	order := make([]string, len(b.ordered))
	for i, item := range b.ordered {
		order[i] = item.ID
	}

	lb := LightboxView{
		Open:  b.lightbox.IsOpen(),
		Index: b.lightbox.Index(),
		Total: b.lightbox.Len(),
	}
	if current := b.lightbox.Current(); current != nil {
		lb.Item = current.Clone()
	}

	page := b.paginator.Items()
	for i, item := range page {
		page[i] = item.Clone()
	}
	lb.Image, _ = b.lightbox.DeepLink()

	return View{
		State:           b.state.String(),
		Error:           b.err,
		Categories:      append([]string{core.AllCategories}, categories...),
		ActiveCategory:  b.category,
		Items:           page,
		Page:            b.paginator.Page(),
		PerPage:         b.paginator.PerPage(),
		TotalPages:      b.paginator.TotalPages(),
		HasPrev:         b.paginator.HasPrev(),
		HasNext:         b.paginator.HasNext(),
		Empty:           b.paginator.Empty(),
		Columns:         int(b.columns),
		PageSizeOptions: PageSizeOptions(b.columns),
		Order:           order,
		Lightbox:        lb,
	}
}

// BuildView renders a one-shot view for a stateless request: mount with the
// query, then apply page size and page. A page past the end is clamped to the
// last page.
func BuildView(ctx context.Context, source Source, opts Options, q Query) View {
	if q.PerPage >= 1 {
		opts.PageSize = q.PerPage
	}
	if q.Columns.Valid() {
		opts.Columns = q.Columns
	}
	b := NewBrowser(source, opts)
	b.externalID = q.ExternalID
	_ = b.Mount(ctx, q.Category, q.Image)

	if total := b.TotalPages(); total > 0 {
		b.SetPage(min(max(q.Page, 1), total))
	}
	return b.View()
}
