package gallery

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

// ImageParam is the query parameter carrying the 1-based lightbox position.
const ImageParam = "image"

var ErrIndexOutOfRange = errors.New("lightbox index out of range")

// Lightbox navigates the full filtered and sorted list, independent of the
// page currently shown.
type Lightbox struct {
	items    []*core.Item
	index    int
	open     bool
	hydrated bool
}

func NewLightbox() *Lightbox {
	return &Lightbox{}
}

// SetItems replaces the list. The index is wrapped back into range when the
// list shrinks, and the lightbox closes when the list becomes empty.
func (l *Lightbox) SetItems(items []*core.Item) {
	l.items = append([]*core.Item(nil), items...)
	if len(l.items) == 0 {
		l.index = 0
		l.open = false
		return
	}
	l.index = ((l.index % len(l.items)) + len(l.items)) % len(l.items)
}

// Open shows the item at index. Callers must clamp first; an out of range
// index is a programming error.
func (l *Lightbox) Open(index int) error {
	if index < 0 || index >= len(l.items) {
		return ErrIndexOutOfRange
	}
	l.index = index
	l.open = true
	return nil
}

func (l *Lightbox) Close() {
	l.open = false
}

// Next advances with wraparound. It does nothing on an empty list.
func (l *Lightbox) Next() {
	if len(l.items) == 0 {
		return
	}
	l.index = (l.index + 1) % len(l.items)
}

// Prev retreats with wraparound. It does nothing on an empty list.
func (l *Lightbox) Prev() {
	if len(l.items) == 0 {
		return
	}
	l.index = (l.index - 1 + len(l.items)) % len(l.items)
}

// Hydrate applies a deep link once, on the first call made with a non-empty
// list. Later calls never reopen the lightbox, so list refreshes do not fight
// user navigation. It reports whether the lightbox was opened.
func (l *Lightbox) Hydrate(param string) bool {
	if l.hydrated || len(l.items) == 0 {
		return false
	}
	l.hydrated = true
	index, ok := ParseImageParam(param, len(l.items))
	if !ok {
		return false
	}
	l.index = index
	l.open = true
	return true
}

func (l *Lightbox) IsOpen() bool { return l.open }
func (l *Lightbox) Index() int   { return l.index }
func (l *Lightbox) Len() int     { return len(l.items) }

// Current returns the shown item, or nil when closed.
func (l *Lightbox) Current() *core.Item {
	if !l.open || len(l.items) == 0 {
		return nil
	}
	return l.items[l.index]
}

// DeepLink returns the 1-based parameter value for the shown item.
func (l *Lightbox) DeepLink() (string, bool) {
	if !l.open {
		return "", false
	}
	return strconv.Itoa(l.index + 1), true
}

// ApplyTo writes the deep link into query values, or removes it when closed.
func (l *Lightbox) ApplyTo(values url.Values) {
	if link, ok := l.DeepLink(); ok {
		values.Set(ImageParam, link)
		return
	}
	values.Del(ImageParam)
}
