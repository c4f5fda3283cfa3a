package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// AllCategories is the reserved filter value that matches every item.
// It is never a legal item category.
const AllCategories = "All"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidItem = errors.New("invalid item")
)

var collectionPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

type (
	// Item is a single gallery entry: a portfolio piece or a print sample.
	Item struct {
		ID           string             `json:"id"`
		Collection   string             `json:"collection,omitempty"`
		Category     string             `json:"category"`
		Order        int                `json:"order"`
		IsFeatured   bool               `json:"isFeatured,omitempty"`
		IsPublic     *bool              `json:"isPublic,omitempty"`
		ImageURL     string             `json:"imageUrl,omitempty"`
		Title        string             `json:"title,omitempty"`
		Description  string             `json:"description,omitempty"`
		Link         string             `json:"link,omitempty"`
		Technologies []string           `json:"technologies,omitempty"`
		Scores       map[string]float64 `json:"scores,omitempty"`
		CreatedAt    time.Time          `json:"createdAt"`
		UpdatedAt    time.Time          `json:"updatedAt"`

		// Extra holds fields this server does not know about. They survive a
		// read/write round trip untouched.
		Extra map[string]json.RawMessage `json:"-"`
	}

	// ItemStore persists gallery items grouped into named collections.
	ItemStore interface {
		// List returns every item of a collection in fetch order (oldest first),
		// private ones included.
		List(ctx context.Context, collection string) ([]*Item, error)

		// Get returns a single item or ErrNotFound.
		Get(ctx context.Context, collection, id string) (*Item, error)

		// Save creates or replaces an item. An empty ID is assigned by the store.
		Save(ctx context.Context, item *Item) error

		// Delete removes an item or returns ErrNotFound.
		Delete(ctx context.Context, collection, id string) error
	}
)

type itemAlias Item

var knownItemFields = map[string]struct{}{
	"id": {}, "collection": {}, "category": {}, "order": {}, "isFeatured": {}, "isPublic": {},
	"imageUrl": {}, "title": {}, "description": {}, "link": {}, "technologies": {}, "scores": {},
	"createdAt": {}, "updatedAt": {},
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var alias itemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if _, known := knownItemFields[k]; known {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		alias.Extra = all
	}
	*i = Item(alias)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(itemAlias(i))
	if err != nil || len(i.Extra) == 0 {
		return data, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range i.Extra {
		if _, exists := all[k]; !exists {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Visible reports whether the item may be shown to the public.
// A missing isPublic flag counts as public.
func (i *Item) Visible() bool {
	return i.IsPublic == nil || *i.IsPublic
}

// Validate checks the fields the gallery relies on.
func (i *Item) Validate() error {
	category := strings.TrimSpace(i.Category)
	if category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidItem)
	}
	if category == AllCategories {
		return fmt.Errorf("%w: category %q is reserved", ErrInvalidItem, AllCategories)
	}
	return ValidateCollection(i.Collection)
}

// Clone returns a copy that shares no mutable state with i.
func (i *Item) Clone() *Item {
	c := *i
	if i.IsPublic != nil {
		v := *i.IsPublic
		c.IsPublic = &v
	}
	if i.Technologies != nil {
		c.Technologies = append([]string(nil), i.Technologies...)
	}
	if i.Scores != nil {
		c.Scores = make(map[string]float64, len(i.Scores))
		for k, v := range i.Scores {
			c.Scores[k] = v
		}
	}
	if i.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(i.Extra))
		for k, v := range i.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// ValidateCollection rejects collection names that are unsafe as path or key
// segments.
func ValidateCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", ErrInvalidItem, name)
	}
	return nil
}

// Bool returns a pointer to v, for optional flags.
func Bool(v bool) *bool {
	return &v
}

// ValidateID rejects ids that could escape a collection when used as a path
// or object key segment.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: invalid item id %q", ErrInvalidItem, id)
	}
	return nil
}

// Stamp prepares an item for saving: it assigns an id when missing and sets
// the timestamps, keeping CreatedAt from the stored version if there is one.
func (i *Item) Stamp(existing *Item, now time.Time) {
	if i.ID == "" {
		i.ID = ulid.Make().String()
	}
	if existing != nil && !existing.CreatedAt.IsZero() {
		i.CreatedAt = existing.CreatedAt
	} else {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}

// SortByCreation orders items oldest first, the fetch order of every store.
func SortByCreation(items []*Item) {
	slices.SortStableFunc(items, func(a, b *Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
