package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/oklog/ulid/v2"
)

// newTestStore gives each test its own collection so runs do not interfere.
func newTestStore(t *testing.T) (*fsStore, string) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	store := NewStore("test-project")
	t.Cleanup(func() { store.Close() })
	return store, "t-" + strings.ToLower(ulid.Make().String())
}

func TestSaveGetList(t *testing.T) {
	store, collection := newTestStore(t)
	ctx := context.Background()

	first := &core.Item{Collection: collection, Category: "Web", Order: 2, Title: "First"}
	second := &core.Item{Collection: collection, Category: "Print", Title: "Second"}
	for _, item := range []*core.Item{first, second} {
		if err := store.Save(ctx, item); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	got, err := store.Get(ctx, collection, first.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "First" || got.Order != 2 {
		t.Errorf("Get() returned %+v", got)
	}
	if !got.CreatedAt.Equal(first.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("Get() CreatedAt = %v, want %v", got.CreatedAt, first.CreatedAt)
	}

	items, err := store.List(ctx, collection)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != first.ID || items[1].ID != second.ID {
		t.Errorf("List() = %v", items)
	}
}

func TestSave_UpdateKeepsCreatedAt(t *testing.T) {
	store, collection := newTestStore(t)
	ctx := context.Background()

	item := &core.Item{Collection: collection, Category: "Web"}
	if err := store.Save(ctx, item); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	update := &core.Item{ID: item.ID, Collection: collection, Category: "Web", Title: "Renamed"}
	if err := store.Save(ctx, update); err != nil {
		t.Fatalf("Save() update failed: %v", err)
	}
	if !update.CreatedAt.Equal(item.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt changed: got %v, want %v", update.CreatedAt, item.CreatedAt)
	}
}

func TestDelete(t *testing.T) {
	store, collection := newTestStore(t)
	ctx := context.Background()

	item := &core.Item{Collection: collection, Category: "Web"}
	if err := store.Save(ctx, item); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Delete(ctx, collection, item.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, collection, item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, collection, item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestEncode_KeepsNativeTypes(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	item := &core.Item{
		ID:        "a1",
		Category:  "Web",
		Order:     3,
		CreatedAt: created,
		UpdatedAt: created,
		Extra:     map[string]json.RawMessage{"client": json.RawMessage(`"Acme"`)},
	}

	fields, err := encode(item)
	if err != nil {
		t.Fatalf("encode() failed: %v", err)
	}
	if order, ok := fields["order"].(int); !ok || order != 3 {
		t.Errorf("order = %#v, want int 3", fields["order"])
	}
	if ts, ok := fields["createdAt"].(time.Time); !ok || !ts.Equal(created) {
		t.Errorf("createdAt = %#v, want %v", fields["createdAt"], created)
	}
	if fields["client"] != "Acme" {
		t.Errorf("extra field lost: %#v", fields["client"])
	}
}
