package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

func TestNewStore(t *testing.T) {
	store := NewStore()
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestSave_AssignsIDAndTimestamps(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	item := &core.Item{Collection: "portfolio", Category: "Web", Title: "Landing page"}
	if err := store.Save(ctx, item); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if len(item.ID) != 26 {
		t.Errorf("Save() assigned invalid ID length: got %d, want 26", len(item.ID))
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("Save() did not stamp timestamps")
	}

	got, err := store.Get(ctx, "portfolio", item.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "Landing page" {
		t.Errorf("Get() title mismatch: got %q", got.Title)
	}
}

func TestSave_UpdateKeepsCreatedAtAndPosition(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := &core.Item{Collection: "portfolio", Category: "Web"}
	second := &core.Item{Collection: "portfolio", Category: "Web"}
	for _, item := range []*core.Item{first, second} {
		if err := store.Save(ctx, item); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}
	created := first.CreatedAt

	update := &core.Item{ID: first.ID, Collection: "portfolio", Category: "Print"}
	if err := store.Save(ctx, update); err != nil {
		t.Fatalf("Save() update failed: %v", err)
	}
	if !update.CreatedAt.Equal(created) {
		t.Errorf("Save() update changed CreatedAt: got %v, want %v", update.CreatedAt, created)
	}

	items, err := store.List(ctx, "portfolio")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatalf("List() order changed after update: %v", items)
	}
	if items[0].Category != "Print" {
		t.Errorf("List() returned stale data: %q", items[0].Category)
	}
}

func TestSave_InvalidItem(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Save(ctx, &core.Item{Collection: "portfolio"})
	if !errors.Is(err, core.ErrInvalidItem) {
		t.Errorf("Save() error = %v, want ErrInvalidItem", err)
	}
}

func TestList_EmptyCollection(t *testing.T) {
	store := NewStore()

	items, err := store.List(context.Background(), "portfolio")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", items)
	}
}

func TestList_IncludesPrivateItems(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Save(ctx, &core.Item{Collection: "portfolio", Category: "Web", IsPublic: core.Bool(false)}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	items, _ := store.List(ctx, "portfolio")
	if len(items) != 1 {
		t.Errorf("List() should return private items to the caller, got %d", len(items))
	}
}

func TestList_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Save(ctx, &core.Item{Collection: "portfolio", Category: "Web"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	items, _ := store.List(ctx, "portfolio")
	items[0].Category = "Changed"

	again, _ := store.List(ctx, "portfolio")
	if again[0].Category != "Web" {
		t.Errorf("List() exposed stored item: got %q", again[0].Category)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "portfolio", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	item := &core.Item{Collection: "portfolio", Category: "Web"}
	if err := store.Save(ctx, item); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := store.Delete(ctx, "portfolio", item.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "portfolio", item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "portfolio", item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	items, _ := store.List(ctx, "portfolio")
	if len(items) != 0 {
		t.Errorf("List() after Delete() returned %d items", len(items))
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := &core.Item{Collection: "portfolio", Category: fmt.Sprintf("C%d", i%3)}
			if err := store.Save(ctx, item); err != nil {
				t.Errorf("Save() failed: %v", err)
				return
			}
			if _, err := store.List(ctx, "portfolio"); err != nil {
				t.Errorf("List() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	items, _ := store.List(ctx, "portfolio")
	if len(items) != 50 {
		t.Errorf("List() returned %d items, want 50", len(items))
	}
}
