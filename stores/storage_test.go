package stores

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
)

func TestGetStore(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Storage
	}{
		{"default memory", config.Storage{}},
		{"filesystem", config.Storage{Type: "filesystem", LocalPath: t.TempDir()}},
		{"sqlite", config.Storage{Type: "sqlite", DataSourceName: filepath.Join(t.TempDir(), "site.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := GetStore(tt.cfg)
			if store == nil {
				t.Fatal("GetStore() returned nil")
			}

			ctx := context.Background()
			item := &core.Item{Collection: "portfolio", Category: "Web"}
			if err := store.Save(ctx, item); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
			items, err := store.List(ctx, "portfolio")
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(items) != 1 || items[0].ID != item.ID {
				t.Errorf("List() = %v", items)
			}
		})
	}
}
