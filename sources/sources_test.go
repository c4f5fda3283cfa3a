package sources

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/gallery"
	"github.com/amgst/vancegraphix.com.au-sub000/google"
	"github.com/amgst/vancegraphix.com.au-sub000/stores/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrive struct {
	mu       sync.Mutex
	disabled bool
	folders  map[string][]google.ImageRef
	failing  map[string]bool
	calls    []string
}

func (f *fakeDrive) Enabled() bool { return !f.disabled }

func (f *fakeDrive) ListImages(ctx context.Context, folderID string) ([]google.ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, folderID)
	if f.failing[folderID] {
		return nil, errors.New("folder unavailable")
	}
	return f.folders[folderID], nil
}

var printCategories = []config.PrintCategory{
	{Name: "Flyers", FolderID: "f-flyers"},
	{Name: "Business Cards", FolderID: "f-cards", CoverURL: "https://img/cards-cover.jpg"},
	{Name: "Posters", FolderID: "f-posters"},
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		folders: map[string][]google.ImageRef{
			"f-flyers": {
				{ID: "fl1", Name: "summer.jpg", URL: "https://img/fl1", ThumbnailURL: "https://thumb/fl1"},
				{ID: "fl2", Name: "winter.png", URL: "https://img/fl2", ThumbnailURL: "https://thumb/fl2"},
			},
			"f-cards": {
				{ID: "bc1", Name: "card.jpg", URL: "https://img/bc1", ThumbnailURL: "https://thumb/bc1"},
			},
		},
		failing: map[string]bool{},
	}
}

func TestStoreSource_ListsCollection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, &core.Item{Collection: "portfolio", Category: "Web"}))
	require.NoError(t, store.Save(ctx, &core.Item{Collection: "other", Category: "Web"}))

	items, err := StoreSource{Store: store, Collection: "portfolio"}.Fetch(ctx, gallery.Key{Category: "Print"})
	require.NoError(t, err)
	assert.Len(t, items, 1, "store source returns the whole collection regardless of category")
}

func TestDriveSource_AllCategories(t *testing.T) {
	src := DriveSource{Drive: newFakeDrive(), Categories: printCategories}

	items, err := src.Fetch(context.Background(), gallery.Key{Category: core.AllCategories})
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "fl1", items[0].ID)
	assert.Equal(t, "Flyers", items[0].Category)
	assert.Equal(t, "summer", items[0].Title)
	assert.Equal(t, 1, items[1].Order)
	assert.Equal(t, "Business Cards", items[2].Category)
	assert.Equal(t, PrintCollection, items[2].Collection)
	assert.JSONEq(t, `"https://thumb/bc1"`, string(items[2].Extra["thumbnailUrl"]))
}

func TestDriveSource_SingleCategory(t *testing.T) {
	drive := newFakeDrive()
	src := DriveSource{Drive: drive, Categories: printCategories}

	items, err := src.Fetch(context.Background(), gallery.Key{Category: "Business Cards"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{"f-cards"}, drive.calls)

	items, err = src.Fetch(context.Background(), gallery.Key{Category: "Banners"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDriveSource_ExternalFolder(t *testing.T) {
	src := DriveSource{Drive: newFakeDrive(), Categories: printCategories}

	items, err := src.Fetch(context.Background(), gallery.Key{Category: core.AllCategories, ExternalID: "f-flyers"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Flyers", items[0].Category)

	drive := newFakeDrive()
	src.Drive = drive
	items, err = src.Fetch(context.Background(), gallery.Key{Category: core.AllCategories, ExternalID: "someone-elses-folder"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, drive.calls)
}

func TestDriveSource_FailurePropagates(t *testing.T) {
	drive := newFakeDrive()
	drive.failing["f-posters"] = true
	src := DriveSource{Drive: drive, Categories: printCategories}

	_, err := src.Fetch(context.Background(), gallery.Key{Category: core.AllCategories})
	assert.Error(t, err)
}

func TestDriveSource_DisabledIsEmpty(t *testing.T) {
	drive := newFakeDrive()
	drive.disabled = true
	src := DriveSource{Drive: drive, Categories: printCategories}

	items, err := src.Fetch(context.Background(), gallery.Key{Category: core.AllCategories})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, drive.calls)
}

func TestCovers(t *testing.T) {
	drive := newFakeDrive()
	drive.failing["f-posters"] = true

	covers := Covers(context.Background(), drive, printCategories)

	require.Len(t, covers, 3)
	assert.Equal(t, Cover{Category: "Flyers", ImageURL: "https://img/fl1", ThumbnailURL: "https://thumb/fl1"}, covers[0])
	assert.Equal(t, "https://img/cards-cover.jpg", covers[1].ImageURL, "configured cover wins")
	assert.Equal(t, "Posters", covers[2].Category)
	assert.Empty(t, covers[2].ImageURL)
	assert.Equal(t, "folder unavailable", covers[2].Error)
	assert.NotContains(t, drive.calls, "f-cards")
}

func TestCovers_DisabledUsesConfiguredOnly(t *testing.T) {
	drive := newFakeDrive()
	drive.disabled = true

	covers := Covers(context.Background(), drive, printCategories)

	assert.Empty(t, covers[0].ImageURL)
	assert.Equal(t, "https://img/cards-cover.jpg", covers[1].ImageURL)
	assert.Empty(t, drive.calls)
}

func TestDriveSource_WithBrowser(t *testing.T) {
	ctx := context.Background()
	src := DriveSource{Drive: newFakeDrive(), Categories: printCategories}
	b := gallery.NewBrowser(src, gallery.Options{Categories: []string{"Flyers", "Business Cards", "Posters"}, PageSize: 2})

	require.NoError(t, b.Mount(ctx, "flyers", "2"))
	view := b.View()
	assert.Equal(t, "Flyers", view.ActiveCategory)
	assert.Equal(t, []string{"fl1", "fl2"}, view.Order)
	assert.Equal(t, "fl2", view.Lightbox.Item.ID)
}
