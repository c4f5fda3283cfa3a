// Package sources adapts the document store and Google Drive into gallery
// item sources.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"

	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/gallery"
	"github.com/amgst/vancegraphix.com.au-sub000/google"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PrintCollection is the collection name stamped on items built from Drive.
const PrintCollection = "print"

// fanOut bounds concurrent Drive folder listings.
const fanOut = 4

// ImageLister is the part of google.Drive the sources use.
type ImageLister interface {
	Enabled() bool
	ListImages(ctx context.Context, folderID string) ([]google.ImageRef, error)
}

// StoreSource lists one collection of the document store.
type StoreSource struct {
	Store      core.ItemStore
	Collection string
}

func (s StoreSource) Fetch(ctx context.Context, key gallery.Key) ([]*core.Item, error) {
	return s.Store.List(ctx, s.Collection)
}

// DriveSource builds print portfolio items from per-category Drive folders.
type DriveSource struct {
	Drive      ImageLister
	Categories []config.PrintCategory
}

func (s DriveSource) category(name string) (config.PrintCategory, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return config.PrintCategory{}, false
}

// Fetch lists the configured folder named by key.ExternalID, the folder of
// key.Category, or every configured folder for the All category. A disabled
// Drive yields an empty list.
func (s DriveSource) Fetch(ctx context.Context, key gallery.Key) ([]*core.Item, error) {
	if !s.Drive.Enabled() {
		logrus.Debug("Drive disabled, print gallery is empty")
		return []*core.Item{}, nil
	}

	if key.ExternalID != "" {
		for _, c := range s.Categories {
			if c.FolderID == key.ExternalID {
				return s.folder(ctx, c.Name, c.FolderID)
			}
		}
		// Only configured folders are listed.
		return []*core.Item{}, nil
	}

	if key.Category != core.AllCategories {
		c, ok := s.category(key.Category)
		if !ok || c.FolderID == "" {
			return []*core.Item{}, nil
		}
		return s.folder(ctx, c.Name, c.FolderID)
	}

	results := make([][]*core.Item, len(s.Categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, c := range s.Categories {
		if c.FolderID == "" {
			continue
		}
		g.Go(func() error {
			items, err := s.folder(gctx, c.Name, c.FolderID)
			results[i] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := []*core.Item{}
	for _, r := range results {
		items = append(items, r...)
	}
	return items, nil
}

func (s DriveSource) folder(ctx context.Context, category, folderID string) ([]*core.Item, error) {
	images, err := s.Drive.ListImages(ctx, folderID)
	if err != nil {
		return nil, err
	}
	items := make([]*core.Item, len(images))
	for i, img := range images {
		items[i] = imageItem(category, i, img)
	}
	return items, nil
}

func imageItem(category string, position int, img google.ImageRef) *core.Item {
	item := &core.Item{
		ID:         img.ID,
		Collection: PrintCollection,
		Category:   category,
		Order:      position,
		ImageURL:   img.URL,
		Title:      strings.TrimSuffix(img.Name, path.Ext(img.Name)),
	}
	if thumb, err := json.Marshal(img.ThumbnailURL); err == nil {
		item.Extra = map[string]json.RawMessage{"thumbnailUrl": thumb}
	}
	return item
}

// Cover is the representative image of one category.
type Cover struct {
	Category     string `json:"category"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Covers picks one cover per category. A configured cover URL wins, otherwise
// the first image in the folder is used. Categories are fetched concurrently
// and a failing folder only loses its own cover.
func Covers(ctx context.Context, drive ImageLister, categories []config.PrintCategory) []Cover {
	covers := make([]Cover, len(categories))
	enabled := drive != nil && drive.Enabled()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, c := range categories {
		covers[i] = Cover{Category: c.Name, ImageURL: c.CoverURL, ThumbnailURL: c.CoverURL}
		if c.CoverURL != "" || c.FolderID == "" || !enabled {
			continue
		}
		g.Go(func() error {
			images, err := drive.ListImages(gctx, c.FolderID)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logrus.WithError(err).WithField("category", c.Name).Warn("Failed to load category cover")
				}
				covers[i].Error = err.Error()
				return nil
			}
			if len(images) > 0 {
				covers[i].ImageURL = images[0].URL
				covers[i].ThumbnailURL = images[0].ThumbnailURL
			}
			return nil
		})
	}
	g.Wait()

	return covers
}
