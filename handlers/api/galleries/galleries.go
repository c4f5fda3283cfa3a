package galleries

import (
	"context"
	"net/http"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/gallery"
	"github.com/amgst/vancegraphix.com.au-sub000/sources"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// Gallery is one public gallery: where its items come from and how they
	// are browsed.
	Gallery struct {
		Source  gallery.Source
		Options gallery.Options
		// Covers returns per-category cover images. Nil when the gallery has none.
		Covers func(ctx context.Context) []sources.Cover
	}

	// Registry maps the {gallery} URL param to a gallery.
	Registry map[string]Gallery

	ItemsResponse struct {
		Items []*core.Item `json:"items"`
		Error string       `json:"error,omitempty"`
	}

	CoversResponse struct {
		Covers []sources.Cover `json:"covers"`
	}
)

func (reg Registry) lookup(w http.ResponseWriter, r *http.Request) (string, Gallery, bool) {
	name := chi.URLParam(r, "gallery")
	g, ok := reg[name]
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Unknown gallery"})
		return name, Gallery{}, false
	}
	return name, g, true
}

// HandleView renders one page of a gallery for the query parameters
// category, folder, page, perPage, columns and image. Source failures are
// reported in the error field of a 200 response.
func HandleView(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, g, ok := reg.lookup(w, r)
		if !ok {
			return
		}

		q := gallery.ParseQuery(r.URL.Query())
		view := gallery.BuildView(r.Context(), g.Source, g.Options, q)
		if view.Error != "" {
			logrus.WithFields(logrus.Fields{"gallery": name, "category": q.Category}).Warn("Gallery rendered in error state")
		}
		render.JSON(w, r, view)
	}
}

// HandleItems returns the visible snapshot of a gallery.
func HandleItems(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, g, ok := reg.lookup(w, r)
		if !ok {
			return
		}

		items, err := g.Source.Fetch(r.Context(), gallery.Key{Category: core.AllCategories})
		if err != nil {
			logrus.WithError(err).WithField("gallery", name).Warn("Failed to fetch gallery items")
			render.JSON(w, r, ItemsResponse{Items: []*core.Item{}, Error: err.Error()})
			return
		}
		render.JSON(w, r, ItemsResponse{Items: gallery.Visible(items)})
	}
}

func HandleCovers(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, g, ok := reg.lookup(w, r)
		if !ok {
			return
		}
		if g.Covers == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Gallery has no category covers"})
			return
		}
		render.JSON(w, r, CoversResponse{Covers: g.Covers(r.Context())})
	}
}
