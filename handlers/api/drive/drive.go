package drive

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/amgst/vancegraphix.com.au-sub000/google"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type ImageLister interface {
	Enabled() bool
	ListImages(ctx context.Context, folderID string) ([]google.ImageRef, error)
}

type ImagesResponse struct {
	Enabled bool              `json:"enabled"`
	Folder  string            `json:"folder,omitempty"`
	Images  []google.ImageRef `json:"images"`
}

// HandleImages lists the images of one Drive folder. When allowed is
// non-empty only those folders may be listed.
func HandleImages(drive ImageLister, allowed []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !drive.Enabled() {
			render.JSON(w, r, ImagesResponse{Enabled: false, Images: []google.ImageRef{}})
			return
		}

		folder := r.URL.Query().Get("folder")
		if !google.ValidFolderID(folder) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "A valid folder query parameter is required"})
			return
		}
		if len(allowed) > 0 && !slices.Contains(allowed, folder) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Folder is not published"})
			return
		}

		images, err := drive.ListImages(r.Context(), folder)
		if err != nil {
			if errors.Is(err, google.ErrDisabled) {
				render.JSON(w, r, ImagesResponse{Enabled: false, Images: []google.ImageRef{}})
				return
			}
			logrus.WithError(err).WithField("folder_id", folder).Warn("Drive listing failed")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "Failed to list images"})
			return
		}

		render.JSON(w, r, ImagesResponse{Enabled: true, Folder: folder, Images: images})
	}
}
