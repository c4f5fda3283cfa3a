package places

import (
	"context"
	"errors"
	"net/http"

	"github.com/amgst/vancegraphix.com.au-sub000/google"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type ReviewsFetcher interface {
	Enabled() bool
	Reviews(ctx context.Context, placeID string) (*google.PlaceReviews, error)
}

type ReviewsResponse struct {
	Enabled bool `json:"enabled"`
	*google.PlaceReviews
}

// HandleReviews proxies Places reviews so the API key never reaches the
// browser. An optional placeId query param overrides the configured place.
func HandleReviews(places ReviewsFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !places.Enabled() {
			render.JSON(w, r, ReviewsResponse{Enabled: false})
			return
		}

		placeID := r.URL.Query().Get("placeId")
		reviews, err := places.Reviews(r.Context(), placeID)
		if err != nil {
			log := logrus.WithError(err).WithField("place_id", placeID)
			if errors.Is(err, google.ErrDisabled) {
				render.JSON(w, r, ReviewsResponse{Enabled: false})
				return
			}
			if errors.Is(err, google.ErrUpstream) {
				log.Warn("Places API request failed")
				render.Status(r, http.StatusBadGateway)
				render.JSON(w, r, map[string]string{"error": "Failed to fetch reviews"})
				return
			}
			log.Error("Failed to fetch reviews")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		render.JSON(w, r, ReviewsResponse{Enabled: true, PlaceReviews: reviews})
	}
}
