package google

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

type (
	Review struct {
		AuthorName      string `json:"author_name"`
		AuthorURL       string `json:"author_url,omitempty"`
		ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
		Rating          int    `json:"rating"`
		Text            string `json:"text"`
		RelativeTime    string `json:"relative_time_description,omitempty"`
		Time            int64  `json:"time"`
	}

	PlaceReviews struct {
		Name             string   `json:"name"`
		Rating           float64  `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Reviews          []Review `json:"reviews"`
	}

	placeDetailsResponse struct {
		Result       PlaceReviews `json:"result"`
		Status       string       `json:"status"`
		ErrorMessage string       `json:"error_message"`
	}
)

// Places reads reviews from the Places Details API.
type Places struct {
	client  *Client
	apiKey  string
	baseURL string
	placeID string
}

func NewPlaces(client *Client, apiKey, baseURL, defaultPlaceID string) *Places {
	return &Places{
		client:  client,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		placeID: defaultPlaceID,
	}
}

func (p *Places) Enabled() bool {
	return p != nil && p.apiKey != ""
}

// Reviews returns name, rating and reviews for placeID, or for the configured
// place when placeID is empty.
func (p *Places) Reviews(ctx context.Context, placeID string) (*PlaceReviews, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}
	if placeID == "" {
		placeID = p.placeID
	}
	if placeID == "" {
		return nil, fmt.Errorf("no place id given and GOOGLE_PLACE_ID is not set")
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "name,rating,user_ratings_total,reviews")
	q.Set("key", p.apiKey)

	var resp placeDetailsResponse
	if err := p.client.getJSON(ctx, p.baseURL+"/maps/api/place/details/json?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		logrus.WithFields(logrus.Fields{"place_id": placeID, "status": resp.Status}).Warn("Places API returned an error status")
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}
	if resp.Result.Reviews == nil {
		resp.Result.Reviews = []Review{}
	}
	return &resp.Result, nil
}
