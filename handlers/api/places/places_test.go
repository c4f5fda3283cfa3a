package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amgst/vancegraphix.com.au-sub000/google"
)

type mockPlaces struct {
	enabled bool
	err     error
	gotID   string
}

func (m *mockPlaces) Enabled() bool { return m.enabled }

func (m *mockPlaces) Reviews(ctx context.Context, placeID string) (*google.PlaceReviews, error) {
	m.gotID = placeID
	if m.err != nil {
		return nil, m.err
	}
	return &google.PlaceReviews{Name: "Studio", Rating: 4.8, Reviews: []google.Review{{AuthorName: "Ana", Rating: 5}}}, nil
}

func TestHandleReviews_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleReviews(&mockPlaces{})(rec, httptest.NewRequest(http.MethodGet, "/api/places/reviews", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["enabled"] != false {
		t.Errorf("enabled = %v, want false", resp["enabled"])
	}
}

func TestHandleReviews_Success(t *testing.T) {
	m := &mockPlaces{enabled: true}
	rec := httptest.NewRecorder()
	HandleReviews(m)(rec, httptest.NewRequest(http.MethodGet, "/api/places/reviews?placeId=abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if m.gotID != "abc" {
		t.Errorf("placeId not forwarded: %q", m.gotID)
	}

	var resp struct {
		Enabled bool            `json:"enabled"`
		Name    string          `json:"name"`
		Reviews []google.Review `json:"reviews"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Enabled || resp.Name != "Studio" || len(resp.Reviews) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleReviews_UpstreamError(t *testing.T) {
	m := &mockPlaces{enabled: true, err: fmt.Errorf("%w: status 500", google.ErrUpstream)}
	rec := httptest.NewRecorder()
	HandleReviews(m)(rec, httptest.NewRequest(http.MethodGet, "/api/places/reviews", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadGateway)
	}
}
