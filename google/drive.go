package google

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var folderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type (
	// ImageRef is one image file in a Drive folder.
	ImageRef struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnailUrl"`
	}

	driveFile struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		MimeType      string `json:"mimeType"`
		ThumbnailLink string `json:"thumbnailLink"`
	}

	driveListResponse struct {
		NextPageToken string      `json:"nextPageToken"`
		Files         []driveFile `json:"files"`
	}
)

// Drive lists image files in public Drive folders.
type Drive struct {
	client  *Client
	apiKey  string
	baseURL string
}

func NewDrive(client *Client, apiKey, baseURL string) *Drive {
	return &Drive{
		client:  client,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *Drive) Enabled() bool {
	return d != nil && d.apiKey != ""
}

// ValidFolderID reports whether id is safe to embed in a Drive query.
func ValidFolderID(id string) bool {
	return folderIDPattern.MatchString(id)
}

func imageURL(id string) string {
	return "https://drive.google.com/thumbnail?id=" + url.QueryEscape(id) + "&sz=w1600"
}

// ListImages returns the images in folderID ordered by name, following
// pagination until the listing is complete.
func (d *Drive) ListImages(ctx context.Context, folderID string) ([]ImageRef, error) {
	if !d.Enabled() {
		return nil, ErrDisabled
	}
	if !ValidFolderID(folderID) {
		return nil, fmt.Errorf("invalid drive folder id %q", folderID)
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", folderID))
	q.Set("fields", "nextPageToken,files(id,name,mimeType,thumbnailLink)")
	q.Set("orderBy", "name")
	q.Set("pageSize", "100")
	q.Set("key", d.apiKey)

	images := []ImageRef{}
	for {
		var resp driveListResponse
		if err := d.client.getJSON(ctx, d.baseURL+"/drive/v3/files?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.Files {
			if !strings.HasPrefix(f.MimeType, "image/") {
				continue
			}
			img := ImageRef{
				ID:           f.ID,
				Name:         f.Name,
				URL:          imageURL(f.ID),
				ThumbnailURL: f.ThumbnailLink,
			}
			if img.ThumbnailURL == "" {
				img.ThumbnailURL = img.URL
			}
			images = append(images, img)
		}
		if resp.NextPageToken == "" {
			break
		}
		q.Set("pageToken", resp.NextPageToken)
	}

	logrus.WithFields(logrus.Fields{"folder_id": folderID, "count": len(images)}).Debug("Listed drive images")
	return images, nil
}
