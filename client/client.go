// Package client implements the tree submission flow against the Pin-a-Tree
// REST API: upload the image first, then create the record referencing the
// stored asset. Failures in the two steps are reported as distinct error
// types so callers can retry just the failed half.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pinatree/pinatreebackend/geo"
	"github.com/pinatree/pinatreebackend/models"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for the given API base URL (e.g. "http://host:8080")
// using the given bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadResult mirrors the server's upload response.
type UploadResult struct {
	ID            string        `json:"id"`
	ImageURL      string        `json:"image_url"`
	PreviewURL    *string       `json:"preview_url,omitempty"`
	PreviewStatus string        `json:"preview_status"`
	HasGPS        bool          `json:"has_gps"`
	GPS           *geo.Location `json:"gps,omitempty"`
	CameraMake    string        `json:"camera_make,omitempty"`
	CameraModel   string        `json:"camera_model,omitempty"`
}

// TreeRecord mirrors the server's created-tree response.
type TreeRecord struct {
	models.Tree
	Owner models.OwnerSummary `json:"owner"`
}

// Submission is the assembled form data for one tree.
type Submission struct {
	Name        string
	Species     string
	Description string
	DatePlanted string // YYYY-MM-DD
	Address     string
	Status      string
	Tags        []string

	// manual pin placement; when nil, coordinates extracted from the image
	// metadata are used instead
	Latitude  *float64
	Longitude *float64

	// the image to upload
	ImageFilename string
	ImageData     io.Reader

	// ImageURL retained from a previous failed submission; when set the
	// upload step is skipped entirely
	ImageURL string
}

func apiErrorDetail(body []byte) string {
	var envelope struct {
		Errors []struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		return envelope.Errors[0].Detail
	}
	return strings.TrimSpace(string(body))
}

// UploadImage stores the image and returns the server's extraction result.
func (c *Client) UploadImage(ctx context.Context, filename string, data io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, &UploadError{Err: fmt.Errorf("failed to build multipart body: %w", err)}
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, &UploadError{Err: fmt.Errorf("failed to read image data: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &UploadError{Err: fmt.Errorf("failed to finalize multipart body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &buf)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UploadError{Err: fmt.Errorf("failed to read upload response: %w", err)}
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &UploadError{StatusCode: resp.StatusCode, Detail: apiErrorDetail(body)}
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &UploadError{Err: fmt.Errorf("failed to decode upload response: %w", err)}
	}
	return &result, nil
}

type TreeCreate struct {
	Name        string   `json:"name"`
	Species     *string  `json:"species,omitempty"`
	Description *string  `json:"description,omitempty"`
	DatePlanted *string  `json:"date_planted,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     *string  `json:"address,omitempty"`
	ImageURL    string   `json:"image_url"`
	Status      *string  `json:"status,omitempty"`
	Tags        []string `json:"tags"`
}

// CreateTree creates the record referencing an already-stored image.
func (c *Client) CreateTree(ctx context.Context, payload TreeCreate) (*TreeRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &RecordCreationError{ImageURL: payload.ImageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/trees", bytes.NewReader(body))
	if err != nil {
		return nil, &RecordCreationError{ImageURL: payload.ImageURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RecordCreationError{ImageURL: payload.ImageURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RecordCreationError{ImageURL: payload.ImageURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &RecordCreationError{StatusCode: resp.StatusCode, Detail: apiErrorDetail(respBody), ImageURL: payload.ImageURL}
	}

	var record TreeRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, &RecordCreationError{ImageURL: payload.ImageURL, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &record, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SubmitTree runs the full flow: gate required fields, upload the image
// (unless a retained ImageURL skips that step), resolve coordinates from
// manual placement or the extraction result, then create the record.
//
// On *RecordCreationError the image is already stored; setting
// Submission.ImageURL from the error and resubmitting avoids re-uploading.
func (c *Client) SubmitTree(ctx context.Context, sub Submission) (*TreeRecord, error) {
	if strings.TrimSpace(sub.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if strings.TrimSpace(sub.Species) == "" {
		return nil, &ValidationError{Field: "species", Message: "species must not be empty"}
	}
	if (sub.Latitude == nil) != (sub.Longitude == nil) {
		return nil, &ValidationError{Field: "coordinates", Message: "latitude and longitude must be supplied together"}
	}
	if sub.ImageURL == "" && sub.ImageData == nil {
		return nil, &ValidationError{Field: "image", Message: "an image is required"}
	}

	imageURL := sub.ImageURL
	lat, lng := sub.Latitude, sub.Longitude

	if imageURL == "" {
		uploaded, err := c.UploadImage(ctx, sub.ImageFilename, sub.ImageData)
		if err != nil {
			return nil, err
		}
		imageURL = uploaded.ImageURL
		if lat == nil && uploaded.HasGPS && uploaded.GPS != nil {
			lat = &uploaded.GPS.Latitude
			lng = &uploaded.GPS.Longitude
		}
	}

	// a record with no coordinates at all is invalid and must not be
	// submitted; the stored image is retained for a corrected retry
	if lat == nil || lng == nil {
		return nil, &ValidationError{
			Field:    "coordinates",
			Message:  "no GPS data found in the image; place a pin manually and retry",
			ImageURL: imageURL,
		}
	}

	return c.CreateTree(ctx, TreeCreate{
		Name:        sub.Name,
		Species:     optional(sub.Species),
		Description: optional(sub.Description),
		DatePlanted: optional(sub.DatePlanted),
		Latitude:    *lat,
		Longitude:   *lng,
		Address:     optional(sub.Address),
		ImageURL:    imageURL,
		Status:      optional(sub.Status),
		Tags:        sub.Tags,
	})
}
