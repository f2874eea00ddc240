package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pinatree/pinatreebackend/database"
	"github.com/pinatree/pinatreebackend/geo"
	"github.com/pinatree/pinatreebackend/media"
	"github.com/pinatree/pinatreebackend/models"
	"github.com/pinatree/pinatreebackend/repository"
	"gorm.io/gorm"
)

type TreeHandler struct {
	Trees     repository.TreeRepositoryInterface
	Uploads   repository.UploadRepositoryInterface
	SQLDB     *sql.DB // raw handle for the squirrel-built map query
	Processor *media.Processor
}

// TreeResponse decorates the tree record with its owner summary.
type TreeResponse struct {
	models.Tree
	Owner models.OwnerSummary `json:"owner"`
}

type TreePayload struct {
	Name        *string  `json:"name"`
	Species     *string  `json:"species"`
	Description *string  `json:"description"`
	DatePlanted *string  `json:"date_planted"` // YYYY-MM-DD
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     *string  `json:"address"`
	ImageURL    *string  `json:"image_url"`
	Status      *string  `json:"status"`
	Tags        []string `json:"tags"`
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func parsePlantingDate(s string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTree persists a tree record referencing an already-stored upload.
// Coordinates must be present, either carried over from extraction or placed
// manually; a record with no coordinates is invalid and rejected before any
// write happens.
func (h *TreeHandler) CreateTree(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	var payload TreePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body: "+err.Error())
		return
	}

	if payload.Name == nil || strings.TrimSpace(*payload.Name) == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "name is required")
		return
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "latitude and longitude are required; place a pin manually if the photo had no GPS data")
		return
	}
	if !geo.ValidLatitude(*payload.Latitude) || !geo.ValidLongitude(*payload.Longitude) {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "latitude must be in [-90,90] and longitude in [-180,180]")
		return
	}
	if payload.ImageURL == nil || *payload.ImageURL == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "image_url is required")
		return
	}

	// the image reference must point at a successfully stored asset
	upload, err := h.Uploads.GetByOriginalPath(AssetPathFromURL(*payload.ImageURL))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "unknown_image", "image_url does not reference a stored upload")
		return
	}
	if upload.UserID != user.ID {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "image_url references another user's upload")
		return
	}

	status := models.TreeStatusHealthy
	if payload.Status != nil && *payload.Status != "" {
		if !models.ValidTreeStatus(*payload.Status) {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "status must be one of: healthy, flowering, diseased, dead")
			return
		}
		status = *payload.Status
	}

	tree := &models.Tree{
		Name:      strings.TrimSpace(*payload.Name),
		Species:   payload.Species,
		Latitude:  *payload.Latitude,
		Longitude: *payload.Longitude,
		Address:   payload.Address,
		ImageURL:  *payload.ImageURL,
		Status:    status,
		Tags:      normalizeTags(payload.Tags),
		UserID:    user.ID,

		// EXIF-derived fields ride along from the upload
		Altitude:    upload.Altitude,
		CapturedAt:  upload.CapturedAt,
		CameraMake:  upload.CameraMake,
		CameraModel: upload.CameraModel,
	}
	if payload.Description != nil {
		tree.Description = payload.Description
	}
	if payload.DatePlanted != nil && *payload.DatePlanted != "" {
		planted, err := parsePlantingDate(*payload.DatePlanted)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "date_planted must be formatted YYYY-MM-DD")
			return
		}
		tree.DatePlanted = planted
	}
	if upload.PreviewPath != nil {
		previewURL := AssetURL(*upload.PreviewPath)
		tree.PreviewURL = &previewURL
	}

	if err := h.Trees.Create(tree); err != nil {
		log.Printf("tree: failed to create record for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "create_failed", "Failed to create tree record")
		return
	}

	writeJSON(w, http.StatusCreated, TreeResponse{Tree: *tree, Owner: user.Summary()})
}

func parseFloatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &val, nil
}

// ListTrees is the public map listing with optional bounding-box, status and
// tag filters.
func (h *TreeHandler) ListTrees(w http.ResponseWriter, r *http.Request) {
	filters := database.TreeMapFilters{
		Status: r.URL.Query().Get("status"),
		Tag:    strings.ToLower(r.URL.Query().Get("tag")),
	}
	if filters.Status != "" && !models.ValidTreeStatus(filters.Status) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_filter", "status must be one of: healthy, flowering, diseased, dead")
		return
	}

	var err error
	for name, dest := range map[string]**float64{
		"min_lat": &filters.MinLat,
		"max_lat": &filters.MaxLat,
		"min_lng": &filters.MinLng,
		"max_lng": &filters.MaxLng,
	} {
		if *dest, err = parseFloatParam(r, name); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_filter", name+" must be a number")
			return
		}
	}

	markers, err := database.ListTreeMarkers(h.SQLDB, filters)
	if err != nil {
		log.Printf("tree: map listing failed: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to list trees")
		return
	}
	writeJSON(w, http.StatusOK, markers)
}

func (h *TreeHandler) getTreeFromURL(r *http.Request) (*models.Tree, error) {
	idStr := chi.URLParam(r, "tree_id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	return h.Trees.GetByID(uint(id))
}

func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.getTreeFromURL(r)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Tree not found")
		} else {
			log.Printf("tree: fetch failed: %v", err)
			WriteAPIError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch tree")
		}
		return
	}

	resp := TreeResponse{Tree: *tree}
	if tree.User != nil {
		resp.Owner = tree.User.Summary()
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateTree applies a partial update. Only the owner may modify a record.
func (h *TreeHandler) UpdateTree(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	tree, err := h.getTreeFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Tree not found")
		return
	}
	if tree.UserID != user.ID {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "Only the owner may modify a tree")
		return
	}

	var payload TreePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body: "+err.Error())
		return
	}

	if payload.Name != nil {
		if strings.TrimSpace(*payload.Name) == "" {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "name cannot be empty")
			return
		}
		tree.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Latitude != nil {
		if !geo.ValidLatitude(*payload.Latitude) {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "latitude must be in [-90,90]")
			return
		}
		tree.Latitude = *payload.Latitude
	}
	if payload.Longitude != nil {
		if !geo.ValidLongitude(*payload.Longitude) {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "longitude must be in [-180,180]")
			return
		}
		tree.Longitude = *payload.Longitude
	}
	if payload.Status != nil {
		if !models.ValidTreeStatus(*payload.Status) {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "status must be one of: healthy, flowering, diseased, dead")
			return
		}
		tree.Status = *payload.Status
	}
	if payload.Species != nil {
		tree.Species = payload.Species
	}
	if payload.Description != nil {
		tree.Description = payload.Description
	}
	if payload.Address != nil {
		tree.Address = payload.Address
	}
	if payload.DatePlanted != nil && *payload.DatePlanted != "" {
		planted, err := parsePlantingDate(*payload.DatePlanted)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "validation_failed", "date_planted must be formatted YYYY-MM-DD")
			return
		}
		tree.DatePlanted = planted
	}
	if payload.Tags != nil {
		tree.Tags = normalizeTags(payload.Tags)
	}

	if err := h.Trees.Update(tree); err != nil {
		log.Printf("tree: update failed for tree %d: %v", tree.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "update_failed", "Failed to update tree")
		return
	}

	writeJSON(w, http.StatusOK, TreeResponse{Tree: *tree, Owner: user.Summary()})
}

// DeleteTree removes the record and its stored assets. Only the owner may
// delete a record.
func (h *TreeHandler) DeleteTree(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	tree, err := h.getTreeFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Tree not found")
		return
	}
	if tree.UserID != user.ID {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "Only the owner may delete a tree")
		return
	}

	if err := h.Trees.Delete(tree.ID); err != nil {
		log.Printf("tree: delete failed for tree %d: %v", tree.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete tree")
		return
	}

	// the upload may be shared by other live trees; clean up the stored
	// assets only once nothing references the image anymore
	refs, err := h.Trees.CountReferencingImage(tree.ImageURL)
	if err != nil {
		log.Printf("tree: failed to count references for %s: %v", tree.ImageURL, err)
		refs = 1
	}
	if refs > 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Tree deleted"})
		return
	}

	// best-effort cleanup of the stored assets behind the record
	if upload, err := h.Uploads.GetByOriginalPath(AssetPathFromURL(tree.ImageURL)); err == nil {
		if upload.PreviewPath != nil {
			if err := h.Processor.DeleteAsset(*upload.PreviewPath); err != nil {
				log.Printf("tree: failed to delete preview for upload %s: %v", upload.ID, err)
			}
		}
		if err := h.Processor.DeleteAsset(upload.OriginalPath); err != nil {
			log.Printf("tree: failed to delete original for upload %s: %v", upload.ID, err)
		}
		if err := h.Uploads.Delete(upload.ID); err != nil {
			log.Printf("tree: failed to delete upload record %s: %v", upload.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Tree deleted"})
}
