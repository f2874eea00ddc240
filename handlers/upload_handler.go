package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pinatree/pinatreebackend/config"
	"github.com/pinatree/pinatreebackend/geo"
	"github.com/pinatree/pinatreebackend/media"
	"github.com/pinatree/pinatreebackend/models"
	"github.com/pinatree/pinatreebackend/repository"
	"github.com/pinatree/pinatreebackend/workers"
)

// multipart encoding overhead allowed on top of the image size limit
const multipartOverheadBytes = 1 << 20

type UploadHandler struct {
	Uploads     repository.UploadRepositoryInterface
	Trees       repository.TreeRepositoryInterface
	Cfg         config.Config
	Validator   *media.Validator
	Processor   *media.Processor
	Extractor   *geo.Orchestrator
	PreviewProc *workers.PreviewProcessor
}

// UploadResponse is returned on upload and in upload listings. The GPS block
// is present only when both coordinates were unambiguously resolved.
type UploadResponse struct {
	ID            string        `json:"id"`
	ImageURL      string        `json:"image_url"`
	PreviewURL    *string       `json:"preview_url,omitempty"`
	PreviewStatus string        `json:"preview_status"`
	Filename      string        `json:"filename"`
	SizeBytes     int64         `json:"size_bytes"`
	MimeType      string        `json:"mime_type"`
	HasGPS        bool          `json:"has_gps"`
	GPS           *geo.Location `json:"gps,omitempty"`
	CameraMake    string        `json:"camera_make,omitempty"`
	CameraModel   string        `json:"camera_model,omitempty"`
}

// AssetURL maps a store-relative path to its public URL.
func AssetURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return "/api/" + relPath
}

// AssetPathFromURL is the inverse of AssetURL.
func AssetPathFromURL(url string) string {
	return strings.TrimPrefix(url, "/api/")
}

func uploadToResponse(u *models.Upload) UploadResponse {
	resp := UploadResponse{
		ID:            u.ID,
		ImageURL:      AssetURL(u.OriginalPath),
		PreviewStatus: u.PreviewStatus,
		Filename:      u.Filename,
		SizeBytes:     u.SizeBytes,
		MimeType:      u.MimeType,
		HasGPS:        u.HasGPS,
	}
	if u.PreviewPath != nil {
		previewURL := AssetURL(*u.PreviewPath)
		resp.PreviewURL = &previewURL
	}
	if u.HasGPS && u.Latitude != nil && u.Longitude != nil {
		resp.GPS = &geo.Location{
			Latitude:   *u.Latitude,
			Longitude:  *u.Longitude,
			Altitude:   u.Altitude,
			CapturedAt: u.CapturedAt,
		}
	}
	if u.CameraMake != nil {
		resp.CameraMake = *u.CameraMake
	}
	if u.CameraModel != nil {
		resp.CameraModel = *u.CameraModel
	}
	return resp
}

// UploadImage validates and stores a multipart image, runs the metadata
// extraction chain and queues preview generation. Extraction failures are
// invisible: the response simply reports has_gps=false and the frontend falls
// back to manual pin placement.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadSizeBytes+multipartOverheadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, media.ValidationTooLarge,
				fmt.Sprintf("request exceeds maximum upload size of %d bytes", h.Cfg.MaxUploadSizeBytes))
			return
		}
		WriteAPIError(w, http.StatusBadRequest, media.ValidationMissingFile, "multipart field 'image' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "read_failed", "Failed to read uploaded file")
		return
	}

	mimeType := media.SniffMimeType(data)
	if verr := h.Validator.Validate(header.Filename, int64(len(data)), mimeType); verr != nil {
		status := http.StatusBadRequest
		switch verr.Code {
		case media.ValidationUnsupportedType:
			status = http.StatusUnsupportedMediaType
		case media.ValidationTooLarge:
			status = http.StatusRequestEntityTooLarge
		}
		WriteAPIError(w, status, verr.Code, verr.Message)
		return
	}

	relPath, err := h.Processor.SaveOriginal(header.Filename, bytes.NewReader(data))
	if err != nil {
		log.Printf("upload: failed to store original for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "storage_failed", "Failed to store uploaded image")
		return
	}

	// extraction never hard-fails; a total miss degrades to has_gps=false
	result := h.Extractor.Extract(data)

	upload := &models.Upload{
		ID:            uuid.New().String(),
		OriginalPath:  relPath,
		Filename:      header.Filename,
		SizeBytes:     int64(len(data)),
		MimeType:      mimeType,
		PreviewStatus: models.PreviewStatusPending,
		UserID:        user.ID,
	}
	if result.HasGPS() {
		upload.HasGPS = true
		upload.Latitude = &result.Location.Latitude
		upload.Longitude = &result.Location.Longitude
		upload.Altitude = result.Location.Altitude
		upload.CapturedAt = result.Location.CapturedAt
	}
	if result.CameraMake != "" {
		upload.CameraMake = &result.CameraMake
	}
	if result.CameraModel != "" {
		upload.CameraModel = &result.CameraModel
	}

	if err := h.Uploads.Create(upload); err != nil {
		// roll the stored file back so a failed record doesn't leave an
		// untracked asset on disk
		if delErr := h.Processor.DeleteAsset(relPath); delErr != nil {
			log.Printf("upload: failed to clean up asset %s after DB error: %v", relPath, delErr)
		}
		log.Printf("upload: failed to create upload record for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "record_failed", "Failed to record uploaded image")
		return
	}

	h.PreviewProc.QueueJob(workers.PreviewJob{
		UploadID:         upload.ID,
		OriginalRelPath:  upload.OriginalPath,
		OriginalFilename: upload.Filename,
	})

	writeJSON(w, http.StatusCreated, uploadToResponse(upload))
}

// ListUploads returns the caller's uploads, natural-sorted by filename so
// sequences like IMG_2.jpg / IMG_10.jpg order sensibly.
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	uploads, err := h.Uploads.ListByUser(user.ID)
	if err != nil {
		log.Printf("upload: failed to list uploads for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to list uploads")
		return
	}

	keys := make([]string, 0, len(uploads))
	byKey := make(map[string]*models.Upload, len(uploads))
	for i := range uploads {
		// the id suffix keeps duplicate filenames distinct
		key := uploads[i].Filename + "\x00" + uploads[i].ID
		keys = append(keys, key)
		byKey[key] = &uploads[i]
	}
	natsort.Sort(keys)

	responses := make([]UploadResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, uploadToResponse(byKey[key]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// DeleteUpload discards an orphaned asset. Uploads referenced by a live tree
// cannot be removed.
func (h *UploadHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	uploadID := chi.URLParam(r, "upload_id")
	upload, err := h.Uploads.GetByID(uploadID)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Upload not found")
		return
	}
	if upload.UserID != user.ID {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "Only the owner may delete an upload")
		return
	}

	refs, err := h.Trees.CountReferencingImage(AssetURL(upload.OriginalPath))
	if err != nil {
		log.Printf("upload: failed to count references for upload %s: %v", uploadID, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete upload")
		return
	}
	if refs > 0 {
		WriteAPIError(w, http.StatusConflict, "in_use", "Upload is referenced by an existing tree")
		return
	}

	if upload.PreviewPath != nil {
		if err := h.Processor.DeleteAsset(*upload.PreviewPath); err != nil {
			log.Printf("upload: failed to delete preview %s: %v", *upload.PreviewPath, err)
		}
	}
	if err := h.Processor.DeleteAsset(upload.OriginalPath); err != nil {
		log.Printf("upload: failed to delete original %s: %v", upload.OriginalPath, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete stored image")
		return
	}

	if err := h.Uploads.Delete(uploadID); err != nil {
		log.Printf("upload: failed to delete upload record %s: %v", uploadID, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete upload record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Upload deleted"})
}
