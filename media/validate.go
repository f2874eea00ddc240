package media

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Validation error codes, mapped to HTTP statuses by the upload handler.
const (
	ValidationMissingFile     = "missing_file"
	ValidationUnsupportedType = "unsupported_type"
	ValidationTooLarge        = "too_large"
)

// ValidationError describes a rejected upload. It is reported before any
// storage or extraction work happens and is never retried automatically.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// allow-list of common raster image formats
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsRasterImage checks if the filename has a common raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// SniffMimeType detects the media type from the first bytes of the buffer.
// The declared Content-Type header is advisory only.
func SniffMimeType(data []byte) string {
	return http.DetectContentType(data)
}

// Validator enforces upload constraints before any asset is stored.
type Validator struct {
	MaxSizeBytes int64
}

func NewValidator(maxSizeBytes int64) *Validator {
	return &Validator{MaxSizeBytes: maxSizeBytes}
}

// Validate checks the selected file. It is deterministic: calling it twice on
// the same input yields the same result.
func (v *Validator) Validate(filename string, sizeBytes int64, mimeType string) *ValidationError {
	if filename == "" || sizeBytes == 0 {
		return &ValidationError{Code: ValidationMissingFile, Message: "no file provided"}
	}

	// normalize away charset parameters from sniffed/declared types
	mime := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if !allowedMimeTypes[mime] {
		return &ValidationError{
			Code:    ValidationUnsupportedType,
			Message: fmt.Sprintf("unsupported file type %q; expected a raster image", mime),
		}
	}

	if v.MaxSizeBytes > 0 && sizeBytes > v.MaxSizeBytes {
		return &ValidationError{
			Code:    ValidationTooLarge,
			Message: fmt.Sprintf("file size %d exceeds maximum of %d bytes", sizeBytes, v.MaxSizeBytes),
		}
	}

	return nil
}
