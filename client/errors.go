package client

import "fmt"

// ValidationError reports a submission rejected before any network activity
// (or, for missing coordinates, before the record-creation request). It is
// never retried automatically. ImageURL is set when an image was already
// stored before the gate failed, so a corrected retry can skip the upload.
type ValidationError struct {
	Field    string
	Message  string
	ImageURL string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// UploadError reports a failure while storing the image, before any tree
// record was created. The whole submission can be retried safely.
type UploadError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image upload failed: %v", e.Err)
	}
	return fmt.Sprintf("image upload failed (status %d): %s", e.StatusCode, e.Detail)
}

func (e *UploadError) Unwrap() error { return e.Err }

// RecordCreationError reports a failure creating the tree record after the
// image was already stored. It is surfaced distinctly from UploadError
// because the stored image is now an orphaned asset: ImageURL is retained so
// a retry can reference it without re-uploading.
type RecordCreationError struct {
	StatusCode int
	Detail     string
	ImageURL   string
	Err        error
}

func (e *RecordCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tree record creation failed (image retained at %s): %v", e.ImageURL, e.Err)
	}
	return fmt.Sprintf("tree record creation failed (status %d, image retained at %s): %s", e.StatusCode, e.ImageURL, e.Detail)
}

func (e *RecordCreationError) Unwrap() error { return e.Err }
