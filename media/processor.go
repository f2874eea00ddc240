package media

import (
	"fmt"
	"image"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	PreviewFileExtension = ".jpg"
)

// Processor handles media transformations like preview generation. it relies
// on a Store implementation for saving the results.
type Processor struct {
	store   Store
	maxW    int
	maxH    int
	quality int
}

func NewProcessor(store Store, maxWidth, maxHeight, quality int) *Processor {
	return &Processor{store: store, maxW: maxWidth, maxH: maxHeight, quality: quality}
}

// SaveOriginal stores an uploaded image under a UUID filename, preserving the
// original extension. returns the relative path within the store.
func (p *Processor) SaveOriginal(originalFilename string, data io.Reader) (string, error) {
	assetUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for upload: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == "" {
		ext = ".jpg"
	}
	targetFilename := assetUUID.String() + ext

	savedRelPath, err := p.store.Save(AssetTypeOriginal, targetFilename, data)
	if err != nil {
		return "", fmt.Errorf("failed to save original via store: %w", err)
	}
	return savedRelPath, nil
}

// GeneratePreview creates a downscaled copy where neither dimension exceeds
// the configured bounds, preserving aspect ratio, re-encoded as JPEG at the
// configured quality. returns relative path to the saved preview or error.
func (p *Processor) GeneratePreview(originalImg image.Image, originalRelPath string) (string, error) {
	origBounds := originalImg.Bounds()
	if origBounds.Dx() <= 0 || origBounds.Dy() <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", origBounds.Dx(), origBounds.Dy())
	}

	// Fit never upscales and keeps aspect ratio
	preview := imaging.Fit(originalImg, p.maxW, p.maxH, imaging.Lanczos)

	reader, writer := io.Pipe()
	go func() {
		defer writer.Close()
		err := imaging.Encode(writer, preview, imaging.JPEG, imaging.JPEGQuality(p.quality))
		if err != nil {
			log.Printf("processor: Failed to encode preview: %v", err)
			writer.CloseWithError(fmt.Errorf("preview encoding failed: %w", err))
		}
	}()

	previewUUID, err := uuid.NewRandom()
	if err != nil {
		reader.Close()
		return "", fmt.Errorf("failed to generate UUID for preview: %w", err)
	}
	targetFilename := previewUUID.String() + PreviewFileExtension

	savedRelPath, err := p.store.Save(AssetTypePreview, targetFilename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to save preview via store: %w", err)
	}

	log.Printf("processor: Generated and saved preview for %s at %s", originalRelPath, savedRelPath)
	return savedRelPath, nil
}

// DecodeOriginal loads a stored original back into memory for processing.
func (p *Processor) DecodeOriginal(relativePath string) (image.Image, error) {
	reader, _, err := p.store.Get(relativePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	img, err := imaging.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode original %s: %w", relativePath, err)
	}
	return img, nil
}

// DeleteAsset removes a stored asset, tolerating already-missing files.
func (p *Processor) DeleteAsset(relativePath string) error {
	if relativePath == "" {
		return nil
	}
	return p.store.Delete(relativePath)
}
