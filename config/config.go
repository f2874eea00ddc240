package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultUploadsSubDir  = "originals"
	DefaultPreviewsSubDir = "previews"
)

const (
	defaultMaxUploadSizeMB   = 10
	defaultPreviewMaxWidth   = 800
	defaultPreviewMaxHeight  = 800
	defaultPreviewQuality    = 80
	defaultPreviewQueueSize  = 200
	defaultNumPreviewWorkers = 4
	defaultJWTExpiryHours    = 24
)

type Config struct {
	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored assets (originals, previews)
	UploadsPath      string // full-calculated path for original uploads
	PreviewsPath     string // full-calculated path for generated previews

	// upload constraints
	MaxUploadSizeBytes int64

	// preview generation settings
	PreviewMaxWidth  int
	PreviewMaxHeight int
	PreviewQuality   int

	// worker settings
	PreviewQueueSize  int
	NumPreviewWorkers int

	// auth settings
	JWTSecret      string
	JWTExpiryHours int

	// extraction settings
	UseMockExtractor bool // serve deterministic GPS data instead of parsing EXIF
	MockLatitude     float64
	MockLongitude    float64

	// CORS allowed origin for the frontend
	FrontendOrigin string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "pinatree.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	uploadsSubDir := getEnvOrDefault("UPLOADS_SUBDIR", DefaultUploadsSubDir)
	absUploadsPath := filepath.Join(absMediaStorage, uploadsSubDir)

	previewsSubDir := getEnvOrDefault("PREVIEWS_SUBDIR", DefaultPreviewsSubDir)
	absPreviewsPath := filepath.Join(absMediaStorage, previewsSubDir)

	maxUploadMB := getEnvIntOrDefault("MAX_UPLOAD_SIZE_MB", defaultMaxUploadSizeMB)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		DatabasePath:       dbPath,
		MediaStoragePath:   absMediaStorage,
		UploadsPath:        absUploadsPath,
		PreviewsPath:       absPreviewsPath,
		MaxUploadSizeBytes: int64(maxUploadMB) << 20,
		PreviewMaxWidth:    getEnvIntOrDefault("PREVIEW_MAX_WIDTH", defaultPreviewMaxWidth),
		PreviewMaxHeight:   getEnvIntOrDefault("PREVIEW_MAX_HEIGHT", defaultPreviewMaxHeight),
		PreviewQuality:     getEnvIntOrDefault("PREVIEW_QUALITY", defaultPreviewQuality),
		PreviewQueueSize:   getEnvIntOrDefault("PREVIEW_QUEUE_SIZE", defaultPreviewQueueSize),
		NumPreviewWorkers:  getEnvIntOrDefault("NUM_PREVIEW_WORKERS", defaultNumPreviewWorkers),
		JWTSecret:          jwtSecret,
		JWTExpiryHours:     getEnvIntOrDefault("JWT_EXPIRY_HOURS", defaultJWTExpiryHours),
		UseMockExtractor:   getEnvBoolOrDefault("USE_MOCK_EXTRACTOR", false),
		MockLatitude:       getEnvFloatOrDefault("MOCK_LATITUDE", 40.0),
		MockLongitude:      getEnvFloatOrDefault("MOCK_LONGITUDE", -74.006),
		FrontendOrigin:     getEnvOrDefault("FRONTEND_ORIGIN", "http://localhost:5173"),
	}

	return cfg, nil
}
