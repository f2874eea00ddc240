package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/pinatree/pinatreebackend/config"
	"github.com/pinatree/pinatreebackend/database"
	"github.com/pinatree/pinatreebackend/geo"
	"github.com/pinatree/pinatreebackend/handlers"
	"github.com/pinatree/pinatreebackend/media"
	"github.com/pinatree/pinatreebackend/repository"
	"github.com/pinatree/pinatreebackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.UploadsPath, cfg.PreviewsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeOriginal: filepath.Base(cfg.UploadsPath),
		media.AssetTypePreview:  filepath.Base(cfg.PreviewsPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore, cfg.PreviewMaxWidth, cfg.PreviewMaxHeight, cfg.PreviewQuality)
	validator := media.NewValidator(cfg.MaxUploadSizeBytes)

	userRepo := repository.NewGormUserRepository(db)
	treeRepo := repository.NewGormTreeRepository(db)
	uploadRepo := repository.NewGormUploadRepository(db)

	extractor := geo.NewDefaultOrchestrator(geo.ExtractorConfig{
		UseMock:       cfg.UseMockExtractor,
		MockLatitude:  cfg.MockLatitude,
		MockLongitude: cfg.MockLongitude,
	})

	log.Printf("Initializing preview worker pool (Workers: %d, Queue Size: %d)...", cfg.NumPreviewWorkers, cfg.PreviewQueueSize)
	previewProc := workers.NewPreviewProcessor(uploadRepo, mediaProcessor, cfg.PreviewQueueSize, cfg.NumPreviewWorkers)
	defer previewProc.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing uploads in: %s", cfg.UploadsPath)
	log.Printf("Preview max size: %dx%d @ q%d", cfg.PreviewMaxWidth, cfg.PreviewMaxHeight, cfg.PreviewQuality)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authHandler := handlers.NewAuthHandler(userRepo, cfg)
	uploadHandler := &handlers.UploadHandler{
		Uploads:     uploadRepo,
		Trees:       treeRepo,
		Cfg:         cfg,
		Validator:   validator,
		Processor:   mediaProcessor,
		Extractor:   extractor,
		PreviewProc: previewProc,
	}
	treeHandler := &handlers.TreeHandler{
		Trees:     treeRepo,
		Uploads:   uploadRepo,
		SQLDB:     sqlDB,
		Processor: mediaProcessor,
	}

	authed := func(h http.HandlerFunc) http.Handler {
		return handlers.AuthMiddleware(userRepo, cfg.JWTSecret, h)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Method(http.MethodGet, "/me", authed(authHandler.CurrentUser))
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Method(http.MethodPost, "/", authed(uploadHandler.UploadImage))
			r.Method(http.MethodGet, "/", authed(uploadHandler.ListUploads))
			r.Method(http.MethodDelete, "/{upload_id}", authed(uploadHandler.DeleteUpload))
		})

		r.Route("/trees", func(r chi.Router) {
			r.Get("/", treeHandler.ListTrees)
			r.Method(http.MethodPost, "/", authed(treeHandler.CreateTree))
			r.Route("/{tree_id}", func(r chi.Router) {
				r.Get("/", treeHandler.GetTree)
				r.Method(http.MethodPut, "/", authed(treeHandler.UpdateTree))
				r.Method(http.MethodDelete, "/", authed(treeHandler.DeleteTree))
			})
		})

		originalsSubDir := filepath.Base(cfg.UploadsPath)
		r.Get("/"+originalsSubDir+"/*", handlers.AssetServer(cfg.MediaStoragePath, originalsSubDir))
		log.Printf("Registered originals server at /api/%s/*", originalsSubDir)

		previewsSubDir := filepath.Base(cfg.PreviewsPath)
		r.Get("/"+previewsSubDir+"/*", handlers.AssetServer(cfg.MediaStoragePath, previewsSubDir))
		log.Printf("Registered previews server at /api/%s/*", previewsSubDir)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
