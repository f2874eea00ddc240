package repository

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pinatree/pinatreebackend/database"
	"github.com/pinatree/pinatreebackend/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Email: username + "@example.com", Username: username}
	if err := user.SetPassword("longenough"); err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := NewGormUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestUserRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormUserRepository(db)
	user := seedUser(t, db, "alice")

	byID, err := repo.GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("unexpected username %q", byID.Username)
	}

	if _, err := repo.GetByUsername("alice"); err != nil {
		t.Errorf("GetByUsername failed: %v", err)
	}
	if _, err := repo.GetByEmail("alice@example.com"); err != nil {
		t.Errorf("GetByEmail failed: %v", err)
	}
	if _, err := repo.GetByID(9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	// unique constraints on email and username
	dup := &models.User{Email: "alice@example.com", Username: "alice2", PasswordHash: "x"}
	if err := repo.Create(dup); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	userRepo := NewGormUserRepository(db)
	treeRepo := NewGormTreeRepository(db)
	uploadRepo := NewGormUploadRepository(db)

	user := seedUser(t, db, "bob")
	if err := uploadRepo.Create(&models.Upload{
		ID: "up1", OriginalPath: "originals/up1.jpg", Filename: "a.jpg",
		MimeType: "image/jpeg", PreviewStatus: models.PreviewStatusPending, UserID: user.ID,
	}); err != nil {
		t.Fatalf("failed to seed upload: %v", err)
	}
	if err := treeRepo.Create(&models.Tree{
		Name: "t", Latitude: 1, Longitude: 2, ImageURL: "/api/originals/up1.jpg", UserID: user.ID,
	}); err != nil {
		t.Fatalf("failed to seed tree: %v", err)
	}

	if err := userRepo.Delete(user.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := userRepo.GetByID(user.ID); err == nil {
		t.Error("user still present after delete")
	}
	trees, err := treeRepo.ListByUser(user.ID)
	if err != nil || len(trees) != 0 {
		t.Errorf("trees not removed with their owner: %v %v", trees, err)
	}
	uploads, err := uploadRepo.ListByUser(user.ID)
	if err != nil || len(uploads) != 0 {
		t.Errorf("uploads not removed with their owner: %v %v", uploads, err)
	}
}

func TestTreeRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormTreeRepository(db)
	user := seedUser(t, db, "carol")

	species := "Quercus robur"
	tree := &models.Tree{
		Name: "Park Oak", Species: &species, Latitude: 52.1, Longitude: 4.3,
		ImageURL: "/api/originals/x.jpg", Status: models.TreeStatusHealthy,
		Tags: []string{"native", "shade"}, UserID: user.ID,
	}
	if err := repo.Create(tree); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(tree.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.User == nil || got.User.Username != "carol" {
		t.Error("owner not preloaded")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "native" {
		t.Errorf("tags did not survive the JSON serializer: %v", got.Tags)
	}

	got.Status = models.TreeStatusDiseased
	if err := repo.Update(got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	refetched, err := repo.GetByID(tree.ID)
	if err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if refetched.Status != models.TreeStatusDiseased {
		t.Errorf("status not persisted: %q", refetched.Status)
	}

	count, err := repo.CountReferencingImage("/api/originals/x.jpg")
	if err != nil || count != 1 {
		t.Errorf("CountReferencingImage: got %d, %v", count, err)
	}

	if err := repo.Delete(tree.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(tree.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
	// soft delete keeps the row out of reference counting too
	count, err = repo.CountReferencingImage("/api/originals/x.jpg")
	if err != nil || count != 0 {
		t.Errorf("deleted tree still counted: %d, %v", count, err)
	}
}

func TestUploadRepository_PreviewLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormUploadRepository(db)
	user := seedUser(t, db, "dave")

	up := &models.Upload{
		ID: "u1", OriginalPath: "originals/u1.jpg", Filename: "oak.jpg",
		SizeBytes: 100, MimeType: "image/jpeg",
		PreviewStatus: models.PreviewStatusPending, UserID: user.ID,
	}
	if err := repo.Create(up); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := repo.GetByOriginalPath("originals/u1.jpg"); err != nil {
		t.Fatalf("GetByOriginalPath failed: %v", err)
	}

	if err := repo.MarkPreviewProcessing("u1"); err != nil {
		t.Fatalf("MarkPreviewProcessing failed: %v", err)
	}

	previewPath := "previews/p1.jpg"
	if err := repo.SetPreviewResult("u1", &previewPath, nil); err != nil {
		t.Fatalf("SetPreviewResult failed: %v", err)
	}
	got, err := repo.GetByID("u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PreviewStatus != models.PreviewStatusDone {
		t.Errorf("expected done status, got %q", got.PreviewStatus)
	}
	if got.PreviewPath == nil || *got.PreviewPath != previewPath {
		t.Errorf("preview path not stored: %v", got.PreviewPath)
	}

	// a later failure overwrites status and records the error
	if err := repo.SetPreviewResult("u1", nil, errors.New("decode failed")); err != nil {
		t.Fatalf("SetPreviewResult (error) failed: %v", err)
	}
	got, err = repo.GetByID("u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PreviewStatus != models.PreviewStatusError || got.PreviewError == nil {
		t.Errorf("error outcome not recorded: %q %v", got.PreviewStatus, got.PreviewError)
	}

	// duplicate original paths are rejected
	dup := &models.Upload{
		ID: "u2", OriginalPath: "originals/u1.jpg", Filename: "b.jpg",
		MimeType: "image/jpeg", PreviewStatus: models.PreviewStatusPending, UserID: user.ID,
	}
	if err := repo.Create(dup); err == nil {
		t.Error("duplicate original path accepted")
	}

	if err := repo.Delete("u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID("u1"); err == nil {
		t.Error("upload still present after delete")
	}
}
