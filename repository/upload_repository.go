package repository

import (
	"time"

	"github.com/pinatree/pinatreebackend/models"
	"gorm.io/gorm"
)

type GormUploadRepository struct {
	db *gorm.DB
}

func NewGormUploadRepository(db *gorm.DB) UploadRepositoryInterface {
	return &GormUploadRepository{db: db}
}

func (r *GormUploadRepository) Create(upload *models.Upload) error {
	return r.db.Create(upload).Error
}

func (r *GormUploadRepository) GetByID(id string) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.Where("id = ?", id).First(&upload).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *GormUploadRepository) GetByOriginalPath(originalPath string) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.Where("original_path = ?", originalPath).First(&upload).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *GormUploadRepository) ListByUser(userID uint) ([]models.Upload, error) {
	var uploads []models.Upload
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&uploads).Error
	return uploads, err
}

func (r *GormUploadRepository) MarkPreviewProcessing(id string) error {
	return r.db.Model(&models.Upload{}).Where("id = ?", id).Updates(map[string]interface{}{
		"preview_status": models.PreviewStatusPending,
		"updated_at":     time.Now(),
	}).Error
}

// SetPreviewResult records the outcome of an async preview generation task
func (r *GormUploadRepository) SetPreviewResult(id string, previewPath *string, taskErr error) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if taskErr != nil {
		errStr := taskErr.Error()
		updates["preview_status"] = models.PreviewStatusError
		updates["preview_error"] = &errStr
	} else {
		updates["preview_status"] = models.PreviewStatusDone
		updates["preview_path"] = previewPath
		updates["preview_error"] = nil
	}
	return r.db.Model(&models.Upload{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormUploadRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Upload{}).Error
}
