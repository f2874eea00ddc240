package repository

import (
	"github.com/pinatree/pinatreebackend/models"
)

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
}

// TreeRepositoryInterface defines the methods for tree data operations
type TreeRepositoryInterface interface {
	Create(tree *models.Tree) error
	GetByID(id uint) (*models.Tree, error)
	ListByUser(userID uint) ([]models.Tree, error)
	Update(tree *models.Tree) error
	Delete(id uint) error
	CountReferencingImage(imageURL string) (int64, error)
}

// UploadRepositoryInterface defines the methods for upload data operations
type UploadRepositoryInterface interface {
	Create(upload *models.Upload) error
	GetByID(id string) (*models.Upload, error)
	GetByOriginalPath(originalPath string) (*models.Upload, error)
	ListByUser(userID uint) ([]models.Upload, error)
	MarkPreviewProcessing(id string) error
	SetPreviewResult(id string, previewPath *string, taskErr error) error
	Delete(id string) error
}
