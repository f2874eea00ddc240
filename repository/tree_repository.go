package repository

import (
	"github.com/pinatree/pinatreebackend/models"
	"gorm.io/gorm"
)

type GormTreeRepository struct {
	db *gorm.DB
}

func NewGormTreeRepository(db *gorm.DB) TreeRepositoryInterface {
	return &GormTreeRepository{db: db}
}

func (r *GormTreeRepository) Create(tree *models.Tree) error {
	return r.db.Create(tree).Error
}

func (r *GormTreeRepository) GetByID(id uint) (*models.Tree, error) {
	var tree models.Tree
	if err := r.db.Preload("User").First(&tree, id).Error; err != nil {
		return nil, err
	}
	return &tree, nil
}

func (r *GormTreeRepository) ListByUser(userID uint) ([]models.Tree, error) {
	var trees []models.Tree
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&trees).Error
	return trees, err
}

func (r *GormTreeRepository) Update(tree *models.Tree) error {
	return r.db.Save(tree).Error
}

func (r *GormTreeRepository) Delete(id uint) error {
	return r.db.Delete(&models.Tree{}, id).Error
}

// CountReferencingImage reports how many live trees point at the given stored
// image. Used to decide whether deleting an upload would orphan a record.
func (r *GormTreeRepository) CountReferencingImage(imageURL string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Tree{}).Where("image_url = ?", imageURL).Count(&count).Error
	return count, err
}
