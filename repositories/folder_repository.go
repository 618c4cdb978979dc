package repositories

import (
	"context"

	"filerepo/models"

	"gorm.io/gorm"
)

type GormFolderRepository struct {
	db *gorm.DB
}

func NewGormFolderRepository(db *gorm.DB) *GormFolderRepository {
	return &GormFolderRepository{db: db}
}

func (r *GormFolderRepository) GetByID(ctx context.Context, tx *gorm.DB, folderID uint) (models.Folder, error) {
	var folder models.Folder
	err := useTx(r.db, tx).WithContext(ctx).First(&folder, folderID).Error
	return folder, err
}

func (r *GormFolderRepository) GetByIDAndUser(ctx context.Context, tx *gorm.DB, folderID uint, userID uint) (models.Folder, error) {
	var folder models.Folder
	err := useTx(r.db, tx).WithContext(ctx).Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	return folder, err
}

func (r *GormFolderRepository) Create(ctx context.Context, tx *gorm.DB, folder *models.Folder) error {
	return useTx(r.db, tx).WithContext(ctx).Create(folder).Error
}

func (r *GormFolderRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error) {
	var folders []models.Folder
	err := useTx(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("folder_name ASC, id ASC").
		Find(&folders).Error
	return folders, err
}

func (r *GormFolderRepository) ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uint) ([]models.Folder, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var folders []models.Folder
	err := useTx(r.db, tx).WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("folder_name ASC, id ASC").
		Find(&folders).Error
	return folders, err
}

// CountByPath is not scoped to an owner: owners whose names sanitize alike
// share a storage root, and a directory may only belong to one of them.
func (r *GormFolderRepository) CountByPath(ctx context.Context, tx *gorm.DB, path string, excludeID uint) (int64, error) {
	db := useTx(r.db, tx).WithContext(ctx).Model(&models.Folder{}).
		Where("path = ?", path)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	var count int64
	err := db.Count(&count).Error
	return count, err
}

func (r *GormFolderRepository) UpdateByID(ctx context.Context, tx *gorm.DB, folderID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).WithContext(ctx).Model(&models.Folder{}).Where("id = ?", folderID).Updates(updates).Error
}

func (r *GormFolderRepository) DeleteByID(ctx context.Context, tx *gorm.DB, folderID uint) error {
	return useTx(r.db, tx).WithContext(ctx).Where("id = ?", folderID).Delete(&models.Folder{}).Error
}
