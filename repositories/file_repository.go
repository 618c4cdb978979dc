package repositories

import (
	"context"

	"filerepo/models"

	"gorm.io/gorm"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) GetByID(ctx context.Context, tx *gorm.DB, fileID uint) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).WithContext(ctx).First(&file, fileID).Error
	return file, err
}

func (r *GormFileRepository) GetByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).WithContext(ctx).Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error
	return file, err
}

func (r *GormFileRepository) Create(ctx context.Context, tx *gorm.DB, file *models.File) error {
	return useTx(r.db, tx).WithContext(ctx).Create(file).Error
}

func (r *GormFileRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("file_name ASC, id ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uint) ([]models.File, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var files []models.File
	err := useTx(r.db, tx).WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("file_name ASC, id ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) UpdateByID(ctx context.Context, tx *gorm.DB, fileID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).Updates(updates).Error
}

func (r *GormFileRepository) DeleteByID(ctx context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(r.db, tx).WithContext(ctx).Where("id = ?", fileID).Delete(&models.File{}).Error
}
