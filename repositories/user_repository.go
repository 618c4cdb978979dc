package repositories

import (
	"context"
	"strings"

	"filerepo/models"

	"gorm.io/gorm"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return useTx(r.db, tx).WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).WithContext(ctx).Where("email = ?", email).First(&user).Error
	return user, err
}

func (r *GormUserRepository) GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).WithContext(ctx).First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) ListPending(ctx context.Context, tx *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := useTx(r.db, tx).WithContext(ctx).
		Where("is_approved = ? AND is_active = ? AND is_archived = ?", false, true, false).
		Order("created_at ASC, id ASC").
		Find(&users).Error
	return users, err
}

func (r *GormUserRepository) UpdateByID(ctx context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *GormUserRepository) ListForRepositoryView(ctx context.Context, tx *gorm.DB, in RepositoryViewQuery) ([]models.User, error) {
	db := useTx(r.db, tx).WithContext(ctx)
	query := db.Model(&models.User{}).Where("id > ?", in.AfterID)

	if search := strings.TrimSpace(in.Search); search != "" {
		pattern := containsPattern(strings.ToLower(search))
		folderOwners := db.Model(&models.Folder{}).Select("user_id").Where("LOWER(folder_name) LIKE ?", pattern)
		fileOwners := db.Model(&models.File{}).Select("user_id").Where("LOWER(file_name) LIKE ?", pattern)
		query = query.Where(
			db.Where("LOWER(full_name) LIKE ?", pattern).
				Or("id IN (?)", folderOwners).
				Or("id IN (?)", fileOwners),
		)
	}

	var users []models.User
	err := query.Order("id ASC").Limit(in.Limit).Find(&users).Error
	return users, err
}
