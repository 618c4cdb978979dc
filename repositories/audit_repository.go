package repositories

import (
	"context"

	"filerepo/models"

	"gorm.io/gorm"
)

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) CreateApproval(ctx context.Context, tx *gorm.DB, entry *models.ApprovalLog) error {
	return useTx(r.db, tx).WithContext(ctx).Create(entry).Error
}

func (r *GormAuditRepository) CreateFileAccess(ctx context.Context, tx *gorm.DB, entry *models.FileAccessLog) error {
	return useTx(r.db, tx).WithContext(ctx).Create(entry).Error
}
