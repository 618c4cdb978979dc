package repositories

import (
	"context"

	"filerepo/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByEmail(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	ListPending(ctx context.Context, tx *gorm.DB) ([]models.User, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error
	ListForRepositoryView(ctx context.Context, tx *gorm.DB, in RepositoryViewQuery) ([]models.User, error)
}

// RepositoryViewQuery selects owners for the cross-user view, ordered by id.
// Search matches the owner's name or any of their folder or file names.
type RepositoryViewQuery struct {
	Search  string
	AfterID uint
	Limit   int
}

type FolderRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, folderID uint) (models.Folder, error)
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, folderID uint, userID uint) (models.Folder, error)
	Create(ctx context.Context, tx *gorm.DB, folder *models.Folder) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error)
	ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uint) ([]models.Folder, error)
	CountByPath(ctx context.Context, tx *gorm.DB, path string, excludeID uint) (int64, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, folderID uint, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, folderID uint) error
}

type FileRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, fileID uint) (models.File, error)
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error)
	Create(ctx context.Context, tx *gorm.DB, file *models.File) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error)
	ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uint) ([]models.File, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, fileID uint, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, fileID uint) error
}

type AuditRepository interface {
	CreateApproval(ctx context.Context, tx *gorm.DB, entry *models.ApprovalLog) error
	CreateFileAccess(ctx context.Context, tx *gorm.DB, entry *models.FileAccessLog) error
}

// SubtreeLocker serializes structural mutations on a subtree. Lock blocks until
// every key is held or ctx is done; the returned func releases all of them.
type SubtreeLocker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

type Container struct {
	TxManager TxManager
	Users     UserRepository
	Folders   FolderRepository
	Files     FileRepository
	Audit     AuditRepository
	Locker    SubtreeLocker
}
