package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

type GormRepositories struct {
	db      *gorm.DB
	redis   *redis.Client
	lockTTL time.Duration
}

// NewGormRepositories wires the gorm repositories. A nil redis client selects
// the in-process subtree locker.
func NewGormRepositories(db *gorm.DB, redisClient *redis.Client, lockTTL time.Duration) *GormRepositories {
	return &GormRepositories{db: db, redis: redisClient, lockTTL: lockTTL}
}

func (r *GormRepositories) BuildContainer() Container {
	var locker SubtreeLocker = NewMemorySubtreeLocker()
	if r.redis != nil {
		locker = NewRedisSubtreeLocker(r.redis, r.lockTTL)
	}
	return Container{
		TxManager: NewGormTxManager(r.db),
		Users:     NewGormUserRepository(r.db),
		Folders:   NewGormFolderRepository(r.db),
		Files:     NewGormFileRepository(r.db),
		Audit:     NewGormAuditRepository(r.db),
		Locker:    locker,
	}
}

func useTx(db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
