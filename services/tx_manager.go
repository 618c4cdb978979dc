package services

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs fn in one database transaction. Folder moves rewrite a whole
// subtree's paths through it, and approval decisions write their log row with it.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
