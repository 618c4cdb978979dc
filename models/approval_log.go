package models

import "time"

const (
	ApprovalActionApprove = "approve"
	ApprovalActionReject  = "reject"
)

type ApprovalLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PrincipalID uint      `gorm:"not null;index" json:"principal_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Action      string    `gorm:"type:varchar(20);not null" json:"action"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
