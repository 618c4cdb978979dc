package models

import "time"

const (
	RoleUser      = "user"
	RolePrincipal = "principal"
)

type User struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName   string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`
	Role       string    `gorm:"type:varchar(20);not null;default:user;index" json:"role"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u User) IsPrincipal() bool {
	return u.Role == RolePrincipal
}
