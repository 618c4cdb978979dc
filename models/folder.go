package models

import "time"

// Folder.Path is the storage-relative directory of the folder, always derived
// from the sanitized ancestor chain.
type Folder struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	FolderName string    `gorm:"type:varchar(255);not null" json:"folder_name"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	Path       string    `gorm:"type:varchar(1000);not null" json:"path"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
