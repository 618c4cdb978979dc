package models

import "time"

type File struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	FolderID   *uint     `gorm:"index" json:"folder_id"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath   string    `gorm:"type:varchar(1000);not null" json:"file_path"`
	FileType   string    `gorm:"type:varchar(100)" json:"file_type"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
