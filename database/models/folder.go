package models

import "time"

// DefaultFolderColor 未指定颜色时的显示标签
const DefaultFolderColor = "#6b7280"

type Folder struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(100);not null;index" json:"name"`
	Color      string     `gorm:"type:varchar(16);not null;default:'#6b7280'" json:"color"`
	AccessType AccessType `gorm:"type:varchar(16);not null;default:'private'" json:"access_type"`
	UserID     uint       `gorm:"not null;index" json:"owner"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	ImageCount int64 `gorm:"-" json:"image_count"`
}

// FolderImage 文件夹和图片的关联行，(folder_id, image_id) 唯一
type FolderImage struct {
	FolderID  uint      `gorm:"primaryKey;autoIncrement:false" json:"folder_id"`
	ImageID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"image_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (FolderImage) TableName() string {
	return "folder_images"
}
