package models

import "time"

// Image 图片元数据，Filename 即存储 key
type Image struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Filename      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"filename"`
	OriginalName  string     `gorm:"type:varchar(255);not null;index:idx_owner_original_name,priority:2" json:"original_name"`
	FileSize      *int64     `json:"file_size"`
	MimeType      *string    `gorm:"type:varchar(100)" json:"mime_type"`
	ShortURL      string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"short_url"`
	Width         int        `json:"width,omitempty"`
	Height        int        `json:"height,omitempty"`
	StorageDriver string     `gorm:"type:varchar(32);not null;default:'local'" json:"-"`
	UserID        *uint      `gorm:"index:idx_owner_original_name,priority:1" json:"owner,omitempty"`
	AccessType    AccessType `gorm:"type:varchar(16);not null;default:'public';index" json:"access_type"`
	UploadedAt    time.Time  `gorm:"not null;index" json:"uploaded_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsOwnedBy 匿名上传的图片没有所有者
func (i *Image) IsOwnedBy(userID uint) bool {
	return i.UserID != nil && *i.UserID == userID
}

// Size 空大小视为 0
func (i *Image) Size() int64 {
	if i.FileSize == nil {
		return 0
	}
	return *i.FileSize
}

// Mime 空类型视为 ""
func (i *Image) Mime() string {
	if i.MimeType == nil {
		return ""
	}
	return *i.MimeType
}
