package models

import "time"

// Session 刷新令牌会话，只保存令牌哈希
type Session struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	TokenHash  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	UserAgent  string    `gorm:"type:varchar(255)" json:"user_agent"`
	IP         string    `gorm:"type:varchar(64)" json:"ip"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// PasswordReset 一次性重置密码令牌
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

// AllModels AutoMigrate 使用
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Session{},
		&PasswordReset{},
		&Image{},
		&Folder{},
		&FolderImage{},
	}
}
