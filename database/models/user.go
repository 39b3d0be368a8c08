package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin 管理员可以修改任意图片的访问类型
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile 用户资料，Preferences 保存视图偏好
type Profile struct {
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(100)" json:"display_name"`
	Preferences JSONMap   `gorm:"type:text" json:"preferences"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// JSONMap 以 JSON 文本存储的 map
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", value)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	result := JSONMap{}
	if err := json.Unmarshal(data, &result); err != nil {
		return errors.Join(errors.New("invalid JSONMap value"), err)
	}
	*m = result
	return nil
}
