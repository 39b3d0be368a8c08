package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/database/models"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("session not found")
	// ErrResetTokenInvalid 重置令牌无效、已使用或已过期
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
)

// Repository 账户仓库：用户、资料、会话、重置令牌
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的账户仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// CreateUserWithProfile 同一事务内创建用户和资料
func (r *Repository) CreateUserWithProfile(ctx context.Context, user *models.User, displayName string) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		profile := &models.Profile{
			UserID:      user.ID,
			DisplayName: displayName,
			Preferences: models.JSONMap{},
		}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// GetUserByEmail 通过邮箱获取用户
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID 通过ID获取用户
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword 更新密码哈希
func (r *Repository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers 用户总数
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// GetProfile 获取用户资料，不存在时返回空资料
func (r *Repository) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Profile{UserID: userID, Preferences: models.JSONMap{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile 新建或覆盖资料
func (r *Repository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// CreateSession 保存刷新令牌会话
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetActiveSession 通过令牌哈希获取未过期会话
func (r *Repository) GetActiveSession(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// RotateSession 刷新时替换令牌哈希
func (r *Repository) RotateSession(ctx context.Context, id, newTokenHash string, expiresAt, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"token_hash":   newTokenHash,
			"expires_at":   expiresAt,
			"last_used_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession 删除单个会话
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error
}

// DeleteUserSessions 删除用户全部会话，重置密码后使用
func (r *Repository) DeleteUserSessions(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// DeleteExpiredSessions 清理过期会话
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// CreatePasswordReset 保存重置令牌
func (r *Repository) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	return r.db.WithContext(ctx).Create(reset).Error
}

// ConsumePasswordReset 校验并标记重置令牌已使用，同时更新密码
func (r *Repository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uint, error) {
	var userID uint
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var reset models.PasswordReset
		if err := tx.Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
			First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResetTokenInvalid
			}
			return err
		}

		if err := tx.Model(&reset).Update("used_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", passwordHash).Error; err != nil {
			return err
		}
		userID = reset.UserID
		return nil
	})
	return userID, err
}
