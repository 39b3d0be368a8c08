package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/internal/session"
	"github.com/anoixa/image-shelf/utils"
	cryptopackage "github.com/anoixa/image-shelf/utils/crypto"
	"github.com/google/uuid"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken 刷新令牌不存在或已过期
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidEmail 邮箱格式错误
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword 密码太短
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// Session 登录后返回给客户端的会话
type Session struct {
	ID                 string
	User               *models.User
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// ClientInfo 记录在会话上的客户端信息
type ClientInfo struct {
	UserAgent string
	IP        string
}

// IdentityService 账户身份服务：登录、注册、刷新、登出、找回密码
type IdentityService struct {
	accounts *accounts.Repository
	jwt      *JWTService
	notifier *session.Notifier
	resetTTL time.Duration
	now      func() time.Time
}

// NewIdentityService 创建身份服务
func NewIdentityService(repo *accounts.Repository, jwtService *JWTService, notifier *session.Notifier, resetTTL time.Duration) *IdentityService {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &IdentityService{
		accounts: repo,
		jwt:      jwtService,
		notifier: notifier,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// JWT 返回令牌服务，中间件使用
func (s *IdentityService) JWT() *JWTService {
	return s.jwt
}

// Notifier 返回会话通知器
func (s *IdentityService) Notifier() *session.Notifier {
	return s.notifier
}

// SignIn 邮箱密码登录
func (s *IdentityService) SignIn(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	user, err := s.accounts.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := cryptopackage.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password comparison failed: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.issueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(session.EventSignedIn, user.ID, sess.ID)
	return sess, nil
}

// SignUp 注册账户，同时创建资料并签发会话
func (s *IdentityService) SignUp(ctx context.Context, email, password, displayName string, client ClientInfo) (*Session, error) {
	user, err := s.CreateUser(ctx, email, password, displayName, models.RoleUser)
	if err != nil {
		return nil, err
	}

	sess, err := s.issueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(session.EventSignedIn, user.ID, sess.ID)
	return sess, nil
}

// CreateUser 创建用户和资料，不签发会话
func (s *IdentityService) CreateUser(ctx context.Context, email, password, displayName, role string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	hash, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.accounts.CreateUserWithProfile(ctx, user, displayName); err != nil {
		return nil, err
	}
	log.Printf("[Auth] User created: %s (role=%s)", utils.SanitizeLogValue(email, 64), role)
	return user, nil
}

// SetPassword 直接设置密码并吊销全部会话
func (s *IdentityService) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.accounts.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	hash, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if _, err := s.accounts.DeleteUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.notifier.Publish(session.EventUserUpdated, user.ID, "")
	return nil
}

// Refresh 轮换刷新令牌并签发新的访问令牌
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	now := s.now()

	stored, err := s.accounts.GetActiveSession(ctx, hashToken(refreshToken), now)
	if err != nil {
		if errors.Is(err, accounts.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	user, err := s.accounts.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	newRefresh, newExpiry, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RotateSession(ctx, stored.ID, hashToken(newRefresh), newExpiry, now); err != nil {
		if errors.Is(err, accounts.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	accessToken, accessExpiry, err := s.jwt.GenerateAccessToken(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(session.EventTokenRefreshed, user.ID, stored.ID)
	return &Session{
		ID:                 stored.ID,
		User:               user,
		AccessToken:        accessToken,
		AccessTokenExpiry:  accessExpiry,
		RefreshToken:       newRefresh,
		RefreshTokenExpiry: newExpiry,
	}, nil
}

// SignOut 删除刷新令牌对应的会话，未知令牌视为已登出
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.accounts.GetActiveSession(ctx, hashToken(refreshToken), s.now())
	if err != nil {
		if errors.Is(err, accounts.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := s.accounts.DeleteSession(ctx, stored.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.notifier.Publish(session.EventSignedOut, stored.UserID, stored.ID)
	return nil
}

// RequestPasswordReset 生成一次性重置令牌。未知邮箱同样返回成功，令牌为空。
// 没有邮件发送能力，令牌写入日志。
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.accounts.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			utils.LogIfDev("[Auth] Password reset requested for unknown email %s", utils.SanitizeLogValue(email, 64))
			return "", nil
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	token, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.accounts.CreatePasswordReset(ctx, reset); err != nil {
		return "", fmt.Errorf("failed to save reset token: %w", err)
	}

	log.Printf("[Auth] Password reset token for %s: %s (expires in %v)", utils.SanitizeLogValue(user.Email, 64), token, s.resetTTL)
	s.notifier.Publish(session.EventPasswordRecovery, user.ID, "")
	return token, nil
}

// ConfirmPasswordReset 使用重置令牌设置新密码，并吊销该用户全部会话
func (s *IdentityService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := cryptopackage.GenerateFromPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.accounts.ConsumePasswordReset(ctx, hashToken(token), hash, s.now())
	if err != nil {
		return err
	}

	if n, err := s.accounts.DeleteUserSessions(ctx, userID); err != nil {
		log.Printf("[Auth] Failed to revoke sessions for user %d: %v", userID, err)
	} else if n > 0 {
		log.Printf("[Auth] Revoked %d sessions for user %d after password reset", n, userID)
	}

	s.notifier.Publish(session.EventUserUpdated, userID, "")
	return nil
}

// EnsureDefaultAdmin 没有任何用户时创建管理员，未配置密码则随机生成并打印
func (s *IdentityService) EnsureDefaultAdmin(ctx context.Context, email, password string) error {
	count, err := s.accounts.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated := password == ""
	if generated {
		password, err = utils.RandomString(16)
		if err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	if _, err := s.CreateUser(ctx, email, password, "admin", models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	if generated {
		log.Printf("[Auth] Default admin created: %s / %s (change it after first login)", email, password)
	} else {
		log.Printf("[Auth] Default admin created: %s", email)
	}
	return nil
}

// CleanupExpiredSessions 清理过期会话
func (s *IdentityService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.accounts.DeleteExpiredSessions(ctx, s.now())
}

func (s *IdentityService) issueSession(ctx context.Context, user *models.User, client ClientInfo) (*Session, error) {
	pair, err := s.jwt.GenerateTokens(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored := &models.Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		TokenHash:  hashToken(pair.RefreshToken),
		UserAgent:  utils.SanitizeLogValue(client.UserAgent, 250),
		IP:         client.IP,
		ExpiresAt:  pair.RefreshTokenExpiry,
		LastUsedAt: now,
	}
	if err := s.accounts.CreateSession(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &Session{
		ID:                 stored.ID,
		User:               user,
		AccessToken:        pair.AccessToken,
		AccessTokenExpiry:  pair.AccessTokenExpiry,
		RefreshToken:       pair.RefreshToken,
		RefreshTokenExpiry: pair.RefreshTokenExpiry,
	}, nil
}

// hashToken 数据库只保存令牌的 sha256
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
