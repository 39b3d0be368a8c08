package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, repo *Repository, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, repo.CreateUserWithProfile(context.Background(), user, "Tester"))
	return user
}

// --- 测试用户与资料 ---

func TestRepository_CreateUserWithProfile(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()

	user := createUser(t, repo, "a@example.com")
	assert.NotZero(t, user.ID)

	profile, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tester", profile.DisplayName)

	dup := &models.User{Email: "a@example.com", PasswordHash: "x", Role: models.RoleUser}
	assert.ErrorIs(t, repo.CreateUserWithProfile(ctx, dup, ""), ErrEmailTaken)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_GetUser(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "b@example.com")

	got, err := repo.GetUserByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	got, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, 999, "x"), ErrUserNotFound)
}

func TestRepository_SaveProfile_Preferences(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "c@example.com")

	profile, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	profile.Preferences = models.JSONMap{"view_mode": "list", "page_size": float64(20)}
	require.NoError(t, repo.SaveProfile(ctx, profile))

	reloaded, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "list", reloaded.Preferences["view_mode"])
	assert.Equal(t, float64(20), reloaded.Preferences["page_size"])

	// 缺失资料返回空对象
	empty, err := repo.GetProfile(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, empty.Preferences)
}

// --- 测试会话 ---

func TestRepository_Sessions(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "d@example.com")
	now := time.Now()

	session := &models.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		TokenHash:  "hash-1",
		ExpiresAt:  now.Add(time.Hour),
		LastUsedAt: now,
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	got, err := repo.GetActiveSession(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = repo.GetActiveSession(ctx, "hash-1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrSessionNotFound, "expired sessions are not active")

	require.NoError(t, repo.RotateSession(ctx, session.ID, "hash-2", now.Add(time.Hour), now))
	_, err = repo.GetActiveSession(ctx, "hash-1", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = repo.GetActiveSession(ctx, "hash-2", now)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.RotateSession(ctx, "missing", "x", now, now), ErrSessionNotFound)

	require.NoError(t, repo.DeleteSession(ctx, session.ID))
	_, err = repo.GetActiveSession(ctx, "hash-2", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRepository_DeleteExpiredSessions(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "e@example.com")
	now := time.Now()

	require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: uuid.NewString(), UserID: user.ID, TokenHash: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.CreateSession(ctx, &models.Session{ID: uuid.NewString(), UserID: user.ID, TokenHash: "new", ExpiresAt: now.Add(time.Hour)}))

	n, err := repo.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// --- 测试密码重置 ---

func TestRepository_ConsumePasswordReset(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "f@example.com")
	now := time.Now()

	require.NoError(t, repo.CreatePasswordReset(ctx, &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: "reset-hash",
		ExpiresAt: now.Add(time.Hour),
	}))

	userID, err := repo.ConsumePasswordReset(ctx, "reset-hash", "new-password-hash", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-password-hash", got.PasswordHash)

	// 令牌只能使用一次
	_, err = repo.ConsumePasswordReset(ctx, "reset-hash", "again", now)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestRepository_ConsumePasswordReset_Expired(t *testing.T) {
	repo := NewRepository(dbtest.NewProvider(t))
	ctx := context.Background()
	user := createUser(t, repo, "g@example.com")
	now := time.Now()

	require.NoError(t, repo.CreatePasswordReset(ctx, &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: "expired",
		ExpiresAt: now.Add(-time.Minute),
	}))

	_, err := repo.ConsumePasswordReset(ctx, "expired", "x", now)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}
