// Package dbtest 为仓库和服务测试提供内存 SQLite 数据库
package dbtest

import (
	"fmt"
	"testing"

	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewProvider 每个测试独立的内存库，已完成迁移
func NewProvider(t *testing.T) database.Provider {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	t.Cleanup(func() { _ = sqlDB.Close() })

	return database.NewProviderFromDB(db, "sqlite")
}
