package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrImageNotFound 图片不存在或无权访问
	ErrImageNotFound = errors.New("image not found")
)

// ContentUpdate 覆盖上传时替换的字段
type ContentUpdate struct {
	Filename      string
	ShortURL      string
	FileSize      *int64
	MimeType      *string
	Width         int
	Height        int
	StorageDriver string
}

// Repository 图片仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Create 保存图片元数据
func (r *Repository) Create(ctx context.Context, image *models.Image) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("failed to create image in transaction: %w", err)
		}
		return nil
	})
}

// GetByID 通过ID获取图片
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByFilename 通过存储文件名获取图片
func (r *Repository) GetByFilename(ctx context.Context, filename string) (*models.Image, error) {
	return r.first(ctx, "filename = ?", filename)
}

// GetByShortURL 通过短链标识获取图片
func (r *Repository) GetByShortURL(ctx context.Context, code string) (*models.Image, error) {
	return r.first(ctx, "short_url = ?", code)
}

// FindByOriginalName 同一所有者下同名的图片，匿名上传 owner 为 nil
func (r *Repository) FindByOriginalName(ctx context.Context, owner *uint, name string) (*models.Image, error) {
	db := r.db.WithContext(ctx).Where("original_name = ?", name)
	if owner == nil {
		db = db.Where("user_id IS NULL")
	} else {
		db = db.Where("user_id = ?", *owner)
	}

	var image models.Image
	if err := db.Order("id asc").First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

// ListByOwner 按上传时间倒序列出用户的全部图片
func (r *Repository) ListByOwner(ctx context.Context, owner uint) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("uploaded_at desc").Order("id desc").
		Find(&images).Error
	return images, err
}

// ListByIDs 按 id 批量读取，结果按 id 升序
func (r *Repository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var images []*models.Image
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&images).Error
	return images, err
}

// FindInBatches 遍历全部图片，清理任务使用
func (r *Repository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []*models.Image) error) error {
	var batch []*models.Image
	result := r.db.WithContext(ctx).Order("id asc").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return result.Error
}

// UpdateAccess 修改访问类型，管理员可以修改任意图片
func (r *Repository) UpdateAccess(ctx context.Context, id, userID uint, isAdmin bool, access models.AccessType) (*models.Image, error) {
	var image models.Image
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
		if !isAdmin {
			q = q.Where("user_id = ?", userID)
		}
		if err := q.First(&image).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrImageNotFound
			}
			return err
		}
		image.AccessType = access
		return tx.Model(&image).Update("access_type", access).Error
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// ReplaceContent 覆盖已有记录的内容字段，id 和文件夹关系保持不变
func (r *Repository) ReplaceContent(ctx context.Context, id uint, update ContentUpdate) (*models.Image, error) {
	var image models.Image
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&image, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrImageNotFound
			}
			return err
		}

		updates := map[string]interface{}{
			"filename":       update.Filename,
			"short_url":      update.ShortURL,
			"file_size":      update.FileSize,
			"mime_type":      update.MimeType,
			"width":          update.Width,
			"height":         update.Height,
			"storage_driver": update.StorageDriver,
		}
		if err := tx.Model(&image).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to replace content of image %d: %w", id, err)
		}
		return tx.First(&image, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteOwned 删除用户自己的图片及其文件夹关系，返回被删除的记录
func (r *Repository) DeleteOwned(ctx context.Context, id, userID uint) (*models.Image, error) {
	var image models.Image
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&image, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrImageNotFound
			}
			return err
		}
		return deleteImages(tx, []uint{image.ID})
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteByIDs 无所有者校验的批量删除，仅供清理命令使用
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return deleteImages(tx, ids)
	})
}

// FilenameExists 检查存储 key 是否被引用
func (r *Repository) FilenameExists(ctx context.Context, filename string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Image{}).Where("filename = ?", filename).Count(&count).Error
	return count > 0, err
}

func (r *Repository) first(ctx context.Context, query string, args ...interface{}) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where(query, args...).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

func deleteImages(tx *gorm.DB, ids []uint) error {
	if err := tx.Where("image_id IN ?", ids).Delete(&models.FolderImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete folder memberships: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Image{}).Error; err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	return nil
}
