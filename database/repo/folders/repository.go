package folders

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrFolderNotFound 文件夹不存在或无权访问
var ErrFolderNotFound = errors.New("folder not found or access denied")

// membershipBatchSize 批量写入关联行的批次大小
const membershipBatchSize = 200

// Repository 文件夹仓库，同时维护 folder_images 关联
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的文件夹仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Create 创建文件夹
func (r *Repository) Create(ctx context.Context, folder *models.Folder) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(folder).Error; err != nil {
			return fmt.Errorf("failed to create folder in transaction: %w", err)
		}
		return nil
	})
}

// GetOwned 获取用户自己的文件夹
func (r *Repository) GetOwned(ctx context.Context, id, userID uint) (*models.Folder, error) {
	var folder models.Folder
	if err := r.db.WithContext(ctx).First(&folder, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.FolderImage{}).
		Where("folder_id = ?", folder.ID).Count(&folder.ImageCount).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListByOwner 列出用户的文件夹及其图片数量
func (r *Repository) ListByOwner(ctx context.Context, userID uint) ([]*models.Folder, error) {
	var folders []*models.Folder
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name asc").Order("id asc").
		Find(&folders).Error; err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return folders, nil
	}

	ids := make([]uint, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}

	type countRow struct {
		FolderID uint
		Total    int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&models.FolderImage{}).
		Select("folder_id, COUNT(*) AS total").
		Where("folder_id IN ?", ids).
		Group("folder_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count folder images: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.FolderID] = row.Total
	}
	for _, f := range folders {
		f.ImageCount = counts[f.ID]
	}
	return folders, nil
}

// Update 更新名称、颜色、访问类型
func (r *Repository) Update(ctx context.Context, id, userID uint, updates map[string]interface{}) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&folder, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFolderNotFound
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&folder).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update folder %d: %w", id, err)
		}
		return tx.First(&folder, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// Delete 删除文件夹，只删除关联行，图片本身不动
func (r *Repository) Delete(ctx context.Context, id, userID uint) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var folder models.Folder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&folder, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFolderNotFound
			}
			return err
		}

		if err := tx.Where("folder_id = ?", folder.ID).Delete(&models.FolderImage{}).Error; err != nil {
			return fmt.Errorf("failed to clear image associations for folder %d: %w", id, err)
		}

		if err := tx.Delete(&folder).Error; err != nil {
			return fmt.Errorf("failed to delete folder %d: %w", id, err)
		}
		return nil
	})
}

// ListImageIDs 文件夹内的图片 id，按 id 升序
func (r *Repository) ListImageIDs(ctx context.Context, folderID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.FolderImage{}).
		Where("folder_id = ?", folderID).
		Order("image_id asc").
		Pluck("image_id", &ids).Error
	return ids, err
}

// AddImages 幂等添加，已存在的 (folder_id, image_id) 跳过，返回新增行数
func (r *Repository) AddImages(ctx context.Context, folderID uint, imageIDs []uint) (int64, error) {
	rows := make([]models.FolderImage, 0, len(imageIDs))
	seen := make(map[uint]struct{}, len(imageIDs))
	for _, id := range imageIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, models.FolderImage{FolderID: folderID, ImageID: id})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, membershipBatchSize)
		if result.Error != nil {
			return fmt.Errorf("failed to add images to folder %d: %w", folderID, result.Error)
		}
		inserted = result.RowsAffected
		return nil
	})
	return inserted, err
}

// RemoveImages 幂等移除，返回删除行数
func (r *Repository) RemoveImages(ctx context.Context, folderID uint, imageIDs []uint) (int64, error) {
	if len(imageIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("folder_id = ? AND image_id IN ?", folderID, imageIDs).
		Delete(&models.FolderImage{})
	return result.RowsAffected, result.Error
}

// CountImages 文件夹内图片数量
func (r *Repository) CountImages(ctx context.Context, folderID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FolderImage{}).Where("folder_id = ?", folderID).Count(&count).Error
	return count, err
}
