// Package metadata 图片、文件夹、成员关系和用户资料的类型化读写，
// 仓库层错误统一转换为 apperr 分类。
package metadata

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/database/repo/folders"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/internal/apperr"
	"gorm.io/gorm"
)

// MaxFolderNameLength 文件夹名称最大字符数
const MaxFolderNameLength = 100

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// FolderPatch 文件夹局部更新，nil 字段不修改
type FolderPatch struct {
	Name       *string
	Color      *string
	AccessType *models.AccessType
}

// ProfilePatch 资料局部更新，Preferences 按键合并
type ProfilePatch struct {
	DisplayName *string
	Preferences map[string]interface{}
}

// Client 元数据客户端
type Client struct {
	images   *images.Repository
	folders  *folders.Repository
	accounts *accounts.Repository
}

// NewClient 创建元数据客户端
func NewClient(imageRepo *images.Repository, folderRepo *folders.Repository, accountRepo *accounts.Repository) *Client {
	return &Client{
		images:   imageRepo,
		folders:  folderRepo,
		accounts: accountRepo,
	}
}

// classify 将仓库错误映射到 apperr
func classify(op string, err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, images.ErrImageNotFound),
		errors.Is(err, folders.ErrFolderNotFound),
		errors.Is(err, accounts.ErrUserNotFound):
		return apperr.NotFound(op, notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return apperr.Conflict(op, "record already exists", err)
	default:
		return apperr.Remote(op, err)
	}
}

// isUniqueViolation 未开启错误翻译的驱动按错误文本判断
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// --- 图片 ---

// CreateImage 写入图片记录
func (c *Client) CreateImage(ctx context.Context, image *models.Image) error {
	if !image.AccessType.Valid() {
		return apperr.Validation("CreateImage", "invalid access type")
	}
	return classify("CreateImage", c.images.Create(ctx, image), "image not found")
}

// GetImage 按 id 获取
func (c *Client) GetImage(ctx context.Context, id uint) (*models.Image, error) {
	image, err := c.images.GetByID(ctx, id)
	return image, classify("GetImage", err, "image not found")
}

// GetImageByFilename 按存储文件名获取
func (c *Client) GetImageByFilename(ctx context.Context, filename string) (*models.Image, error) {
	image, err := c.images.GetByFilename(ctx, filename)
	return image, classify("GetImageByFilename", err, "image not found")
}

// GetImageByShortURL 按短码获取
func (c *Client) GetImageByShortURL(ctx context.Context, code string) (*models.Image, error) {
	image, err := c.images.GetByShortURL(ctx, code)
	return image, classify("GetImageByShortURL", err, "image not found")
}

// FindImageByOriginalName 同一上传者下按显示名称查找，用于冲突检测
// owner 为 nil 表示匿名上传
func (c *Client) FindImageByOriginalName(ctx context.Context, owner *uint, name string) (*models.Image, error) {
	image, err := c.images.FindByOriginalName(ctx, owner, name)
	return image, classify("FindImageByOriginalName", err, "image not found")
}

// ListImages 按上传时间倒序列出
func (c *Client) ListImages(ctx context.Context, owner uint) ([]*models.Image, error) {
	list, err := c.images.ListByOwner(ctx, owner)
	return list, classify("ListImages", err, "image not found")
}

// UpdateImageAccess 修改访问类型，管理员可修改任意图片
func (c *Client) UpdateImageAccess(ctx context.Context, id, owner uint, isAdmin bool, access models.AccessType) (*models.Image, error) {
	if !access.Valid() {
		return nil, apperr.Validation("UpdateImageAccess", "invalid access type")
	}
	image, err := c.images.UpdateAccess(ctx, id, owner, isAdmin, access)
	return image, classify("UpdateImageAccess", err, "image not found or access denied")
}

// ReplaceImageContent 覆盖上传，id 与文件夹关系保持不变
func (c *Client) ReplaceImageContent(ctx context.Context, id uint, update images.ContentUpdate) (*models.Image, error) {
	image, err := c.images.ReplaceContent(ctx, id, update)
	return image, classify("ReplaceImageContent", err, "image not found")
}

// DeleteImage 删除记录并返回被删除的行，调用方负责删除对象
func (c *Client) DeleteImage(ctx context.Context, id, owner uint) (*models.Image, error) {
	image, err := c.images.DeleteOwned(ctx, id, owner)
	return image, classify("DeleteImage", err, "image not found or access denied")
}

// --- 文件夹 ---

func validateFolderName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation(op, "folder name is required")
	}
	if utf8.RuneCountInString(name) > MaxFolderNameLength {
		return "", apperr.Validation(op, "folder name is too long")
	}
	return name, nil
}

// CreateFolder 创建文件夹
func (c *Client) CreateFolder(ctx context.Context, folder *models.Folder) error {
	name, err := validateFolderName("CreateFolder", folder.Name)
	if err != nil {
		return err
	}
	folder.Name = name

	if folder.Color == "" {
		folder.Color = models.DefaultFolderColor
	} else if !colorPattern.MatchString(folder.Color) {
		return apperr.Validation("CreateFolder", "invalid folder color")
	}
	if folder.AccessType == "" {
		folder.AccessType = models.AccessPrivate
	} else if !folder.AccessType.Valid() {
		return apperr.Validation("CreateFolder", "invalid access type")
	}

	return classify("CreateFolder", c.folders.Create(ctx, folder), "folder not found")
}

// GetFolder 获取自己的文件夹
func (c *Client) GetFolder(ctx context.Context, id, owner uint) (*models.Folder, error) {
	folder, err := c.folders.GetOwned(ctx, id, owner)
	return folder, classify("GetFolder", err, "folder not found")
}

// ListFolders 按名称排序，带图片数量
func (c *Client) ListFolders(ctx context.Context, owner uint) ([]*models.Folder, error) {
	list, err := c.folders.ListByOwner(ctx, owner)
	return list, classify("ListFolders", err, "folder not found")
}

// UpdateFolder 重命名、改色或修改访问类型
func (c *Client) UpdateFolder(ctx context.Context, id, owner uint, patch FolderPatch) (*models.Folder, error) {
	const op = "UpdateFolder"
	updates := make(map[string]interface{}, 3)

	if patch.Name != nil {
		name, err := validateFolderName(op, *patch.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if patch.Color != nil {
		if !colorPattern.MatchString(*patch.Color) {
			return nil, apperr.Validation(op, "invalid folder color")
		}
		updates["color"] = *patch.Color
	}
	if patch.AccessType != nil {
		if !patch.AccessType.Valid() {
			return nil, apperr.Validation(op, "invalid access type")
		}
		updates["access_type"] = *patch.AccessType
	}

	if len(updates) == 0 {
		return c.GetFolder(ctx, id, owner)
	}

	folder, err := c.folders.Update(ctx, id, owner, updates)
	return folder, classify(op, err, "folder not found")
}

// DeleteFolder 删除文件夹及其成员关系，图片保留
func (c *Client) DeleteFolder(ctx context.Context, id, owner uint) error {
	return classify("DeleteFolder", c.folders.Delete(ctx, id, owner), "folder not found")
}

// --- 成员关系 ---

// ListFolderImageIDs 文件夹内图片 id，升序
func (c *Client) ListFolderImageIDs(ctx context.Context, folderID, owner uint) ([]uint, error) {
	if _, err := c.GetFolder(ctx, folderID, owner); err != nil {
		return nil, err
	}
	ids, err := c.folders.ListImageIDs(ctx, folderID)
	return ids, classify("ListFolderImageIDs", err, "folder not found")
}

// AddFolderImages 幂等添加，只接受调用者自己的图片
func (c *Client) AddFolderImages(ctx context.Context, folderID, owner uint, imageIDs []uint) (int64, error) {
	const op = "AddFolderImages"
	if _, err := c.GetFolder(ctx, folderID, owner); err != nil {
		return 0, err
	}
	if len(imageIDs) == 0 {
		return 0, nil
	}

	found, err := c.images.ListByIDs(ctx, imageIDs)
	if err != nil {
		return 0, classify(op, err, "image not found")
	}
	owned := make(map[uint]struct{}, len(found))
	for _, img := range found {
		if img.IsOwnedBy(owner) {
			owned[img.ID] = struct{}{}
		}
	}
	for _, id := range imageIDs {
		if _, ok := owned[id]; !ok {
			return 0, apperr.Validation(op, "image not found or not owned")
		}
	}

	n, err := c.folders.AddImages(ctx, folderID, imageIDs)
	return n, classify(op, err, "folder not found")
}

// RemoveFolderImages 幂等移除
func (c *Client) RemoveFolderImages(ctx context.Context, folderID, owner uint, imageIDs []uint) (int64, error) {
	if _, err := c.GetFolder(ctx, folderID, owner); err != nil {
		return 0, err
	}
	n, err := c.folders.RemoveImages(ctx, folderID, imageIDs)
	return n, classify("RemoveFolderImages", err, "folder not found")
}

// --- 用户资料 ---

// GetProfile 获取资料，不存在时返回空资料
func (c *Client) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	profile, err := c.accounts.GetProfile(ctx, userID)
	return profile, classify("GetProfile", err, "profile not found")
}

// UpdateProfile 合并偏好设置，值为 nil 的键被删除
func (c *Client) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (*models.Profile, error) {
	const op = "UpdateProfile"
	profile, err := c.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if utf8.RuneCountInString(name) > 100 {
			return nil, apperr.Validation(op, "display name is too long")
		}
		profile.DisplayName = name
	}
	if profile.Preferences == nil {
		profile.Preferences = models.JSONMap{}
	}
	for k, v := range patch.Preferences {
		if v == nil {
			delete(profile.Preferences, k)
			continue
		}
		profile.Preferences[k] = v
	}

	if err := c.accounts.SaveProfile(ctx, profile); err != nil {
		return nil, classify(op, err, "profile not found")
	}
	return profile, nil
}
