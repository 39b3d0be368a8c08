// Package library 图库浏览：派生查询、选择集、视图状态、拖放会话和成员关系索引。
package library

import (
	"context"
	"sort"
	"strings"

	"github.com/anoixa/image-shelf/database/models"
)

// SortField 排序字段
type SortField string

const (
	SortByName     SortField = "name"
	SortByDate     SortField = "date"
	SortBySize     SortField = "size"
	SortByMimeType SortField = "mimeType"
)

// Valid 是否为合法排序字段
func (f SortField) Valid() bool {
	switch f {
	case SortByName, SortByDate, SortBySize, SortByMimeType:
		return true
	}
	return false
}

// SortDir 排序方向
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Valid 是否为合法排序方向
func (d SortDir) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Query 派生查询参数
type Query struct {
	FolderID  *uint
	Search    string
	SortField SortField
	SortDir   SortDir
}

// MembershipResolver 文件夹成员 id 查询
type MembershipResolver interface {
	ListImageIDs(ctx context.Context, folderID uint) ([]uint, error)
}

// Derive 过滤并排序已加载的图片，不修改输入切片
// 文件夹成员查询失败时返回空结果和错误
func Derive(ctx context.Context, images []*models.Image, q Query, resolver MembershipResolver) ([]*models.Image, error) {
	result := make([]*models.Image, 0, len(images))

	if q.FolderID != nil {
		if resolver == nil {
			return []*models.Image{}, nil
		}
		ids, err := resolver.ListImageIDs(ctx, *q.FolderID)
		if err != nil {
			return []*models.Image{}, err
		}
		members := make(map[uint]struct{}, len(ids))
		for _, id := range ids {
			members[id] = struct{}{}
		}
		for _, img := range images {
			if _, ok := members[img.ID]; ok {
				result = append(result, img)
			}
		}
	} else {
		result = append(result, images...)
	}

	result = FilterByName(result, q.Search)
	SortImages(result, q.SortField, q.SortDir)
	return result, nil
}

// FilterByName 按显示名称做大小写不敏感的子串匹配，空搜索原样返回
func FilterByName(images []*models.Image, search string) []*models.Image {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return images
	}

	filtered := images[:0:0]
	for _, img := range images {
		if strings.Contains(strings.ToLower(img.OriginalName), needle) {
			filtered = append(filtered, img)
		}
	}
	return filtered
}

// SortImages 原地稳定排序，相等时按 id 升序
func SortImages(images []*models.Image, field SortField, dir SortDir) {
	desc := dir == SortDesc

	sort.SliceStable(images, func(i, j int) bool {
		c := compareBy(images[i], images[j], field)
		if c == 0 {
			return images[i].ID < images[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBy(a, b *models.Image, field SortField) int {
	switch field {
	case SortByName:
		return strings.Compare(strings.ToLower(a.OriginalName), strings.ToLower(b.OriginalName))
	case SortBySize:
		return compareInt64(a.Size(), b.Size())
	case SortByMimeType:
		return strings.Compare(strings.ToLower(a.Mime()), strings.ToLower(b.Mime()))
	default:
		return a.UploadedAt.Compare(b.UploadedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
