package library

import "context"

// MembershipStore 元数据客户端中与成员关系相关的部分
type MembershipStore interface {
	ListFolderImageIDs(ctx context.Context, folderID, owner uint) ([]uint, error)
	AddFolderImages(ctx context.Context, folderID, owner uint, imageIDs []uint) (int64, error)
	RemoveFolderImages(ctx context.Context, folderID, owner uint, imageIDs []uint) (int64, error)
}

// Index 以某个用户身份访问文件夹成员关系
type Index struct {
	store MembershipStore
	owner uint
}

// NewIndex 创建成员关系索引
func NewIndex(store MembershipStore, owner uint) *Index {
	return &Index{store: store, owner: owner}
}

// ListImageIDs 文件夹内图片 id，升序
func (x *Index) ListImageIDs(ctx context.Context, folderID uint) ([]uint, error) {
	return x.store.ListFolderImageIDs(ctx, folderID, x.owner)
}

// Add 幂等并集，重复 id 合并
func (x *Index) Add(ctx context.Context, folderID uint, ids []uint) error {
	_, err := x.store.AddFolderImages(ctx, folderID, x.owner, dedupe(ids))
	return err
}

// Remove 幂等差集
func (x *Index) Remove(ctx context.Context, folderID uint, ids []uint) error {
	_, err := x.store.RemoveFolderImages(ctx, folderID, x.owner, dedupe(ids))
	return err
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
