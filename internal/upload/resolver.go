package upload

import (
	"context"
	"errors"

	"github.com/anoixa/image-shelf/database/models"
)

// Resolution 冲突处理方式
type Resolution string

const (
	ResolutionNone      Resolution = ""
	ResolutionOverwrite Resolution = "overwrite"
	ResolutionSkip      Resolution = "skip"
)

// ParseResolution 非法值返回 false
func ParseResolution(s string) (Resolution, bool) {
	switch Resolution(s) {
	case ResolutionNone, ResolutionOverwrite, ResolutionSkip:
		return Resolution(s), true
	}
	return ResolutionNone, false
}

// ErrDecisionRequired 遇到冲突但调用方没有给出处理方式
var ErrDecisionRequired = errors.New("a file with this name already exists")

// Conflict 冲突详情
type Conflict struct {
	Name     string
	Existing *models.Image
}

// Resolver 冲突时阻塞等待用户决定
type Resolver interface {
	Resolve(ctx context.Context, c Conflict) (Resolution, error)
}

// ResolverFunc 函数适配
type ResolverFunc func(ctx context.Context, c Conflict) (Resolution, error)

func (f ResolverFunc) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	return f(ctx, c)
}

// StaticResolver 对所有冲突使用同一个预先给出的决定
// 决定为空时返回 ErrDecisionRequired
func StaticResolver(r Resolution) Resolver {
	return ResolverFunc(func(ctx context.Context, c Conflict) (Resolution, error) {
		if r == ResolutionNone {
			return ResolutionNone, ErrDecisionRequired
		}
		return r, nil
	})
}
