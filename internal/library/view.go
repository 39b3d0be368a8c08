package library

import (
	"fmt"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/mitchellh/mapstructure"
)

// ViewMode 展示模式
type ViewMode string

const (
	ViewGrid  ViewMode = "grid"
	ViewList  ViewMode = "list"
	ViewTable ViewMode = "table"
)

func (m ViewMode) Valid() bool {
	return m == ViewGrid || m == ViewList || m == ViewTable
}

const (
	DefaultPageSize = 24
	MaxPageSize     = 200
	DefaultColumns  = 4
	MaxColumns      = 12
)

// ViewState 浏览视图状态
// 带 mapstructure 标签的字段会持久化到用户资料的 preferences
type ViewState struct {
	Mode      ViewMode  `mapstructure:"view_mode"`
	SortField SortField `mapstructure:"sort_field"`
	SortDir   SortDir   `mapstructure:"sort_dir"`
	PageSize  int       `mapstructure:"page_size"`
	Columns   int       `mapstructure:"columns"`

	Search   string `mapstructure:"-"`
	FolderID *uint  `mapstructure:"-"`
	Page     int    `mapstructure:"-"`
}

// DefaultViewState 网格视图，按日期倒序
func DefaultViewState() ViewState {
	return ViewState{
		Mode:      ViewGrid,
		SortField: SortByDate,
		SortDir:   SortDesc,
		PageSize:  DefaultPageSize,
		Columns:   DefaultColumns,
		Page:      1,
	}
}

// Normalize 非法值回退到默认值
func (v *ViewState) Normalize() {
	def := DefaultViewState()
	if !v.Mode.Valid() {
		v.Mode = def.Mode
	}
	if !v.SortField.Valid() {
		v.SortField = def.SortField
	}
	if !v.SortDir.Valid() {
		v.SortDir = def.SortDir
	}
	if v.PageSize <= 0 {
		v.PageSize = def.PageSize
	} else if v.PageSize > MaxPageSize {
		v.PageSize = MaxPageSize
	}
	if v.Columns <= 0 {
		v.Columns = def.Columns
	} else if v.Columns > MaxColumns {
		v.Columns = MaxColumns
	}
	if v.Page < 1 {
		v.Page = 1
	}
}

// Query 转换为派生查询参数
func (v ViewState) Query() Query {
	return Query{
		FolderID:  v.FolderID,
		Search:    v.Search,
		SortField: v.SortField,
		SortDir:   v.SortDir,
	}
}

// Paginate 返回当前页和总页数，页码越界时取最后一页
// 总页数至少为 1
func (v ViewState) Paginate(items []*models.Image) ([]*models.Image, int) {
	size := v.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	totalPages := (len(items) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	page := v.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	if start >= len(items) {
		return []*models.Image{}, totalPages
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}

// Preferences 需要持久化的偏好
func (v ViewState) Preferences() map[string]interface{} {
	return map[string]interface{}{
		"view_mode":  string(v.Mode),
		"sort_field": string(v.SortField),
		"sort_dir":   string(v.SortDir),
		"page_size":  v.PageSize,
		"columns":    v.Columns,
	}
}

// ViewStateFromPreferences 从资料偏好解码，缺失的键取默认值
// JSON 解出的数字是 float64，解码时按弱类型转换
func ViewStateFromPreferences(prefs map[string]interface{}) (ViewState, error) {
	v := DefaultViewState()
	if len(prefs) == 0 {
		return v, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &v,
	})
	if err != nil {
		return v, err
	}
	if err := decoder.Decode(prefs); err != nil {
		return DefaultViewState(), fmt.Errorf("failed to decode view preferences: %w", err)
	}

	v.Normalize()
	return v, nil
}
