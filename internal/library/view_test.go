package library

import (
	"testing"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewState_Normalize(t *testing.T) {
	v := ViewState{Mode: "cards", SortField: "color", SortDir: "up", PageSize: -1, Columns: 99, Page: 0}
	v.Normalize()

	assert.Equal(t, ViewGrid, v.Mode)
	assert.Equal(t, SortByDate, v.SortField)
	assert.Equal(t, SortDesc, v.SortDir)
	assert.Equal(t, DefaultPageSize, v.PageSize)
	assert.Equal(t, MaxColumns, v.Columns)
	assert.Equal(t, 1, v.Page)
}

func TestViewState_Paginate(t *testing.T) {
	items := make([]*models.Image, 5)
	for i := range items {
		items[i] = &models.Image{ID: uint(i + 1)}
	}

	v := ViewState{PageSize: 2, Page: 2}
	page, total := v.Paginate(items)
	assert.Equal(t, 3, total)
	assert.Equal(t, []uint{3, 4}, ids(page))

	v.Page = 10
	page, _ = v.Paginate(items)
	assert.Equal(t, []uint{5}, ids(page))

	page, total = v.Paginate(nil)
	assert.Equal(t, 1, total)
	assert.Empty(t, page)
}

func TestViewState_PreferencesRoundTrip(t *testing.T) {
	v := DefaultViewState()
	v.Mode = ViewTable
	v.SortField = SortBySize
	v.SortDir = SortAsc
	v.PageSize = 50
	v.Search = "not persisted"

	// 模拟 JSON 存储后数字变为 float64
	prefs := map[string]interface{}{}
	for k, val := range v.Preferences() {
		if n, ok := val.(int); ok {
			prefs[k] = float64(n)
			continue
		}
		prefs[k] = val
	}

	got, err := ViewStateFromPreferences(prefs)
	require.NoError(t, err)
	assert.Equal(t, ViewTable, got.Mode)
	assert.Equal(t, SortBySize, got.SortField)
	assert.Equal(t, SortAsc, got.SortDir)
	assert.Equal(t, 50, got.PageSize)
	assert.Empty(t, got.Search)
	assert.Equal(t, 1, got.Page)
}

func TestViewStateFromPreferences_InvalidValues(t *testing.T) {
	got, err := ViewStateFromPreferences(map[string]interface{}{"view_mode": "cards", "columns": "3"})
	require.NoError(t, err)
	assert.Equal(t, ViewGrid, got.Mode)
	assert.Equal(t, 3, got.Columns)

	got, err = ViewStateFromPreferences(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultViewState(), got)
}
