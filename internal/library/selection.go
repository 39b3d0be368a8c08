package library

import "sort"

// Selection 当前选中的图片 id 集合，只存在于内存
type Selection struct {
	ids map[uint]struct{}
}

// NewSelection 创建空选择集
func NewSelection() *Selection {
	return &Selection{ids: make(map[uint]struct{})}
}

func (s *Selection) Select(id uint) {
	s.ids[id] = struct{}{}
}

func (s *Selection) Deselect(id uint) {
	delete(s.ids, id)
}

// Toggle 切换选中状态，返回切换后是否选中
func (s *Selection) Toggle(id uint) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll 用可见 id 替换当前选择
func (s *Selection) SelectAll(visibleIDs []uint) {
	s.ids = make(map[uint]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Clear() {
	s.ids = make(map[uint]struct{})
}

// Prune 去掉不在已加载列表中的 id
func (s *Selection) Prune(loadedIDs []uint) {
	loaded := make(map[uint]struct{}, len(loadedIDs))
	for _, id := range loadedIDs {
		loaded[id] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := loaded[id]; !ok {
			delete(s.ids, id)
		}
	}
}

func (s *Selection) Has(id uint) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs 升序返回
func (s *Selection) IDs() []uint {
	out := make([]uint, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
