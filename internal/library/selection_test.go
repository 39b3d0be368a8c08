package library

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_Basics(t *testing.T) {
	s := NewSelection()
	s.Select(3)
	s.Select(1)
	s.Select(3)
	assert.Equal(t, []uint{1, 3}, s.IDs())
	assert.Equal(t, 2, s.Len())

	assert.False(t, s.Toggle(1))
	assert.True(t, s.Toggle(7))
	assert.True(t, s.Has(7))

	s.Deselect(7)
	assert.False(t, s.Has(7))

	s.SelectAll([]uint{5, 6})
	assert.Equal(t, []uint{5, 6}, s.IDs())

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestSelection_Prune(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]uint{1, 2, 3})
	s.Prune([]uint{2, 3, 4})
	assert.Equal(t, []uint{2, 3}, s.IDs())
}

func TestDragSession(t *testing.T) {
	d := NewDragSession()
	assert.False(t, d.IsDragging())

	ids := []uint{1, 2}
	d.StartDrag(ids)
	ids[0] = 99
	assert.True(t, d.IsDragging())
	assert.Equal(t, []uint{1, 2}, d.Snapshot())

	d.EndDrag()
	assert.False(t, d.IsDragging())
	assert.Empty(t, d.Snapshot())
}

func TestDragSession_Concurrent(t *testing.T) {
	d := NewDragSession()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			d.StartDrag([]uint{uint(i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = d.Snapshot()
			d.EndDrag()
		}()
	}
	wg.Wait()
}
