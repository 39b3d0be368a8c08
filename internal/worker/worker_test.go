package worker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_PanicRecovery panic 的任务不影响 worker 继续运行
func TestPool_PanicRecovery(t *testing.T) {
	pool := NewPool(2, 10)

	var completed int32
	pool.SubmitFunc(func() { panic("intentional panic") })
	pool.SubmitFunc(func() { panic("intentional panic") })
	for i := 0; i < 3; i++ {
		pool.SubmitFunc(func() { atomic.AddInt32(&completed, 1) })
	}

	pool.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&completed))
	stats := pool.GetStats()
	assert.Equal(t, uint64(5), stats.Executed)
	assert.Equal(t, uint64(2), stats.Failed)
}

// TestPool_GracefulShutdown Stop 等待执行中和排队中的任务
func TestPool_GracefulShutdown(t *testing.T) {
	pool := NewPool(1, 10)

	var completed int32
	var started sync.WaitGroup
	started.Add(1)
	pool.SubmitFunc(func() {
		started.Done()
		time.Sleep(200 * time.Millisecond)
		atomic.AddInt32(&completed, 1)
	})
	pool.SubmitFunc(func() { atomic.AddInt32(&completed, 1) })

	started.Wait()
	begin := time.Now()
	pool.Stop()

	assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&completed))
}

// TestPool_QueueFullDrop 队列满时丢弃
func TestPool_QueueFullDrop(t *testing.T) {
	pool := NewPool(1, 2)
	defer pool.Stop()

	blocker := make(chan struct{})
	running := make(chan struct{})
	pool.SubmitFunc(func() {
		close(running)
		<-blocker
	})
	<-running

	assert.True(t, pool.SubmitFunc(func() {}))
	assert.True(t, pool.SubmitFunc(func() {}))
	assert.False(t, pool.SubmitFunc(func() {}))
	assert.Equal(t, uint64(1), pool.GetStats().Dropped)

	close(blocker)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Stop()
	pool.Stop()

	assert.False(t, pool.SubmitFunc(func() {}))
}

func TestPool_NilTaskSkipped(t *testing.T) {
	pool := NewPool(1, 10)
	assert.True(t, pool.Submit(nil))
	pool.Stop()

	stats := pool.GetStats()
	assert.Equal(t, uint64(1), stats.Submitted)
	assert.Equal(t, uint64(0), stats.Executed)
}

func TestPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0)
	defer pool.Stop()

	stats := pool.GetStats()
	assert.Greater(t, stats.WorkerCount, 0)
	assert.Equal(t, 1000, stats.QueueCap)
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	pool := NewPool(4, 2000)

	var completed int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				pool.SubmitFunc(func() { atomic.AddInt32(&completed, 1) })
			}
		}()
	}
	wg.Wait()
	pool.Stop()

	assert.Equal(t, int32(1000), atomic.LoadInt32(&completed))
	assert.Equal(t, uint64(1000), pool.GetStats().Submitted)
}

func TestGlobalPool(t *testing.T) {
	pool := InitGlobalPool(2, 10)
	require.NotNil(t, pool)
	assert.Same(t, pool, InitGlobalPool(8, 100))
	assert.Same(t, pool, GetGlobalPool())

	done := make(chan struct{})
	assert.True(t, Submit(TaskFunc(func() { close(done) })))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task not executed")
	}

	StopGlobalPool()
	StopGlobalPool()
	assert.Nil(t, GetGlobalPool())

	// 未初始化时同步执行
	var ran bool
	assert.True(t, Submit(TaskFunc(func() { ran = true })))
	assert.True(t, ran)
}

func TestBlobDeleteTask(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, local.SaveWithContext(ctx, "a.png", strings.NewReader("x")))

	task := &BlobDeleteTask{Provider: local, Key: "a.png"}
	task.Execute()

	ok, err := local.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	// 已删除的 key 再次执行不会 panic
	assert.NotPanics(t, task.Execute)
	assert.NotPanics(t, (&BlobDeleteTask{}).Execute)
}

func TestCacheInvalidateTask(t *testing.T) {
	provider, err := cache.NewMemoryCache(cache.MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	helper := cache.NewHelper(provider, cache.HelperConfig{})
	ctx := context.Background()
	img := &models.Image{ID: 1, Filename: "a.png", ShortURL: "abc"}
	require.NoError(t, helper.CacheImage(ctx, img))

	(&CacheInvalidateTask{Helper: helper, Filename: "a.png", ShortCode: "abc"}).Execute()

	_, err = helper.GetCachedImage(ctx, "a.png")
	assert.True(t, cache.IsCacheMiss(err))
	_, err = helper.GetCachedFilename(ctx, "abc")
	assert.True(t, cache.IsCacheMiss(err))
}
