package worker

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task 异步任务接口
type Task interface {
	Execute()
}

// TaskFunc 函数适配为 Task
type TaskFunc func()

// Execute 执行函数
func (f TaskFunc) Execute() { f() }

// Stats 协程池统计
type Stats struct {
	WorkerCount int
	QueueLen    int
	QueueCap    int
	Submitted   uint64
	Dropped     uint64
	Executed    uint64
	Failed      uint64
}

// Pool 协程池：固定 worker 数量，有界队列，队列满时丢弃
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	submitted atomic.Uint64
	dropped   atomic.Uint64
	executed  atomic.Uint64
	failed    atomic.Uint64
}

var (
	globalPool *Pool
	globalMu   sync.Mutex
)

// InitGlobalPool 初始化全局协程池，重复调用无效
func InitGlobalPool(workers, queueSize int) *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool == nil {
		globalPool = NewPool(workers, queueSize)
	}
	return globalPool
}

// GetGlobalPool 获取全局协程池，未初始化时返回 nil
func GetGlobalPool() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalPool
}

// StopGlobalPool 停止并清空全局协程池
func StopGlobalPool() {
	globalMu.Lock()
	pool := globalPool
	globalPool = nil
	globalMu.Unlock()

	if pool != nil {
		pool.Stop()
	}
}

// NewPool 创建并启动协程池
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	log.Printf("[Worker] Pool started with %d workers, queue size %d", workers, queueSize)
	return p
}

// Stop 停止接收任务，等待队列中已有任务执行完毕
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	log.Println("[Worker] Pool stopped")
}

// Submit 提交任务（非阻塞，队列满或已停止时返回 false）
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		log.Println("[Worker] Queue is full, task dropped")
		return false
	}
}

// SubmitFunc 提交函数任务
func (p *Pool) SubmitFunc(fn func()) bool {
	if fn == nil {
		return p.Submit(nil)
	}
	return p.Submit(TaskFunc(fn))
}

// TrySubmit 队列满时按间隔重试
func (p *Pool) TrySubmit(task Task, retries int, interval time.Duration) bool {
	for i := 0; i <= retries; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		if p.Submit(task) {
			return true
		}
	}
	return false
}

// GetStats 返回统计快照
func (p *Pool) GetStats() Stats {
	return Stats{
		WorkerCount: p.workers,
		QueueLen:    len(p.queue),
		QueueCap:    cap(p.queue),
		Submitted:   p.submitted.Load(),
		Dropped:     p.dropped.Load(),
		Executed:    p.executed.Load(),
		Failed:      p.failed.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		if task == nil {
			continue
		}
		p.executeTask(task)
	}
}

// executeTask 执行任务并捕获 panic
func (p *Pool) executeTask(task Task) {
	defer func() {
		p.executed.Add(1)
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.Printf("[Worker] Panic recovered in async task: %v", r)
		}
	}()
	task.Execute()
}

// Submit 提交任务到全局池，未初始化时同步执行
func Submit(task Task) bool {
	pool := GetGlobalPool()
	if pool == nil {
		if task != nil {
			task.Execute()
		}
		return true
	}
	return pool.Submit(task)
}
