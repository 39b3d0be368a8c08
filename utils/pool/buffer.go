package pool

import "sync"

// BufferSize 统一缓冲区大小（256KB）
const BufferSize = 256 * 1024

// SharedBufferPool 存储 *([]byte) 以避免 SA6002 警告
var SharedBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, BufferSize)
		return &buf
	},
}

// Get 取出一个缓冲区，用完后必须 Put
func Get() *[]byte {
	return SharedBufferPool.Get().(*[]byte)
}

// Put 归还缓冲区
func Put(buf *[]byte) {
	SharedBufferPool.Put(buf)
}
