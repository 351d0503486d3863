// Package buffers provides reusable copy buffers for object downloads and
// uploads, keeping allocations flat when many transfers run at once.
package buffers

import (
	"io"
	"sync"
	"sync/atomic"
)

// CopyBufferSize is the size of pooled copy buffers (256 KB).
const CopyBufferSize = 256 * 1024

// Pool monitoring counters
var (
	copyAllocations int64 // New buffers created by the pool
	copyGets        int64 // Total buffers handed out
)

var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&copyAllocations, 1)
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a buffer from the pool.
// Return it with PutCopyBuffer when done.
func GetCopyBuffer() *[]byte {
	atomic.AddInt64(&copyGets, 1)
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool. Buffers of the wrong size are
// dropped. The buffer is cleared so object data does not linger.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == CopyBufferSize {
		clear(*buf)
		copyPool.Put(buf)
	}
}

// Copy is io.CopyBuffer with a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := GetCopyBuffer()
	defer PutCopyBuffer(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// Stats returns current buffer pool statistics
type Stats struct {
	BufferSize  int
	Allocations int64
	Gets        int64
}

// GetStats returns the pool counters.
func GetStats() Stats {
	return Stats{
		BufferSize:  CopyBufferSize,
		Allocations: atomic.LoadInt64(&copyAllocations),
		Gets:        atomic.LoadInt64(&copyGets),
	}
}
