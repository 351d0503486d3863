package buffers

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestCopyBufferPool(t *testing.T) {
	buf := GetCopyBuffer()
	if buf == nil {
		t.Fatal("GetCopyBuffer returned nil")
	}
	if len(*buf) != CopyBufferSize {
		t.Errorf("expected buffer size %d, got %d", CopyBufferSize, len(*buf))
	}

	(*buf)[0] = 42
	PutCopyBuffer(buf)

	again := GetCopyBuffer()
	defer PutCopyBuffer(again)
	if (*again)[0] != 0 {
		t.Error("pooled buffer should be cleared")
	}
}

func TestPutCopyBufferWithWrongSize(t *testing.T) {
	small := make([]byte, 10)
	PutCopyBuffer(&small) // must not panic
	PutCopyBuffer(nil)
}

func TestCopy(t *testing.T) {
	src := strings.Repeat("x", CopyBufferSize*2+17)
	var dst bytes.Buffer

	n, err := Copy(&dst, strings.NewReader(src))
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != int64(len(src)) || dst.String() != src {
		t.Errorf("copied %d bytes, want %d", n, len(src))
	}
}

func TestConcurrentAccess(t *testing.T) {
	before := GetStats().Gets

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := GetCopyBuffer()
			(*buf)[0] = 1
			PutCopyBuffer(buf)
		}()
	}
	wg.Wait()

	if got := GetStats().Gets - before; got != 20 {
		t.Errorf("expected 20 gets, got %d", got)
	}
}
