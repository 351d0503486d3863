package transfer

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/objectdesk/objectdesk/internal/logging"
)

func bufferLogger(buf *bytes.Buffer) *logging.Logger {
	l := logging.NewLogger("timing-test", nil)
	l.SetOutput(buf)
	return l
}

func TestTimingEnabled(t *testing.T) {
	t.Setenv(TimingEnvVar, "")
	assert.False(t, TimingEnabled())

	t.Setenv(TimingEnvVar, "0")
	assert.False(t, TimingEnabled())

	t.Setenv(TimingEnvVar, "true")
	assert.False(t, TimingEnabled(), "only exactly 1 enables timing")

	t.Setenv(TimingEnvVar, "1")
	assert.True(t, TimingEnabled())
}

func TestTimer_StopWithThroughput(t *testing.T) {
	t.Setenv(TimingEnvVar, "1")
	var buf bytes.Buffer

	timer := StartTimer(bufferLogger(&buf), "download a.bin")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThroughput(2 * 1024 * 1024)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, "[TIMING] download a.bin:")
	assert.Contains(t, out, "total 2.00 MB at")
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	t.Setenv(TimingEnvVar, "1")
	var buf bytes.Buffer

	timer := StartTimer(bufferLogger(&buf), "upload x")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer.Stop()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("[TIMING]")))
}

func TestTimer_Disabled(t *testing.T) {
	t.Setenv(TimingEnvVar, "")
	var buf bytes.Buffer

	timer := StartTimer(bufferLogger(&buf), "upload x")
	assert.GreaterOrEqual(t, timer.Elapsed(), time.Duration(0))
	timer.Stop()
	assert.Empty(t, buf.String())

	assert.NotPanics(t, func() { StartTimer(nil, "silent").StopWithThroughput(10) })
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "512.0 B/s", FormatSpeed(512))
	assert.Equal(t, "1.5 KB/s", FormatSpeed(1536))
	assert.Equal(t, "2.0 MB/s", FormatSpeed(2*1024*1024))
}
