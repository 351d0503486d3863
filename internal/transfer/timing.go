package transfer

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
)

// TimingEnvVar turns on per-transfer timing lines when set to "1".
//
// Output format: [TIMING] phase_name: duration (optional_details)
//
//	[TIMING] download reports/q1.csv: 1.2s (total 32.0 MB at 26.7 MB/s)
const TimingEnvVar = "OBJECTDESK_TIMING"

// TimingEnabled returns true if OBJECTDESK_TIMING=1.
func TimingEnabled() bool {
	return os.Getenv(TimingEnvVar) == "1"
}

// Timer tracks elapsed time for a named phase.
// Stop is safe to call more than once; only the first call logs.
type Timer struct {
	name    string
	start   time.Time
	logger  *logging.Logger
	stopped int32
}

// StartTimer creates a new timer. A nil logger times silently.
func StartTimer(logger *logging.Logger, name string) *Timer {
	return &Timer{
		name:   name,
		start:  time.Now(),
		logger: logger,
	}
}

// Elapsed returns the current elapsed time without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the elapsed time and returns the duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.log(func() string {
		return fmt.Sprintf("[TIMING] %s: %v", t.name, elapsed)
	})
	return elapsed
}

// StopWithThroughput logs elapsed time with the average rate for bytes.
func (t *Timer) StopWithThroughput(bytes int64) time.Duration {
	elapsed := time.Since(t.start)
	t.log(func() string {
		rate := 0.0
		if s := elapsed.Seconds(); s > 0 {
			rate = float64(bytes) / s
		}
		return fmt.Sprintf("[TIMING] %s: %v (total %s at %s)", t.name, elapsed, models.HumanSize(bytes), FormatSpeed(rate))
	})
	return elapsed
}

func (t *Timer) log(msg func() string) {
	if !atomic.CompareAndSwapInt32(&t.stopped, 0, 1) {
		return
	}
	if t.logger == nil || !TimingEnabled() {
		return
	}
	t.logger.Info().Msg(msg())
}

// FormatSpeed returns a human-readable speed in bytes/second.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec < 1024 {
		return fmt.Sprintf("%.1f B/s", bytesPerSec)
	}
	if bytesPerSec < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1024*1024))
}
