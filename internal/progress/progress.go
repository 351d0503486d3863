// Package progress reports transfer progress to a terminal (progress bars)
// or to the event bus (GUI and TUI).
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/objectdesk/objectdesk/internal/events"
)

// Reporter receives progress for one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

// CLIProgress draws a single progressbar on stderr. It stays silent when
// stderr is not a terminal.
type CLIProgress struct {
	out io.Writer
	tty bool
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{
		out: os.Stderr,
		tty: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	if !p.tty {
		return
	}
	enableANSIOnWindows(os.Stderr)
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to current bytes.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error leaves the bar where it stopped; the caller reports the error.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
		fmt.Fprint(p.out, "\n")
	}
}

// EventProgress publishes transfer events for one task on the bus.
// Progress events are throttled to one per interval.
type EventProgress struct {
	bus      *events.EventBus
	taskID   string
	kind     string
	name     string
	interval time.Duration

	mu       sync.Mutex
	total    int64
	lastSent time.Time
}

// NewEventProgress creates a reporter for a task. kind is "download" or "upload".
func NewEventProgress(bus *events.EventBus, taskID, kind, name string) *EventProgress {
	return &EventProgress{
		bus:      bus,
		taskID:   taskID,
		kind:     kind,
		name:     name,
		interval: 200 * time.Millisecond,
	}
}

// Start publishes EventTransferStarted.
func (p *EventProgress) Start(total int64, description string) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
	p.bus.Publish(events.NewTransferEvent(events.EventTransferStarted, p.taskID, p.kind, p.name, total, 0, nil))
}

// Update publishes EventTransferProgress at most once per interval.
func (p *EventProgress) Update(current int64) {
	p.mu.Lock()
	now := time.Now()
	if now.Sub(p.lastSent) < p.interval && current < p.total {
		p.mu.Unlock()
		return
	}
	p.lastSent = now
	total := p.total
	p.mu.Unlock()

	p.bus.Publish(events.NewTransferEvent(events.EventTransferProgress, p.taskID, p.kind, p.name, total, fraction(current, total), nil))
}

// Finish publishes EventTransferCompleted.
func (p *EventProgress) Finish() {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()
	p.bus.Publish(events.NewTransferEvent(events.EventTransferCompleted, p.taskID, p.kind, p.name, total, 1, nil))
}

// Error publishes EventTransferFailed.
func (p *EventProgress) Error(err error) {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()
	p.bus.Publish(events.NewTransferEvent(events.EventTransferFailed, p.taskID, p.kind, p.name, total, 0, err))
}

// NoOpProgress discards progress.
type NoOpProgress struct{}

func (NoOpProgress) Start(total int64, description string) {}
func (NoOpProgress) Update(current int64)                  {}
func (NoOpProgress) Finish()                               {}
func (NoOpProgress) Error(err error)                       {}

// Multi fans progress out to several reporters.
type Multi []Reporter

func (m Multi) Start(total int64, description string) {
	for _, r := range m {
		r.Start(total, description)
	}
}

func (m Multi) Update(current int64) {
	for _, r := range m {
		r.Update(current)
	}
}

func (m Multi) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

func (m Multi) Error(err error) {
	for _, r := range m {
		r.Error(err)
	}
}

// ProgressReader wraps an io.Reader to report bytes read so far.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: reader, reporter: reporter}
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		pr.reporter.Update(pr.current)
	}
	return n, err
}

// Current returns the bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}

func fraction(current, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(current) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// truncatePath keeps the last maxComponents path components.
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
