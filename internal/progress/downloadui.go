package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/objectdesk/objectdesk/internal/models"
)

// DownloadUI renders one mpb bar per object while a batch transfers.
// Off a terminal it prints a line per file instead.
type DownloadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	totalFiles int
	completed  int32
	verb       string
	arrow      string
}

// FileBar is one object's bar. It implements Reporter.
type FileBar struct {
	bar       *mpb.Bar
	ui        *DownloadUI
	index     int
	key       string
	localPath string
	size      int64
	startTime time.Time
	lastBytes int64
	lastTick  time.Time
}

// NewDownloadUI creates a UI for totalFiles downloads.
func NewDownloadUI(totalFiles int) *DownloadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &DownloadUI{
		progress:   p,
		out:        os.Stdout,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
		verb:       "Downloading",
		arrow:      "←",
	}
}

// NewUploadUI is NewDownloadUI with the summary lines pointing the other way.
func NewUploadUI(totalFiles int) *DownloadUI {
	u := NewDownloadUI(totalFiles)
	u.verb = "Uploading"
	u.arrow = "→"
	return u
}

// AddFileBar creates the bar for the index-th object.
func (u *DownloadUI) AddFileBar(index int, key, localPath string, size int64) *FileBar {
	fb := &FileBar{
		ui:        u,
		index:     index,
		key:       key,
		localPath: localPath,
		size:      size,
		startTime: time.Now(),
		lastTick:  time.Now(),
	}

	label := fmt.Sprintf("[%d/%d] %s (%s)", index, u.totalFiles, truncatePath(localPath, 2), models.HumanSize(size))
	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(label, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
				decor.Name("  ETA "),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "%s %s %s %s\n", u.verb, label, u.arrow, key)
	}
	return fb
}

// Start implements Reporter; the bar is created with its size already.
func (f *FileBar) Start(total int64, description string) {
	f.startTime = time.Now()
	f.lastTick = f.startTime
	if f.bar != nil && total != f.size {
		f.size = total
		f.bar.SetTotal(total, false)
	}
}

// Update implements Reporter. EwmaIncrBy keeps the speed and ETA decorators fed.
func (f *FileBar) Update(current int64) {
	if f.bar == nil {
		return
	}
	now := time.Now()
	f.bar.EwmaIncrBy(int(current-f.lastBytes), now.Sub(f.lastTick))
	f.lastBytes = current
	f.lastTick = now
}

// Finish implements Reporter and prints a summary line above the bars.
func (f *FileBar) Finish() {
	elapsed := time.Since(f.startTime)
	if f.bar != nil {
		f.bar.SetCurrent(f.size)
		f.bar.SetTotal(f.size, true)
	}
	rate := float64(f.size)
	if s := elapsed.Seconds(); s > 0 {
		rate /= s
	}
	f.ui.println(fmt.Sprintf("✓ %s %s %s (%s, %s, %s/s)",
		truncatePath(f.localPath, 2), f.ui.arrow, f.key, models.HumanSize(f.size),
		elapsed.Round(time.Millisecond), models.HumanSize(int64(rate))))
	atomic.AddInt32(&f.ui.completed, 1)
}

// Error implements Reporter; the failed bar stays visible.
func (f *FileBar) Error(err error) {
	if f.bar != nil {
		f.bar.Abort(false)
	}
	f.ui.println(fmt.Sprintf("✗ %s %s %s: %v", truncatePath(f.localPath, 2), f.ui.arrow, f.key, err))
	atomic.AddInt32(&f.ui.completed, 1)
}

// println writes through mpb when bars are live so they are not torn.
func (u *DownloadUI) println(msg string) {
	if u.isTerminal {
		fmt.Fprintln(u.progress, msg)
		return
	}
	fmt.Fprintln(u.out, msg)
}

// Wait blocks until all bars are finished or aborted.
func (u *DownloadUI) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints above the bars.
func (u *DownloadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Completed returns the number of finished or failed files.
func (u *DownloadUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal reports whether bars are drawn.
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}
