package gui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/transfer"
)

const (
	maxLogs = 10000

	// transferRedraw bounds how often progress events redraw the list.
	transferRedraw = 250 * time.Millisecond
)

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Level     events.LogLevel
	Component string
	Message   string
}

// ActivityView shows transfers with cancel/retry controls above the
// filtered activity log.
type ActivityView struct {
	engine *core.Engine
	window fyne.Window

	mu           sync.Mutex
	tasks        []transfer.TransferTask
	redrawQueued bool
	logs         []LogEntry

	transferList *widget.List
	summary      *widget.Label
	logText      *widget.Entry
	logScroll    *container.Scroll
	levelFilter  *widget.Select
	searchEntry  *widget.Entry
	autoScroll   *widget.Check
}

// NewActivityView creates the activity pane.
func NewActivityView(engine *core.Engine, window fyne.Window) *ActivityView {
	return &ActivityView{
		engine: engine,
		window: window,
		logs:   make([]LogEntry, 0, 1000),
	}
}

// Build creates the pane layout.
func (av *ActivityView) Build() fyne.CanvasObject {
	av.summary = widget.NewLabel("No transfers")
	av.transferList = widget.NewList(
		func() int {
			av.mu.Lock()
			defer av.mu.Unlock()
			return len(av.tasks)
		},
		av.newTransferRow,
		av.updateTransferRow,
	)

	transferButtons := container.NewHBox(
		widget.NewButtonWithIcon("Cancel All", theme.CancelIcon(), func() {
			av.engine.TransferService().CancelAll()
		}),
		widget.NewButtonWithIcon("Clear Finished", theme.ContentClearIcon(), func() {
			av.engine.TransferService().ClearCompleted()
			av.scheduleRedraw()
		}),
	)
	transfers := container.NewBorder(
		container.NewBorder(nil, nil, av.summary, transferButtons),
		nil, nil, nil,
		av.transferList,
	)

	av.logText = widget.NewMultiLineEntry()
	av.logText.SetPlaceHolder("Activity logs will appear here...")
	av.logText.Wrapping = fyne.TextWrapWord
	av.logText.Disable()
	av.logScroll = container.NewScroll(av.logText)

	av.searchEntry = widget.NewEntry()
	av.searchEntry.SetPlaceHolder("Search logs...")
	av.searchEntry.OnChanged = func(string) { av.refreshLogs() }

	av.levelFilter = widget.NewSelect([]string{"All Levels", "DEBUG", "INFO", "WARN", "ERROR"}, func(string) {
		av.refreshLogs()
	})
	av.levelFilter.SetSelected("All Levels")

	av.autoScroll = widget.NewCheck("Auto-scroll", nil)
	av.autoScroll.SetChecked(true)

	logBar := container.NewBorder(
		nil, nil,
		container.NewHBox(widget.NewLabel("Level:"), av.levelFilter),
		container.NewHBox(
			av.autoScroll,
			widget.NewButton("Clear Logs", av.confirmClearLogs),
			widget.NewButton("Export Logs", av.exportLogs),
		),
		av.searchEntry,
	)
	logs := container.NewBorder(logBar, nil, nil, nil, av.logScroll)

	split := container.NewVSplit(transfers, logs)
	split.Offset = 0.45
	return split
}

func (av *ActivityView) newTransferRow() fyne.CanvasObject {
	icon := widget.NewIcon(theme.DownloadIcon())
	name := widget.NewLabel("transfer name")
	name.Truncation = fyne.TextTruncateEllipsis
	bar := widget.NewProgressBar()
	state := widget.NewLabel("queued")
	action := widget.NewButtonWithIcon("", theme.CancelIcon(), nil)
	return container.NewBorder(nil, nil, icon, container.NewHBox(state, action), container.NewVBox(name, bar))
}

func (av *ActivityView) updateTransferRow(id widget.ListItemID, obj fyne.CanvasObject) {
	av.mu.Lock()
	if id >= len(av.tasks) {
		av.mu.Unlock()
		return
	}
	task := &av.tasks[id]
	av.mu.Unlock()

	row := obj.(*fyne.Container)
	body := row.Objects[0].(*fyne.Container)
	icon := row.Objects[1].(*widget.Icon)
	right := row.Objects[2].(*fyne.Container)
	name := body.Objects[0].(*widget.Label)
	bar := body.Objects[1].(*widget.ProgressBar)
	state := right.Objects[0].(*widget.Label)
	action := right.Objects[1].(*widget.Button)

	if task.Type == transfer.TaskTypeUpload {
		icon.SetResource(theme.UploadIcon())
	} else {
		icon.SetResource(theme.DownloadIcon())
	}
	name.SetText(fmt.Sprintf("%s  (%s)", task.Name, models.HumanSize(task.Size)))
	bar.SetValue(task.Progress)

	label := string(task.State)
	switch task.State {
	case transfer.TaskActive:
		label = formatRate(task.Speed)
	case transfer.TaskFailed:
		if task.Error != nil {
			label = "failed: " + task.Error.Error()
		}
	}
	state.SetText(label)

	taskID := task.ID
	switch task.State {
	case transfer.TaskQueued, transfer.TaskActive:
		action.SetIcon(theme.CancelIcon())
		action.OnTapped = func() { _ = av.engine.TransferService().CancelTransfer(taskID) }
		action.Show()
	case transfer.TaskFailed, transfer.TaskCancelled:
		action.SetIcon(theme.ViewRefreshIcon())
		action.OnTapped = func() {
			if err := av.engine.TransferService().RetryTransfer(taskID); err != nil {
				dialog.ShowError(err, av.window)
			}
		}
		action.Show()
	default:
		action.OnTapped = nil
		action.Hide()
	}
}

// UpdateTransfer schedules a redraw of the transfer list. Bursts of
// progress events collapse into one redraw per transferRedraw.
func (av *ActivityView) UpdateTransfer(*events.TransferEvent) {
	av.scheduleRedraw()
}

func (av *ActivityView) scheduleRedraw() {
	av.mu.Lock()
	if av.redrawQueued {
		av.mu.Unlock()
		return
	}
	av.redrawQueued = true
	av.mu.Unlock()

	time.AfterFunc(transferRedraw, func() {
		tasks := av.engine.TransferService().GetTasks()
		stats := av.engine.TransferService().GetStats()

		av.mu.Lock()
		av.tasks = tasks
		av.redrawQueued = false
		av.mu.Unlock()

		fyne.Do(func() {
			if stats.Total() == 0 {
				av.summary.SetText("No transfers")
			} else {
				av.summary.SetText(fmt.Sprintf("%d active, %d queued, %d done, %d failed",
					stats.Active, stats.Queued, stats.Completed, stats.Failed))
			}
			av.transferList.Refresh()
		})
	})
}

// AddLog appends a log event and redraws the log.
func (av *ActivityView) AddLog(event *events.LogEvent) {
	av.mu.Lock()
	av.logs = append(av.logs, LogEntry{
		Timestamp: event.Timestamp(),
		Level:     event.Level,
		Component: event.Component,
		Message:   event.Message,
	})
	if len(av.logs) > maxLogs {
		av.logs = av.logs[len(av.logs)-maxLogs:]
	}
	av.mu.Unlock()

	fyne.Do(func() {
		av.refreshLogs()
		if av.autoScroll.Checked {
			av.logScroll.ScrollToBottom()
		}
	})
}

// refreshLogs redraws the log text. UI thread only.
func (av *ActivityView) refreshLogs() {
	if av.logText == nil || av.levelFilter == nil || av.searchEntry == nil {
		return
	}
	level := av.levelFilter.Selected
	search := strings.ToLower(av.searchEntry.Text)

	av.mu.Lock()
	var sb strings.Builder
	for _, entry := range av.logs {
		if level != "All Levels" && entry.Level.String() != level {
			continue
		}
		line := formatLogEntry(entry)
		if search != "" && !strings.Contains(strings.ToLower(line), search) {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	av.mu.Unlock()

	av.logText.SetText(sb.String())
}

func formatLogEntry(entry LogEntry) string {
	parts := []string{entry.Timestamp.Format("15:04:05"), entry.Level.String()}
	if entry.Component != "" {
		parts = append(parts, "["+entry.Component+"]")
	}
	parts = append(parts, entry.Message)
	return strings.Join(parts, " ")
}

func (av *ActivityView) confirmClearLogs() {
	av.mu.Lock()
	n := len(av.logs)
	av.mu.Unlock()

	dialog.ShowConfirm("Clear Logs?", fmt.Sprintf("This will delete all %d log entries.", n), func(ok bool) {
		if !ok {
			return
		}
		av.mu.Lock()
		av.logs = make([]LogEntry, 0, 1000)
		av.mu.Unlock()
		av.refreshLogs()
	}, av.window)
}

func (av *ActivityView) exportLogs() {
	dialog.ShowFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, av.window)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()

		av.mu.Lock()
		var sb strings.Builder
		fmt.Fprintf(&sb, "objectdesk activity log, exported %s\n\n", time.Now().Format(time.RFC3339))
		for _, entry := range av.logs {
			sb.WriteString(formatLogEntry(entry))
			sb.WriteString("\n")
		}
		av.mu.Unlock()

		if _, err := w.Write([]byte(sb.String())); err != nil {
			dialog.ShowError(err, av.window)
		}
	}, av.window)
}

// formatRate renders a transfer speed for the state column.
func formatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "starting"
	}
	return models.HumanSize(int64(bytesPerSec)) + "/s"
}
