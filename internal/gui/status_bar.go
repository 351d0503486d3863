package gui

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	ustrings "github.com/objectdesk/objectdesk/internal/util/strings"
)

// StatusLevel selects the icon shown next to a status message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusProgress
)

// successLinger is how long a success message stays before reverting to Ready.
const successLinger = 5 * time.Second

// StatusBar is the window footer: an icon or spinner, the last message, and
// the number of transfers still running on the right.
type StatusBar struct {
	widget.BaseWidget

	mu        sync.Mutex
	level     StatusLevel
	message   string
	seq       uint64
	transfers int

	icon           *widget.Icon
	label          *widget.Label
	spinner        *widget.Activity
	transfersLabel *widget.Label
}

// NewStatusBar creates a status bar showing "Ready".
func NewStatusBar() *StatusBar {
	sb := &StatusBar{
		level:   StatusInfo,
		message: "Ready",
	}
	sb.label = widget.NewLabel("Ready")
	sb.label.TextStyle = fyne.TextStyle{Italic: true}
	sb.label.Truncation = fyne.TextTruncateEllipsis
	sb.icon = widget.NewIcon(theme.InfoIcon())
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.transfersLabel = widget.NewLabel("")
	sb.transfersLabel.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus updates the message and level. Safe to call from any goroutine.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.seq++
	seq := sb.seq
	sb.mu.Unlock()

	fyne.Do(func() {
		sb.label.SetText(message)
		sb.spinner.Stop()
		sb.spinner.Hide()
		sb.icon.Show()

		switch level {
		case StatusInfo:
			sb.icon.SetResource(theme.InfoIcon())
		case StatusSuccess:
			sb.icon.SetResource(theme.ConfirmIcon())
		case StatusWarning:
			sb.icon.SetResource(theme.WarningIcon())
		case StatusError:
			sb.icon.SetResource(theme.ErrorIcon())
		case StatusProgress:
			sb.icon.Hide()
			sb.spinner.Show()
			sb.spinner.Start()
		}
	})

	if level == StatusSuccess {
		time.AfterFunc(successLinger, func() {
			sb.mu.Lock()
			stale := sb.seq != seq
			sb.mu.Unlock()
			if !stale {
				sb.SetInfo("Ready")
			}
		})
	}
}

func (sb *StatusBar) SetInfo(message string)     { sb.SetStatus(message, StatusInfo) }
func (sb *StatusBar) SetSuccess(message string)  { sb.SetStatus(message, StatusSuccess) }
func (sb *StatusBar) SetWarning(message string)  { sb.SetStatus(message, StatusWarning) }
func (sb *StatusBar) SetError(message string)    { sb.SetStatus(message, StatusError) }
func (sb *StatusBar) SetProgress(message string) { sb.SetStatus(message, StatusProgress) }

// SetTransfers shows how many transfers of the current burst are unfinished.
// Zero hides the counter.
func (sb *StatusBar) SetTransfers(pending int) {
	sb.mu.Lock()
	if sb.transfers == pending {
		sb.mu.Unlock()
		return
	}
	sb.transfers = pending
	sb.mu.Unlock()

	fyne.Do(func() {
		if pending == 0 {
			sb.transfersLabel.Hide()
			return
		}
		sb.transfersLabel.SetText(ustrings.CountNoun(int64(pending), "transfer") + " in progress")
		sb.transfersLabel.Show()
	})
}

// Transfers returns the last count passed to SetTransfers.
func (sb *StatusBar) Transfers() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.transfers
}

// Message returns the current message and level.
func (sb *StatusBar) Message() (string, StatusLevel) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.message, sb.level
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	content := container.NewBorder(nil, nil, container.NewHBox(sb.icon, sb.spinner), sb.transfersLabel, sb.label)
	return widget.NewSimpleRenderer(content)
}
