// Package notify sends desktop notifications when transfer batches finish.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/logging"
)

const appTitle = "objectdesk"

// Notifier handles desktop notifications.
type Notifier struct {
	logger    *logging.Logger
	enabled   bool
	onFailure bool
	mu        sync.RWMutex

	// send delivers one notification; beeep.Notify unless replaced in tests.
	send func(title, message string) error
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent.
	Enabled bool

	// OnFailure sends a notification for each failed transfer as it fails.
	OnFailure bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		OnFailure: true,
	}
}

// ConfigFromSettings maps the [notifications] settings section.
func ConfigFromSettings(s config.NotificationSettings) *Config {
	return &Config{
		Enabled:   s.Enabled,
		OnFailure: s.OnFailure,
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewLogger("notify", nil)
	}

	return &Notifier{
		logger:    logger,
		enabled:   cfg.Enabled,
		onFailure: cfg.OnFailure,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Apply updates the notifier after a settings change.
func (n *Notifier) Apply(cfg *Config) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = cfg.Enabled
	n.onFailure = cfg.OnFailure
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

func (n *Notifier) failuresEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.onFailure
}

// BatchFinished sends one notification summarising a finished batch.
func (n *Notifier) BatchFinished(s Summary) {
	if !n.IsEnabled() || s.Total() == 0 {
		return
	}

	title := "Transfers Complete"
	if s.Failed > 0 {
		title = "Transfers Finished With Errors"
	}

	if err := n.send(title, s.Message()); err != nil {
		n.logger.Warn().Err(err).Int("completed", s.Completed).Int("failed", s.Failed).Msg("Failed to send batch notification")
	}
}

// TransferFailed sends a notification for one failed transfer.
func (n *Notifier) TransferFailed(kind, name, errorMsg string) {
	if !n.failuresEnabled() {
		return
	}

	title := "Transfer Failed"
	message := fmt.Sprintf("%s of \"%s\" failed:\n%s", capitalize(kind), truncate(name, 40), truncate(errorMsg, 100))

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("name", name).Msg("Failed to send transfer failed notification")
	}
}

// Alert sends an alert notification (error level).
// This is for critical issues that require user attention.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}

	title := appTitle + " alert"

	if err := beeep.Alert(title, message, ""); err != nil {
		if err := n.send(title, message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

// Beep plays the system beep.
func (n *Notifier) Beep() {
	if !n.IsEnabled() {
		return
	}
	_ = beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

// Summary counts the outcomes of one batch of transfers.
type Summary struct {
	Completed int
	Failed    int
	Cancelled int
	// LastName is the most recent transfer that finished.
	LastName string
	// LastPath is the local path of the most recent download, if any.
	LastPath string
}

// Total is the number of transfers in the batch.
func (s Summary) Total() int {
	return s.Completed + s.Failed + s.Cancelled
}

// Message renders the notification body.
func (s Summary) Message() string {
	if s.Total() == 1 && s.Completed == 1 {
		msg := fmt.Sprintf("\"%s\" finished.", truncate(s.LastName, 40))
		if s.LastPath != "" {
			msg += "\n" + shortenPath(s.LastPath)
		}
		return msg
	}
	msg := fmt.Sprintf("%d of %d transfer(s) finished.", s.Completed, s.Total())
	if s.Failed > 0 {
		msg += fmt.Sprintf("\n%d failed.", s.Failed)
	}
	if s.Cancelled > 0 {
		msg += fmt.Sprintf("\n%d cancelled.", s.Cancelled)
	}
	return msg
}

// Batch groups transfer events into bursts. A burst ends when no transfer it
// has seen queued is still pending.
type Batch struct {
	pending map[string]struct{}
	summary Summary
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{pending: make(map[string]struct{})}
}

// Observe records ev. It returns the burst summary and true when ev finished
// the last pending transfer. Transfers queued before the batch started
// watching are ignored.
func (b *Batch) Observe(ev *events.TransferEvent) (Summary, bool) {
	switch ev.Type() {
	case events.EventTransferQueued, events.EventTransferStarted:
		b.pending[ev.TaskID] = struct{}{}
		return Summary{}, false
	case events.EventTransferCompleted, events.EventTransferFailed, events.EventTransferCancelled:
	default:
		return Summary{}, false
	}

	if _, ok := b.pending[ev.TaskID]; !ok {
		return Summary{}, false
	}
	delete(b.pending, ev.TaskID)

	switch ev.Type() {
	case events.EventTransferCompleted:
		b.summary.Completed++
	case events.EventTransferFailed:
		b.summary.Failed++
	case events.EventTransferCancelled:
		b.summary.Cancelled++
	}
	b.summary.LastName = ev.Name
	b.summary.LastPath = ""
	if ev.Kind == "download" {
		b.summary.LastPath = ev.LocalPath
	}

	if len(b.pending) > 0 {
		return Summary{}, false
	}
	s := b.summary
	b.summary = Summary{}
	return s, true
}

// Pending is the number of transfers the current burst is waiting on.
func (b *Batch) Pending() int {
	return len(b.pending)
}

func capitalize(s string) string {
	if s == "" {
		return "Transfer"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	// Try to show drive/root + ... + last 2 path components
	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))

	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}

	return short
}
