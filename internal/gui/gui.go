package gui

import (
	"context"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"github.com/rs/zerolog"

	"github.com/objectdesk/objectdesk/internal/core"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/notify"
)

var (
	// guiLogger is the package-level logger for GUI mode
	guiLogger *logging.Logger
)

func launchGUI(ctx context.Context, engine *core.Engine) error {
	guiLogger = logging.NewLogger("gui", engine.Events())

	// In GUI mode the console only shows warnings unless OBJECTDESK_DEBUG is set.
	if os.Getenv("OBJECTDESK_DEBUG") != "" {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		guiLogger.Info().Msg("Debug logging enabled via OBJECTDESK_DEBUG")
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	go monitorGoroutines(ctx)

	myApp := app.NewWithID("io.objectdesk.browser")
	myApp.Settings().SetTheme(&objectdeskTheme{})

	mainWindow := myApp.NewWindow("objectdesk")
	mainWindow.SetMaster()

	ui := NewUI(ctx, engine, mainWindow, myApp)
	mainWindow.SetContent(ui.Build())
	ui.Start()

	// Interrupts from the terminal close the window too.
	go func() {
		<-ui.ctx.Done()
		fyne.Do(myApp.Quit)
	}()

	mainWindow.Resize(fyne.NewSize(1100, 700))
	mainWindow.CenterOnScreen()
	mainWindow.SetOnClosed(ui.Stop)

	ui.Connect()
	mainWindow.ShowAndRun()
	return nil
}

// UI is the main window: the browser pane, the activity pane and the
// status bar shared by both.
type UI struct {
	engine    *core.Engine
	window    fyne.Window
	app       fyne.App
	browser   *BrowserView
	activity  *ActivityView
	statusBar *StatusBar
	notifier  *notify.Notifier
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewUI creates the window contents. Nothing is listed until Connect.
func NewUI(ctx context.Context, engine *core.Engine, window fyne.Window, app fyne.App) *UI {
	ctx, cancel := context.WithCancel(ctx)

	ui := &UI{
		engine:    engine,
		window:    window,
		app:       app,
		statusBar: NewStatusBar(),
		notifier:  notify.NewNotifier(notify.ConfigFromSettings(engine.Settings().Notifications), guiLogger),
		ctx:       ctx,
		cancel:    cancel,
	}
	ui.browser = NewBrowserView(ctx, engine, window, ui.statusBar)
	ui.activity = NewActivityView(engine, window)
	return ui
}

// Build creates the window layout.
func (ui *UI) Build() fyne.CanvasObject {
	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Browse", theme.FolderOpenIcon(), ui.browser.Build()),
		container.NewTabItemWithIcon("Activity", theme.InfoIcon(), ui.activity.Build()),
	)
	tabs.SelectIndex(0)

	settingsBtn := NewPrimaryButtonWithIcon("Settings", theme.SettingsIcon(), func() {
		showSettingsDialog(ui.ctx, ui.engine, ui.window, func() {
			ui.notifier.Apply(notify.ConfigFromSettings(ui.engine.Settings().Notifications))
			ui.browser.OpenSaved()
		})
	})

	ui.window.Canvas().SetOnTypedKey(ui.browser.TypedKey)

	return container.NewBorder(
		nil,
		container.NewBorder(nil, nil, nil, settingsBtn, ui.statusBar),
		nil, nil,
		tabs,
	)
}

// Connect opens the configured backend in the background and restores the
// last location.
func (ui *UI) Connect() {
	ui.statusBar.SetProgress("Connecting...")
	go func() {
		if err := ui.engine.Connect(ui.ctx); err != nil {
			guiLogger.Warn().Err(err).Msg("Connect failed")
			ui.statusBar.SetError("Not connected: " + err.Error())
			return
		}
		ui.statusBar.SetSuccess("Connected")
		ui.browser.OpenSaved()
	}()
}

// Start begins event monitoring.
func (ui *UI) Start() {
	go ui.monitorListing()
	go ui.monitorTransfers()
	go ui.monitorLogs()
}

// Stop ends event monitoring and shuts the engine down.
func (ui *UI) Stop() {
	ui.cancel()
	ui.browser.Close()
	ui.engine.Shutdown()
}

// monitorListing forwards browser events to the browser view. The view
// methods marshal onto the UI thread themselves.
func (ui *UI) monitorListing() {
	bus := ui.engine.Events()
	listing := bus.Subscribe(events.EventListingChanged)
	failed := bus.Subscribe(events.EventListingFailed)
	selection := bus.Subscribe(events.EventSelectionChanged)
	search := bus.Subscribe(events.EventSearchState)
	navigated := bus.Subscribe(events.EventNavigated)

	for {
		select {
		case _, ok := <-listing:
			if !ok {
				return
			}
			ui.browser.OnListingChanged()
		case event, ok := <-failed:
			if !ok {
				return
			}
			ui.browser.OnListingFailed(event.(*events.ListingFailedEvent))
		case _, ok := <-selection:
			if !ok {
				return
			}
			ui.browser.OnSelectionChanged()
		case event, ok := <-search:
			if !ok {
				return
			}
			ui.browser.OnSearchState(event.(*events.SearchEvent))
		case event, ok := <-navigated:
			if !ok {
				return
			}
			nav := event.(*events.NavigatedEvent)
			ui.browser.OnNavigated(nav)
			if nav.Bucket != "" {
				go ui.engine.RememberLocation(nav.Bucket, nav.Prefix)
			}
		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) monitorTransfers() {
	bus := ui.engine.Events()
	var chans []<-chan events.Event
	for _, t := range []events.EventType{
		events.EventTransferQueued,
		events.EventTransferStarted,
		events.EventTransferProgress,
		events.EventTransferCompleted,
		events.EventTransferFailed,
		events.EventTransferCancelled,
	} {
		chans = append(chans, bus.Subscribe(t))
	}
	merged := events.Merge(ui.ctx, chans...)
	batch := notify.NewBatch()

	for {
		select {
		case event, ok := <-merged:
			if !ok {
				return
			}
			te := event.(*events.TransferEvent)
			ui.activity.UpdateTransfer(te)
			switch te.Type() {
			case events.EventTransferCompleted:
				ui.statusBar.SetSuccess(te.Kind + " finished: " + te.Name)
			case events.EventTransferFailed:
				ui.statusBar.SetError(te.Kind + " failed: " + te.Name)
				if te.Error != nil {
					ui.notifier.TransferFailed(te.Kind, te.Name, te.Error.Error())
				}
			}
			if summary, done := batch.Observe(te); done {
				ui.notifier.BatchFinished(summary)
			}
			ui.statusBar.SetTransfers(batch.Pending())
		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) monitorLogs() {
	ch := ui.engine.Events().Subscribe(events.EventLog)

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			ui.activity.AddLog(event.(*events.LogEvent))
		case <-ui.ctx.Done():
			return
		}
	}
}

var goroutineCount int64

func monitorGoroutines(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		count := runtime.NumGoroutine()
		prev := atomic.SwapInt64(&goroutineCount, int64(count))
		delta := int64(count) - prev

		guiLogger.Debug().
			Int("count", count).
			Int64("delta", delta).
			Msg("[MONITOR] Goroutines")

		if count > 100 {
			guiLogger.Warn().
				Int("count", count).
				Msg("[MONITOR] High goroutine count")
		}
	}
}
