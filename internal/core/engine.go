// Package core wires the storage backend, services and event bus shared by
// the desktop and terminal front ends.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/objectdesk/objectdesk/internal/browser"
	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
	"github.com/objectdesk/objectdesk/internal/transfer"
)

// ErrNotConnected is returned by operations that need a backend before
// Connect has succeeded.
var ErrNotConnected = errors.New("not connected to a storage backend")

// StoreOpener builds a backend for the given settings.
type StoreOpener func(ctx context.Context, settings *config.Settings) (storage.ObjectStore, error)

// Engine owns the settings, the current backend and the services built on
// it. Front ends hold one Engine for the lifetime of the window.
type Engine struct {
	settings     config.Settings
	settingsPath string
	open         StoreOpener
	eventBus     *events.EventBus
	logger       *logging.Logger

	store           storage.ObjectStore
	transferService *services.TransferService
	fileService     *services.FileService

	watchStop chan struct{}
	watchWg   sync.WaitGroup
	closeOnce sync.Once

	mu sync.RWMutex
}

// NewEngine creates an engine. Nothing is opened until Connect.
// settingsPath "" means the default settings file.
func NewEngine(settings *config.Settings, settingsPath string, open StoreOpener, maxConcurrent int) *Engine {
	if settings == nil {
		settings = config.NewSettings()
	}

	eventBus := events.NewEventBus(constants.EventBusMaxBuffer)
	e := &Engine{
		settings:     *settings,
		settingsPath: settingsPath,
		open:         open,
		eventBus:     eventBus,
		logger:       logging.NewLogger("engine", eventBus),
		transferService: services.NewTransferService(nil, eventBus, services.TransferServiceConfig{
			MaxConcurrent: maxConcurrent,
		}),
		fileService: services.NewFileService(nil, eventBus),
		watchStop:   make(chan struct{}),
	}

	completed := eventBus.Subscribe(events.EventTransferCompleted)
	e.watchWg.Add(1)
	go e.watchTransfers(completed)
	return e
}

// Connect opens the backend named by the current settings.
func (e *Engine) Connect(ctx context.Context) error {
	settings := e.Settings()
	return e.connect(ctx, &settings)
}

// connect opens the store before taking the lock; opening can be slow
// (credential chains, proxy setup) and must not block readers.
func (e *Engine) connect(ctx context.Context, settings *config.Settings) error {
	if e.open == nil {
		return ErrNotConnected
	}
	store, err := e.open(ctx, settings)
	if err != nil {
		e.eventBus.PublishLog(events.ErrorLevel, fmt.Sprintf("Failed to connect: %v", err), "engine")
		return err
	}

	e.mu.Lock()
	e.store = store
	e.transferService.SetStore(store)
	e.fileService.SetStore(store)
	e.mu.Unlock()

	e.eventBus.PublishLog(events.InfoLevel, fmt.Sprintf("Connected to %s", store.Backend()), "engine")
	return nil
}

// UpdateSettings reconnects with settings and, on success, saves them.
// The browser is asked to reload since the backend may have changed.
func (e *Engine) UpdateSettings(ctx context.Context, settings *config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := e.connect(ctx, settings); err != nil {
		return err
	}

	e.mu.Lock()
	e.settings = *settings
	e.mu.Unlock()

	if err := e.save(); err != nil {
		return err
	}
	e.eventBus.RequestRefresh("settings changed")
	return nil
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() config.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Events returns the event bus for subscriptions.
func (e *Engine) Events() *events.EventBus {
	return e.eventBus
}

// Store returns the current backend, nil before Connect.
func (e *Engine) Store() storage.ObjectStore {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// TransferService returns the transfer service for upload/download operations.
func (e *Engine) TransferService() *services.TransferService {
	return e.transferService
}

// FileService returns the file service for object and folder operations.
func (e *Engine) FileService() *services.FileService {
	return e.fileService
}

// engineLister lists through whatever backend is current, so a browser
// survives profile switches.
type engineLister struct {
	engine *Engine
}

func (l engineLister) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	store := l.engine.Store()
	if store == nil {
		return nil, ErrNotConnected
	}
	return store.ListPage(ctx, req)
}

// NewBrowser creates a listing controller using the saved view preferences.
func (e *Engine) NewBrowser(viewport browser.Viewport) *browser.Controller {
	settings := e.Settings()

	sortCfg := browser.DefaultSort
	if field, err := browser.ParseSortField(settings.Browser.SortField); err == nil {
		sortCfg = browser.SortConfig{Field: field, Ascending: settings.Browser.SortAscending}
	}
	fileType, err := browser.ParseFileType(settings.Browser.FileType)
	if err != nil {
		fileType = browser.TypeAll
	}

	return browser.NewController(browser.Options{
		Lister:   engineLister{e},
		EventBus: e.eventBus,
		Refresh:  e.eventBus,
		Viewport: viewport,
		PageSize: settings.Browser.PageSize,
		Logger:   logging.NewLogger("browser", e.eventBus),
		Sort:     sortCfg,
		Type:     fileType,
	})
}

// RememberLocation records bucket/prefix for the next start.
func (e *Engine) RememberLocation(bucket, prefix string) {
	e.mu.Lock()
	e.settings.RememberLocation(e.settings.Session.Profile, bucket, prefix)
	e.mu.Unlock()

	if err := e.save(); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to save session location")
	}
}

// SaveViewPreferences persists the sort order and type filter.
func (e *Engine) SaveViewPreferences(sortCfg browser.SortConfig, fileType browser.FileType) {
	e.mu.Lock()
	e.settings.Browser.SortField = string(sortCfg.Field)
	e.settings.Browser.SortAscending = sortCfg.Ascending
	e.settings.Browser.FileType = string(fileType)
	e.mu.Unlock()

	if err := e.save(); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to save view preferences")
	}
}

func (e *Engine) save() error {
	settings := e.Settings()
	return config.SaveSettings(&settings, e.settingsPath)
}

// Download queues the selected entries for download into destDir. Folders
// are expanded recursively. It returns the number of files queued.
func (e *Engine) Download(ctx context.Context, bucket, parentPrefix string, entries []models.Entry, destDir string) (int, error) {
	files, err := e.fileService.PlanDownload(ctx, bucket, parentPrefix, entries, destDir)
	if err != nil {
		return 0, err
	}

	batchID := uuid.NewString()
	requests := make([]services.TransferRequest, 0, len(files))
	for _, f := range files {
		requests = append(requests, services.TransferRequest{
			Type:      transfer.TaskTypeDownload,
			Bucket:    bucket,
			Key:       f.Key,
			LocalPath: f.LocalPath,
			Size:      f.Size,
			BatchID:   batchID,
		})
	}
	return len(requests), e.transferService.StartTransfers(ctx, requests)
}

// Upload queues local files and directories for upload below prefix and
// returns the number of files queued.
func (e *Engine) Upload(ctx context.Context, bucket, prefix string, localPaths []string) (int, error) {
	files, err := services.PlanUpload(localPaths, prefix, services.UploadOptions{})
	if err != nil {
		return 0, err
	}

	batchID := uuid.NewString()
	requests := make([]services.TransferRequest, 0, len(files))
	for _, f := range files {
		requests = append(requests, services.TransferRequest{
			Type:      transfer.TaskTypeUpload,
			Bucket:    bucket,
			Key:       f.Key,
			LocalPath: f.LocalPath,
			Size:      f.Size,
			BatchID:   batchID,
		})
	}
	return len(requests), e.transferService.StartTransfers(ctx, requests)
}

// watchTransfers asks the browser to reload after uploads land and after
// bulk operations finish, so new objects appear without a manual refresh.
// Bursts of completions collapse into one reload.
func (e *Engine) watchTransfers(ch <-chan events.Event) {
	defer e.watchWg.Done()
	defer e.eventBus.Unsubscribe(ch)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var reason string

	for {
		select {
		case <-e.watchStop:
			return
		case <-timer.C:
			e.eventBus.RequestRefresh(reason)
		case ev, ok := <-ch:
			if !ok {
				return
			}
			te, ok := ev.(*events.TransferEvent)
			if !ok {
				continue
			}
			switch te.Kind {
			case string(transfer.TaskTypeUpload), "delete", "rename":
				reason = te.Kind + " completed"
				timer.Reset(constants.RefreshDebounce)
			}
		}
	}
}

// Shutdown cancels transfers and releases the event bus.
func (e *Engine) Shutdown() {
	e.closeOnce.Do(func() {
		e.transferService.CancelAll()
		close(e.watchStop)
		e.watchWg.Wait()
		e.eventBus.Close()
	})
}
