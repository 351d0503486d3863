package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/events"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/progress"
	"github.com/objectdesk/objectdesk/internal/util/paths"
	"github.com/objectdesk/objectdesk/internal/validation"
)

// FileService handles object and folder operations on one backend.
// It is frontend-agnostic: no Fyne imports, no framework-specific threading.
type FileService struct {
	store    storage.ObjectStore
	eventBus *events.EventBus
	logger   *logging.Logger

	mu sync.RWMutex
}

// NewFileService creates a new FileService. eventBus may be nil.
func NewFileService(store storage.ObjectStore, eventBus *events.EventBus) *FileService {
	return &FileService{
		store:    store,
		eventBus: eventBus,
		logger:   logging.NewLogger("file-service", eventBus),
	}
}

// SetStore swaps the backend (e.g. after a profile change).
func (fs *FileService) SetStore(store storage.ObjectStore) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.store = store
}

func (fs *FileService) getStore() (storage.ObjectStore, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.store == nil {
		return nil, ErrNoStore
	}
	return fs.store, nil
}

// ListBuckets returns the buckets visible to the current credentials.
func (fs *FileService) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	store, err := fs.getStore()
	if err != nil {
		return nil, err
	}
	return store.ListBuckets(ctx)
}

// ListAll returns every object under prefix, following continuation tokens
// until the listing is exhausted. No delimiter is sent, so nested keys and
// folder marker objects are included.
func (fs *FileService) ListAll(ctx context.Context, bucket, prefix string) ([]models.Entry, error) {
	store, err := fs.getStore()
	if err != nil {
		return nil, err
	}

	var (
		out   []models.Entry
		token string
		pages int
	)
	for {
		page, err := store.ListPage(ctx, storage.ListRequest{
			Bucket:            bucket,
			Prefix:            prefix,
			MaxKeys:           constants.DefaultMaxKeys,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
		}
		pages++
		out = append(out, page.Objects...)

		if !page.IsTruncated || page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	fs.logger.Debug().Str("bucket", bucket).Str("prefix", prefix).
		Int("objects", len(out)).Int("pages", pages).Msg("Recursive listing complete")
	return out, nil
}

// PlanDownload expands the selected entries into individual files and maps
// each to a path under destDir. Folders are listed recursively and keep their
// hierarchy below parentPrefix; folder marker objects are skipped.
func (fs *FileService) PlanDownload(ctx context.Context, bucket, parentPrefix string, entries []models.Entry, destDir string) ([]paths.FileForDownload, error) {
	var files []paths.FileForDownload

	add := func(e models.Entry) error {
		if strings.HasSuffix(e.Key, "/") {
			return nil
		}
		local, err := paths.LocalPathForKey(destDir, parentPrefix, e.Key)
		if err != nil {
			return err
		}
		files = append(files, paths.FileForDownload{
			Key:       e.Key,
			Name:      e.Name(),
			LocalPath: local,
			Size:      e.Size,
		})
		return nil
	}

	for _, e := range entries {
		if !e.IsPrefix {
			if err := add(e); err != nil {
				return nil, err
			}
			continue
		}
		children, err := fs.ListAll(ctx, bucket, e.Key)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if err := add(child); err != nil {
				return nil, err
			}
		}
	}

	files, collisions := paths.ResolveCollisions(files)
	if collisions > 0 {
		fs.logger.Warn().Int("files", collisions).Msg("Renamed downloads that mapped to the same local path")
	}
	return files, nil
}

// Delete removes the given entries. Folders delete every key under their
// prefix, including the folder marker. Individual key failures are collected
// in the result rather than aborting the batch; a listing failure aborts.
func (fs *FileService) Delete(ctx context.Context, bucket string, entries []models.Entry) (DeleteResult, error) {
	var result DeleteResult

	store, err := fs.getStore()
	if err != nil {
		return result, err
	}

	var keys []string
	for _, e := range entries {
		if !e.IsPrefix {
			keys = append(keys, e.Key)
			continue
		}
		children, err := fs.ListAll(ctx, bucket, e.Key)
		if err != nil {
			return result, err
		}
		hasMarker := false
		for _, c := range children {
			keys = append(keys, c.Key)
			if c.Key == e.Key {
				hasMarker = true
			}
		}
		if !hasMarker {
			keys = append(keys, e.Key)
		}
	}

	reporter := fs.operationReporter("delete", fmt.Sprintf("%d objects", len(keys)))
	reporter.Start(int64(len(keys)), "Deleting")

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			reporter.Error(err)
			return result, err
		}
		if err := store.Delete(ctx, bucket, key); err != nil {
			result.Failed = append(result.Failed, DeleteFailure{Key: key, Err: err})
			fs.logger.Warn().Err(err).Str("key", key).Msg("Delete failed")
		} else {
			result.Deleted++
		}
		reporter.Update(int64(i + 1))
	}

	if err := result.Err(); err != nil {
		reporter.Error(err)
	} else {
		reporter.Finish()
	}
	fs.logger.Info().Str("bucket", bucket).Int("deleted", result.Deleted).Int("failed", len(result.Failed)).Msg("Delete finished")
	return result, nil
}

// Rename gives entry a new name in the same parent prefix and returns the new
// key.
func (fs *FileService) Rename(ctx context.Context, bucket string, entry models.Entry, newName string) (string, error) {
	if err := validation.ValidateObjectName(newName); err != nil {
		return "", err
	}
	target := models.ParentPrefix(entry.Key) + newName
	if entry.IsPrefix {
		target += "/"
	}
	return fs.Move(ctx, bucket, entry, target)
}

// Move relocates entry to target within the bucket and returns the new key.
// Object stores have no rename, so each key is copied then deleted. Folders
// move every key below them; target is then a prefix and gains a trailing
// "/" when missing. Existing targets are never overwritten.
func (fs *FileService) Move(ctx context.Context, bucket string, entry models.Entry, target string) (string, error) {
	if err := validation.ValidateKey(target); err != nil {
		return "", err
	}
	store, err := fs.getStore()
	if err != nil {
		return "", err
	}

	if !entry.IsPrefix {
		if strings.HasSuffix(target, "/") {
			target += entry.Name()
		}
		if target == entry.Key {
			return target, nil
		}
		if err := fs.ensureAbsent(ctx, store, bucket, target); err != nil {
			return "", err
		}
		if err := fs.move(ctx, store, bucket, entry.Key, target); err != nil {
			return "", err
		}
		return target, nil
	}

	newPrefix := NormalizeFolder(target)
	if newPrefix == entry.Key {
		return newPrefix, nil
	}
	if strings.HasPrefix(newPrefix, entry.Key) {
		return "", fmt.Errorf("cannot move %s into itself: %w", entry.Key, ErrInvalidName)
	}
	existing, err := fs.ListAll(ctx, bucket, newPrefix)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", fmt.Errorf("%s: %w", newPrefix, ErrAlreadyExists)
	}

	children, err := fs.ListAll(ctx, bucket, entry.Key)
	if err != nil {
		return "", err
	}
	reporter := fs.operationReporter("rename", entry.Name())
	reporter.Start(int64(len(children)), "Moving")
	for i, c := range children {
		dst := newPrefix + strings.TrimPrefix(c.Key, entry.Key)
		if err := fs.move(ctx, store, bucket, c.Key, dst); err != nil {
			reporter.Error(err)
			return "", err
		}
		reporter.Update(int64(i + 1))
	}
	reporter.Finish()
	return newPrefix, nil
}

// NormalizeFolder returns prefix with exactly one trailing "/".
func NormalizeFolder(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/"
}

func (fs *FileService) ensureAbsent(ctx context.Context, store storage.ObjectStore, bucket, key string) error {
	_, err := store.Head(ctx, bucket, key)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", key, ErrAlreadyExists)
	case storage.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func (fs *FileService) move(ctx context.Context, store storage.ObjectStore, bucket, src, dst string) error {
	if err := store.Copy(ctx, bucket, src, dst); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := store.Delete(ctx, bucket, src); err != nil {
		return fmt.Errorf("copied %s but failed to delete the original: %w", src, err)
	}
	fs.logger.Debug().Str("from", src).Str("to", dst).Msg("Moved object")
	return nil
}

// CreateFolder creates a zero-byte "name/" marker under prefix and returns
// the new folder prefix.
func (fs *FileService) CreateFolder(ctx context.Context, bucket, prefix, name string) (string, error) {
	name = strings.TrimSuffix(name, "/")
	if err := validation.ValidateObjectName(name); err != nil {
		return "", err
	}
	store, err := fs.getStore()
	if err != nil {
		return "", err
	}

	key := prefix + name + "/"
	if err := store.Put(ctx, bucket, key, strings.NewReader(""), 0, "application/x-directory"); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", key, err)
	}
	fs.logger.Info().Str("bucket", bucket).Str("key", key).Msg("Folder created")
	return key, nil
}

// ReadText loads a small object for preview or editing. Objects larger than
// constants.PreviewMaxBytes and non-UTF-8 content are refused.
func (fs *FileService) ReadText(ctx context.Context, bucket, key string) (string, error) {
	if strings.HasSuffix(key, "/") {
		return "", ErrIsFolder
	}
	store, err := fs.getStore()
	if err != nil {
		return "", err
	}

	body, info, err := store.Get(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if info != nil && info.Size > constants.PreviewMaxBytes {
		return "", fmt.Errorf("%s is %s: %w", key, models.HumanSize(info.Size), ErrTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(body, constants.PreviewMaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(data) > constants.PreviewMaxBytes {
		return "", fmt.Errorf("%s: %w", key, ErrTooLarge)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", key, ErrNotText)
	}
	return string(data), nil
}

// WriteText replaces an object's content with text.
func (fs *FileService) WriteText(ctx context.Context, bucket, key, content string) error {
	if strings.HasSuffix(key, "/") {
		return ErrIsFolder
	}
	store, err := fs.getStore()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, bucket, key, strings.NewReader(content), int64(len(content)), contentTypeFor(key, "text/plain; charset=utf-8")); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	fs.logger.Info().Str("bucket", bucket).Str("key", key).Int("bytes", len(content)).Msg("Object saved")
	return nil
}

// operationReporter publishes bulk-operation progress on the bus when one is
// attached.
func (fs *FileService) operationReporter(kind, name string) progress.Reporter {
	if fs.eventBus == nil {
		return progress.NoOpProgress{}
	}
	return progress.NewEventProgress(fs.eventBus, uuid.NewString(), kind, name)
}

// contentTypeFor guesses a MIME type from the key's extension.
func contentTypeFor(key, fallback string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return fallback
}
