package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/objectdesk/objectdesk/internal/cloud/providers"
	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/config"
	inthttp "github.com/objectdesk/objectdesk/internal/http"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/services"
)

// errNoLocation is returned when a command needs a location and neither an
// argument nor a remembered session names one.
var errNoLocation = errors.New("no location given and no previous session; pass an s3://bucket/prefix URL")

// session bundles what a storage command needs.
type session struct {
	settings *config.Settings
	store    storage.ObjectStore
	files    *services.FileService
}

func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultSettingsPath()
}

// loadSettings reads the settings file and applies the root flag overrides.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(settingsPath())
	if err != nil {
		return nil, err
	}
	applyOverrides(cmd, settings)
	return settings, nil
}

func applyOverrides(cmd *cobra.Command, settings *config.Settings) {
	if profileName != "" {
		settings.Session.Profile = profileName
	}
	if backendName != "" {
		settings.Storage.Backend = strings.ToLower(backendName)
	}
	if endpointURL != "" {
		settings.Storage.Endpoint = endpointURL
	}
	if regionName != "" {
		settings.Storage.Region = regionName
	}
	if f := cmd.Flag("path-style"); f != nil && f.Changed {
		settings.Storage.PathStyle = pathStyle
	}
}

// openStore builds the configured backend, prompting for a proxy password
// when the proxy needs one and none is in the environment.
func openStore(ctx context.Context, settings *config.Settings) (storage.ObjectStore, error) {
	if err := resolveProxyPassword(settings); err != nil {
		return nil, err
	}
	return providers.NewFactory(GetLogger()).Open(ctx, settings)
}

// resolveProxyPassword fills settings.Proxy.Password from
// OBJECTDESK_PROXY_PASSWORD or the terminal. Passwords are never saved.
func resolveProxyPassword(settings *config.Settings) error {
	if !inthttp.NeedsProxyPassword(settings.Proxy) {
		return nil
	}
	password := os.Getenv("OBJECTDESK_PROXY_PASSWORD")
	if password == "" {
		var err error
		password, err = promptPassword(fmt.Sprintf("Proxy password for %s: ", settings.Proxy.User))
		if err != nil {
			return fmt.Errorf("failed to read proxy password: %w", err)
		}
	}
	settings.Proxy.Password = password
	return nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStore(GetContext(), settings)
	if err != nil {
		return nil, err
	}
	return &session{
		settings: settings,
		store:    store,
		files:    services.NewFileService(store, nil),
	}, nil
}

// location resolves a command argument to an object URL. Bare "bucket/key"
// arguments are accepted; an empty argument means the remembered location.
func (s *session) location(arg string) (models.ObjectURL, error) {
	return parseLocation(arg, s.settings)
}

func parseLocation(arg string, settings *config.Settings) (models.ObjectURL, error) {
	if strings.TrimSpace(arg) == "" {
		if settings.Session.Bucket == "" {
			return models.ObjectURL{}, errNoLocation
		}
		return models.ObjectURL{Bucket: settings.Session.Bucket, Key: settings.Session.Prefix}, nil
	}
	if !strings.Contains(arg, "://") {
		arg = "s3://" + strings.TrimPrefix(arg, "/")
	}
	return models.ParseObjectURL(arg)
}

// remember stores bucket/prefix as the session location. The file is
// reloaded first so flag overrides are not persisted.
func (s *session) remember(bucket, prefix string) {
	path := settingsPath()
	saved, err := config.LoadSettings(path)
	if err != nil {
		GetLogger().Debug().Err(err).Msg("Not saving session location")
		return
	}
	saved.RememberLocation(s.settings.Session.Profile, bucket, prefix)
	if err := config.SaveSettings(saved, path); err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to save session location")
	}
}

// resolveEntry turns a URL into the entry it names. Keys without a trailing
// slash that do not exist as objects are treated as folders when anything
// is stored below them.
func (s *session) resolveEntry(ctx context.Context, u models.ObjectURL) (models.Entry, error) {
	if u.IsPrefix() {
		return models.NewPrefixEntry(u.Key), nil
	}

	info, err := s.store.Head(ctx, u.Bucket, u.Key)
	if err == nil {
		entry := models.Entry{Key: u.Key, Size: info.Size, ETag: info.ETag}
		if !info.LastModified.IsZero() {
			modified := info.LastModified
			entry.LastModified = &modified
		}
		return entry, nil
	}
	if !storage.IsNotFound(err) {
		return models.Entry{}, err
	}

	folder := services.NormalizeFolder(u.Key)
	page, listErr := s.store.ListPage(ctx, storage.ListRequest{Bucket: u.Bucket, Prefix: folder, MaxKeys: 1})
	if listErr == nil && len(page.Objects)+len(page.Prefixes) > 0 {
		return models.NewPrefixEntry(folder), nil
	}
	return models.Entry{}, fmt.Errorf("%s: %w", u, storage.ErrNotFound)
}
