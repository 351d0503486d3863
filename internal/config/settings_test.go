package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettings(t *testing.T) {
	cfg := NewSettings()

	assert.Equal(t, "name", cfg.Browser.SortField)
	assert.True(t, cfg.Browser.SortAscending)
	assert.Equal(t, 1000, cfg.Browser.PageSize)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, ProxyNone, cfg.Proxy.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "nope.ini"))
	require.NoError(t, err)
	assert.Equal(t, NewSettings(), cfg)
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.ini")

	cfg := NewSettings()
	cfg.RememberLocation("work", "reports", "2024/q1/")
	cfg.Browser.SortField = "size"
	cfg.Browser.SortAscending = false
	cfg.Browser.PageSize = 250
	cfg.Storage.Endpoint = "http://localhost:9000"
	cfg.Storage.PathStyle = true
	cfg.Proxy.Mode = ProxyBasic
	cfg.Proxy.Host = "proxy.local"
	cfg.Proxy.Port = 3128
	cfg.Proxy.Password = "secret"
	cfg.Notifications.OnFailure = false

	require.NoError(t, SaveSettings(cfg, path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret", "proxy password must not be persisted")

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "work", loaded.Session.Profile)
	assert.Equal(t, "reports", loaded.Session.Bucket)
	assert.Equal(t, "2024/q1/", loaded.Session.Prefix)
	assert.Equal(t, "size", loaded.Browser.SortField)
	assert.False(t, loaded.Browser.SortAscending)
	assert.Equal(t, 250, loaded.Browser.PageSize)
	assert.True(t, loaded.Storage.PathStyle)
	assert.Equal(t, "proxy.local", loaded.Proxy.Host)
	assert.Equal(t, 3128, loaded.Proxy.Port)
	assert.Empty(t, loaded.Proxy.Password)
	assert.True(t, loaded.Notifications.Enabled)
	assert.False(t, loaded.Notifications.OnFailure)
}

func TestLoadSettings_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte("[browser\nsort_field"), 0600))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   error
	}{
		{"bad backend", func(s *Settings) { s.Storage.Backend = "gcs" }, ErrInvalidBackend},
		{"page size zero", func(s *Settings) { s.Browser.PageSize = 0 }, ErrInvalidPageSize},
		{"page size too big", func(s *Settings) { s.Browser.PageSize = 5000 }, ErrInvalidPageSize},
		{"sort field", func(s *Settings) { s.Browser.SortField = "colour" }, ErrInvalidSortField},
		{"proxy mode", func(s *Settings) { s.Proxy.Mode = "socks" }, ErrInvalidProxyMode},
		{"ntlm without host", func(s *Settings) { s.Proxy.Mode = ProxyNTLM }, ErrMissingProxyHost},
		{"azure without account", func(s *Settings) { s.Storage.Backend = BackendAzure }, ErrMissingAzureAccount},
	}

	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewSettings()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSettings_Set(t *testing.T) {
	cfg := NewSettings()

	require.NoError(t, cfg.Set("browser.page_size", "200"))
	require.NoError(t, cfg.Set("Storage.Backend", "AZURE"))
	require.NoError(t, cfg.Set("storage.path_style", "true"))
	assert.Equal(t, 200, cfg.Browser.PageSize)
	assert.Equal(t, BackendAzure, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.PathStyle)

	require.NoError(t, cfg.Set("notifications.enabled", "false"))
	assert.False(t, cfg.Notifications.Enabled)

	assert.Error(t, cfg.Set("browser.page_size", "lots"))
	assert.Error(t, cfg.Set("nope.key", "x"))
}

func TestListAWSProfiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	credsPath := filepath.Join(dir, "credentials")

	require.NoError(t, os.WriteFile(configPath, []byte(`[default]
region = us-east-1

[profile work]
region = eu-west-1
sso_start_url = https://example.awsapps.com/start

[sso-session corp]
sso_region = eu-west-1
`), 0600))
	require.NoError(t, os.WriteFile(credsPath, []byte(`[default]
aws_access_key_id = AKIA
aws_secret_access_key = x

[minio]
aws_access_key_id = minioadmin
aws_secret_access_key = minioadmin
`), 0600))

	profiles, err := listAWSProfiles(configPath, credsPath)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	assert.Equal(t, "default", profiles[0].Name)
	assert.Equal(t, "us-east-1", profiles[0].Region)
	assert.True(t, profiles[0].HasCredentials)

	assert.Equal(t, "minio", profiles[1].Name)
	assert.True(t, profiles[1].HasCredentials)

	assert.Equal(t, "work", profiles[2].Name)
	assert.True(t, profiles[2].SSO)
	assert.Equal(t, "eu-west-1", profiles[2].Region)
}

func TestListAWSProfiles_NoFiles(t *testing.T) {
	dir := t.TempDir()
	profiles, err := listAWSProfiles(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "settings.ini", filepath.Base(DefaultSettingsPath()))
	assert.Equal(t, "logs", filepath.Base(LogDirectory()))
	assert.NotEmpty(t, ConfigDirectory())
}
