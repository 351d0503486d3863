package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/objectdesk/objectdesk/internal/constants"
)

// Settings is the persisted application state.
//
// INI format:
//
//	[session]
//	profile = default
//	bucket = my-bucket
//	prefix = reports/2024/
//
//	[browser]
//	sort_field = name
//	sort_ascending = true
//	page_size = 1000
//	file_type = all
//
//	[storage]
//	backend = s3
//	endpoint = http://localhost:9000
//	region = us-east-1
//	path_style = true
//	azure_account = myaccount
//
//	[proxy]
//	mode = no-proxy
//	host = proxy.example.com
//	port = 8080
//	user = alice
//	no_proxy = localhost,10.0.0.0/8
//
//	[notifications]
//	enabled = true
//	on_failure = true
//
// Secrets (Azure account keys, proxy passwords) are never written to disk; they
// come from the environment or an interactive prompt.
type Settings struct {
	Session SessionSettings
	Browser BrowserSettings
	Storage StorageSettings
	Proxy   ProxySettings

	Notifications NotificationSettings
}

// SessionSettings remembers where the user was when the app last closed.
type SessionSettings struct {
	Profile string `ini:"profile"`
	Bucket  string `ini:"bucket"`
	Prefix  string `ini:"prefix"`
}

// BrowserSettings holds view preferences.
type BrowserSettings struct {
	SortField     string `ini:"sort_field"`
	SortAscending bool   `ini:"sort_ascending"`
	PageSize      int    `ini:"page_size"`
	FileType      string `ini:"file_type"`
}

// StorageSettings selects and configures the storage backend.
type StorageSettings struct {
	Backend      string `ini:"backend"` // "s3" or "azure"
	Endpoint     string `ini:"endpoint"`
	Region       string `ini:"region"`
	PathStyle    bool   `ini:"path_style"`
	AzureAccount string `ini:"azure_account"`
}

// ProxySettings configures the outbound HTTP proxy.
type ProxySettings struct {
	Mode     string `ini:"mode"` // "no-proxy", "system", "basic", "ntlm"
	Host     string `ini:"host"`
	Port     int    `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"-"`
	NoProxy  string `ini:"no_proxy"`
}

// NotificationSettings controls desktop notifications for finished transfers.
type NotificationSettings struct {
	Enabled   bool `ini:"enabled"`
	OnFailure bool `ini:"on_failure"`
}

// Backend names
const (
	BackendS3    = "s3"
	BackendAzure = "azure"
)

// Proxy modes
const (
	ProxyNone   = "no-proxy"
	ProxySystem = "system"
	ProxyBasic  = "basic"
	ProxyNTLM   = "ntlm"
)

// Validation errors
var (
	ErrInvalidBackend      = errors.New("storage backend must be s3 or azure")
	ErrInvalidPageSize     = errors.New("page_size must be between 1 and 1000")
	ErrInvalidProxyMode    = errors.New("proxy mode must be no-proxy, system, basic or ntlm")
	ErrMissingProxyHost    = errors.New("proxy host is required for basic and ntlm modes")
	ErrMissingAzureAccount = errors.New("azure_account is required for the azure backend")
	ErrInvalidSortField    = errors.New("sort_field must be name, size or modified")
)

// NewSettings returns settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Browser: BrowserSettings{
			SortField:     "name",
			SortAscending: true,
			PageSize:      constants.DefaultMaxKeys,
			FileType:      "all",
		},
		Storage: StorageSettings{
			Backend: BackendS3,
		},
		Proxy: ProxySettings{
			Mode: ProxyNone,
		},
		Notifications: NotificationSettings{
			Enabled:   true,
			OnFailure: true,
		},
	}
}

// LoadSettings reads settings from path ("" means DefaultSettingsPath).
// A missing file yields defaults and no error.
func LoadSettings(path string) (*Settings, error) {
	cfg := NewSettings()
	if path == "" {
		path = DefaultSettingsPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	session := iniFile.Section("session")
	cfg.Session.Profile = session.Key("profile").String()
	cfg.Session.Bucket = session.Key("bucket").String()
	cfg.Session.Prefix = session.Key("prefix").String()

	browser := iniFile.Section("browser")
	cfg.Browser.SortField = browser.Key("sort_field").MustString(cfg.Browser.SortField)
	cfg.Browser.SortAscending = browser.Key("sort_ascending").MustBool(cfg.Browser.SortAscending)
	cfg.Browser.PageSize = browser.Key("page_size").MustInt(cfg.Browser.PageSize)
	cfg.Browser.FileType = browser.Key("file_type").MustString(cfg.Browser.FileType)

	storage := iniFile.Section("storage")
	cfg.Storage.Backend = strings.ToLower(storage.Key("backend").MustString(cfg.Storage.Backend))
	cfg.Storage.Endpoint = storage.Key("endpoint").String()
	cfg.Storage.Region = storage.Key("region").String()
	cfg.Storage.PathStyle = storage.Key("path_style").MustBool(false)
	cfg.Storage.AzureAccount = storage.Key("azure_account").String()

	proxy := iniFile.Section("proxy")
	cfg.Proxy.Mode = strings.ToLower(proxy.Key("mode").MustString(cfg.Proxy.Mode))
	cfg.Proxy.Host = proxy.Key("host").String()
	cfg.Proxy.Port = proxy.Key("port").MustInt(0)
	cfg.Proxy.User = proxy.Key("user").String()
	cfg.Proxy.NoProxy = proxy.Key("no_proxy").String()

	notifications := iniFile.Section("notifications")
	cfg.Notifications.Enabled = notifications.Key("enabled").MustBool(cfg.Notifications.Enabled)
	cfg.Notifications.OnFailure = notifications.Key("on_failure").MustBool(cfg.Notifications.OnFailure)

	return cfg, nil
}

// SaveSettings writes settings to path ("" means DefaultSettingsPath) via a
// temporary file and an atomic rename.
func SaveSettings(cfg *Settings, path string) error {
	if path == "" {
		path = DefaultSettingsPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name   string
		values [][2]string
	}{
		{"session", [][2]string{
			{"profile", cfg.Session.Profile},
			{"bucket", cfg.Session.Bucket},
			{"prefix", cfg.Session.Prefix},
		}},
		{"browser", [][2]string{
			{"sort_field", cfg.Browser.SortField},
			{"sort_ascending", strconv.FormatBool(cfg.Browser.SortAscending)},
			{"page_size", strconv.Itoa(cfg.Browser.PageSize)},
			{"file_type", cfg.Browser.FileType},
		}},
		{"storage", [][2]string{
			{"backend", cfg.Storage.Backend},
			{"endpoint", cfg.Storage.Endpoint},
			{"region", cfg.Storage.Region},
			{"path_style", strconv.FormatBool(cfg.Storage.PathStyle)},
			{"azure_account", cfg.Storage.AzureAccount},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.Proxy.Mode},
			{"host", cfg.Proxy.Host},
			{"port", strconv.Itoa(cfg.Proxy.Port)},
			{"user", cfg.Proxy.User},
			{"no_proxy", cfg.Proxy.NoProxy},
		}},
		{"notifications", [][2]string{
			{"enabled", strconv.FormatBool(cfg.Notifications.Enabled)},
			{"on_failure", strconv.FormatBool(cfg.Notifications.OnFailure)},
		}},
	}

	for _, s := range sections {
		sec, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.values {
			sec.Key(kv[0]).SetValue(kv[1])
		}
	}

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set settings permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// Validate checks the settings for values no component can use.
func (cfg *Settings) Validate() error {
	switch cfg.Storage.Backend {
	case BackendS3:
	case BackendAzure:
		if strings.TrimSpace(cfg.Storage.AzureAccount) == "" && os.Getenv("AZURE_STORAGE_CONNECTION_STRING") == "" {
			return ErrMissingAzureAccount
		}
	default:
		return ErrInvalidBackend
	}

	if cfg.Browser.PageSize < constants.MinMaxKeys || cfg.Browser.PageSize > constants.DefaultMaxKeys {
		return ErrInvalidPageSize
	}

	switch strings.ToLower(cfg.Browser.SortField) {
	case "name", "size", "modified", "date":
	default:
		return ErrInvalidSortField
	}

	switch cfg.Proxy.Mode {
	case ProxyNone, "", ProxySystem:
	case ProxyBasic, ProxyNTLM:
		if strings.TrimSpace(cfg.Proxy.Host) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	return nil
}

// RememberLocation records the last visited location for the next start.
func (cfg *Settings) RememberLocation(profile, bucket, prefix string) {
	cfg.Session.Profile = profile
	cfg.Session.Bucket = bucket
	cfg.Session.Prefix = prefix
}

// Set assigns a value by "section.key" name, as used by `config set`.
func (cfg *Settings) Set(name, value string) error {
	parseBool := func() (bool, error) { return strconv.ParseBool(value) }
	parseInt := func() (int, error) { return strconv.Atoi(value) }

	var err error
	switch strings.ToLower(name) {
	case "session.profile":
		cfg.Session.Profile = value
	case "session.bucket":
		cfg.Session.Bucket = value
	case "session.prefix":
		cfg.Session.Prefix = value
	case "browser.sort_field":
		cfg.Browser.SortField = value
	case "browser.sort_ascending":
		cfg.Browser.SortAscending, err = parseBool()
	case "browser.page_size":
		cfg.Browser.PageSize, err = parseInt()
	case "browser.file_type":
		cfg.Browser.FileType = value
	case "storage.backend":
		cfg.Storage.Backend = strings.ToLower(value)
	case "storage.endpoint":
		cfg.Storage.Endpoint = value
	case "storage.region":
		cfg.Storage.Region = value
	case "storage.path_style":
		cfg.Storage.PathStyle, err = parseBool()
	case "storage.azure_account":
		cfg.Storage.AzureAccount = value
	case "proxy.mode":
		cfg.Proxy.Mode = strings.ToLower(value)
	case "proxy.host":
		cfg.Proxy.Host = value
	case "proxy.port":
		cfg.Proxy.Port, err = parseInt()
	case "proxy.user":
		cfg.Proxy.User = value
	case "proxy.no_proxy":
		cfg.Proxy.NoProxy = value
	case "notifications.enabled":
		cfg.Notifications.Enabled, err = parseBool()
	case "notifications.on_failure":
		cfg.Notifications.OnFailure, err = parseBool()
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return nil
}
