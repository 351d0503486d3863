// Package config provides configuration management for objectdesk.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "objectdesk"

// ConfigDirectory returns the per-user settings directory.
//
// Locations:
//   - Windows: %APPDATA%\objectdesk
//   - macOS: ~/Library/Application Support/objectdesk
//   - Linux: $XDG_CONFIG_HOME/objectdesk or ~/.config/objectdesk
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appDirName)
		}
		return filepath.Join(homeDir, ".config", appDirName)
	}
	return filepath.Join(configDir, appDirName)
}

// LogDirectory returns the directory for rotating log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\objectdesk\logs
//   - Unix: <ConfigDirectory>/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appDirName+"-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, appDirName, "logs")
	}
	return filepath.Join(ConfigDirectory(), "logs")
}

// DefaultSettingsPath returns the settings.ini location.
func DefaultSettingsPath() string {
	return filepath.Join(ConfigDirectory(), "settings.ini")
}
