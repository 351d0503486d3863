package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/objectdesk/objectdesk/internal/constants"
)

var (
	fileLogger   *lumberjack.Logger
	fileLoggerMu sync.RWMutex
)

// EnableFileLogging starts duplicating log output into a rotating file under dir.
// Loggers created after this call write to the file; calling it twice is a no-op.
func EnableFileLogging(dir string) (string, error) {
	fileLoggerMu.Lock()
	defer fileLoggerMu.Unlock()

	if fileLogger != nil {
		return fileLogger.Filename, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	fileLogger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, constants.LogFileName),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}
	return fileLogger.Filename, nil
}

// CloseFileLogging flushes and closes the rotating log file.
func CloseFileLogging() {
	fileLoggerMu.Lock()
	defer fileLoggerMu.Unlock()

	if fileLogger != nil {
		_ = fileLogger.Close()
		fileLogger = nil
	}
}

// LogFilePath returns the active log file, or "" when file logging is off.
func LogFilePath() string {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()

	if fileLogger == nil {
		return ""
	}
	return fileLogger.Filename
}

func fileWriter() io.Writer {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()

	if fileLogger == nil {
		return nil
	}
	return fileLogger
}
