//go:build !windows

package progress

import "os"

// enableANSIOnWindows is a no-op; Unix terminals handle ANSI natively.
func enableANSIOnWindows(f *os.File) {}
