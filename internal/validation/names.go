// Package validation checks object names typed by the user and local paths
// derived from object keys.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxKeyBytes is the longest object key S3 and Azure Blob accept.
const MaxKeyBytes = 1024

// ErrInvalidName is wrapped by every error returned for a bad object name or key.
var ErrInvalidName = errors.New("invalid name")

// ValidateObjectName checks a single key segment, such as a new file or
// folder name. Surrounding spaces are not trimmed; callers decide that.
//
// Returns an error if the name:
//   - Is empty, "." or ".."
//   - Contains "/" (names are one segment)
//   - Contains a null byte or is not valid UTF-8
func ValidateObjectName(name string) error {
	switch name {
	case "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	case ".", "..":
		return fmt.Errorf("%w: name cannot be %q", ErrInvalidName, name)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name cannot contain '/': %s", ErrInvalidName, name)
	}
	return checkEncoding(name)
}

// ValidateKey checks a full destination key for moves and uploads.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidName)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: key cannot start with '/': %s", ErrInvalidName, key)
	}
	if len(key) > MaxKeyBytes {
		return fmt.Errorf("%w: key is %d bytes, the limit is %d", ErrInvalidName, len(key), MaxKeyBytes)
	}
	for _, seg := range strings.Split(strings.TrimSuffix(key, "/"), "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: key cannot contain %q segments: %s", ErrInvalidName, seg, key)
		}
	}
	return checkEncoding(key)
}

func checkEncoding(s string) error {
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: contains null byte: %q", ErrInvalidName, s)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8: %q", ErrInvalidName, s)
	}
	return nil
}
