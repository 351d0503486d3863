package models

import (
	"fmt"
	"time"
)

const (
	kib = int64(1024)
	mib = kib * 1024
	gib = mib * 1024
	tib = gib * 1024
)

// HumanSize formats a byte count with binary units and two decimals.
func HumanSize(size int64) string {
	switch {
	case size >= tib:
		return fmt.Sprintf("%.2f TB", float64(size)/float64(tib))
	case size >= gib:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(gib))
	case size >= mib:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(mib))
	case size >= kib:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(kib))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// SizeString is the size column text: "-" for folders.
func (e Entry) SizeString() string {
	if e.IsPrefix {
		return "-"
	}
	return HumanSize(e.Size)
}

// ModifiedString is the modified column text in local time, "-" when unknown.
func (e Entry) ModifiedString() string {
	if e.LastModified == nil {
		return "-"
	}
	return e.LastModified.In(time.Local).Format("2006-01-02 15:04")
}
