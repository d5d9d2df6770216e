package file

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// UploadedFile mirrors one backend file record at last sync.
type UploadedFile struct {
	ID         int64     `json:"id"`
	Name       string    `json:"filename"`
	Size       int64     `json:"file_size"`
	Type       string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// Accepted reports whether a local file may be uploaded: images by extension
// allow-list, audio by declared media-type prefix.
func Accepted(name, mediaType string) bool {
	if imageExtensions[Extension(name)] {
		return true
	}
	return strings.HasPrefix(mediaType, "audio/")
}

// Extension returns the lowercased extension without the leading dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Category classifies a file name for display purposes.
func Category(name string) string {
	if imageExtensions[Extension(name)] {
		return "image"
	}
	return "audio"
}

// FormatSize renders a byte count in human units.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.2f %s", size, units[idx])
}
