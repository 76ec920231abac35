package model

import (
	"net/url"
	"path"
	"strings"
)

// UnknownExtension is used when a download URL carries no file suffix.
const UnknownExtension = "unknown"

// DownloadDescriptor is derived once per installation attempt and never persisted.
type DownloadDescriptor struct {
	ModID     ModID
	URL       string
	Extension string
}

// NewDownloadDescriptor derives the archive extension from the URL path.
func NewDownloadDescriptor(id ModID, rawURL string) *DownloadDescriptor {
	return &DownloadDescriptor{
		ModID:     id,
		URL:       rawURL,
		Extension: ExtensionOf(rawURL),
	}
}

// ExtensionOf returns the suffix of the URL path without the dot, or
// UnknownExtension. Query strings and fragments are ignored.
func ExtensionOf(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return UnknownExtension
	}
	return ext
}

// FileName is the staging file name for this download.
func (d *DownloadDescriptor) FileName() string {
	return d.ModID.String() + "." + d.Extension
}

// IsZip reports whether the archive is a supported container.
func (d *DownloadDescriptor) IsZip() bool {
	return strings.EqualFold(d.Extension, "zip")
}

// ExtractionResult represents an archive expanded into scratch space
type ExtractionResult struct {
	Root        string // Scratch directory of the mod
	OverrideDir string // Parent directory of the first override marker, if any
	PackageDir  string // Parent directory of the first package marker, if any
	Files       int    // Number of file entries written
	Size        int64  // Total bytes written
	Skipped     int    // Entries rejected for escaping Root
}
