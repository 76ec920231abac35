package model

// Settings is the persisted user configuration. Pointer fields distinguish
// a missing entry from a zero value so defaults can be filled in.
type Settings struct {
	Theme            *string `toml:"theme"`
	DownloadPath     *string `toml:"download_path"`
	ShowDebugOptions *bool   `toml:"show_debug_options"`
}

// GetTheme returns the theme or an empty string
func (s *Settings) GetTheme() string {
	if s.Theme == nil {
		return ""
	}
	return *s.Theme
}

// GetDownloadPath returns the download path or an empty string
func (s *Settings) GetDownloadPath() string {
	if s.DownloadPath == nil {
		return ""
	}
	return *s.DownloadPath
}

// GetShowDebugOptions returns the debug flag, false if unset
func (s *Settings) GetShowDebugOptions() bool {
	return s.ShowDebugOptions != nil && *s.ShowDebugOptions
}
