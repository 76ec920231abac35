package settings

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
)

// DefaultTheme is used when the settings file has no theme
const DefaultTheme = "Dark"

type store struct {
	path string
}

// NewStore creates a SettingsStore backed by a TOML file at path
func NewStore(path string) interfaces.SettingsStore {
	return &store{path: path}
}

// DefaultPath is <UserConfigDir>/void_mod_manager/settings.toml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve user config directory", goerr.T(types.ErrTagFileSystem))
	}
	return filepath.Join(dir, "void_mod_manager", "settings.toml"), nil
}

// Defaults returns a fully populated Settings
func Defaults() *model.Settings {
	theme := DefaultTheme
	downloadPath := filepath.Join(os.TempDir(), ".void", "pd2")
	showDebug := false

	return &model.Settings{
		Theme:            &theme,
		DownloadPath:     &downloadPath,
		ShowDebugOptions: &showDebug,
	}
}

func (s *store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file yields defaults without
// writing; missing fields are filled in and persisted.
func (s *store) Load(ctx context.Context) (*model.Settings, error) {
	logger := ctxlog.From(ctx)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logger.Info("Settings file not found, using defaults", "path", s.path)
		return Defaults(), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read settings",
			goerr.V("path", s.path),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	var settings model.Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse settings",
			goerr.V("path", s.path),
			goerr.T(types.ErrTagParse),
		)
	}

	if filled := fillDefaults(&settings); len(filled) > 0 {
		logger.Info("Set missing settings to defaults", "fields", filled)
		if err := s.Save(ctx, &settings); err != nil {
			return nil, err
		}
	}

	return &settings, nil
}

// Save writes settings to the file, creating its directory
func (s *store) Save(ctx context.Context, settings *model.Settings) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return goerr.Wrap(err, "failed to encode settings", goerr.T(types.ErrTagParse))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create settings directory",
			goerr.V("path", filepath.Dir(s.path)),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write settings",
			goerr.V("path", s.path),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	ctxlog.From(ctx).Debug("Saved settings", "path", s.path)
	return nil
}

// fillDefaults sets every missing field and returns the names it filled
func fillDefaults(s *model.Settings) []string {
	defaults := Defaults()
	var filled []string

	if s.Theme == nil {
		s.Theme = defaults.Theme
		filled = append(filled, "theme")
	}
	if s.DownloadPath == nil {
		s.DownloadPath = defaults.DownloadPath
		filled = append(filled, "download_path")
	}
	if s.ShowDebugOptions == nil {
		s.ShowDebugOptions = defaults.ShowDebugOptions
		filled = append(filled, "show_debug_options")
	}

	return filled
}
