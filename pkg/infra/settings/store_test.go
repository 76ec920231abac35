package settings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/voidmod/pkg/domain/types"
	"github.com/m-mizutani/voidmod/pkg/infra/settings"
)

func TestStore_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "void_mod_manager", "settings.toml")
	store := settings.NewStore(path)

	got, err := store.Load(context.Background())
	gt.NoError(t, err)
	gt.Value(t, got.GetTheme()).Equal(settings.DefaultTheme)
	gt.Value(t, got.GetDownloadPath()).Equal(settings.Defaults().GetDownloadPath())
	gt.False(t, got.GetShowDebugOptions())

	_, err = os.Stat(path)
	gt.True(t, os.IsNotExist(err))
}

func TestStore_FillsAndPersistsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	gt.NoError(t, os.WriteFile(path, []byte("download_path = \"/games/mods-cache\"\n"), 0o644))

	store := settings.NewStore(path)
	got, err := store.Load(context.Background())
	gt.NoError(t, err)
	gt.Value(t, got.GetDownloadPath()).Equal("/games/mods-cache")
	gt.Value(t, got.GetTheme()).Equal("Dark")

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.String(t, string(data)).Contains("theme")
	gt.String(t, string(data)).Contains("show_debug_options")
	gt.String(t, string(data)).Contains("/games/mods-cache")
}

func TestStore_CompleteFileIsNotRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "theme = \"Light\"\ndownload_path = \"/x\"\nshow_debug_options = true\n# keep me\n"
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := settings.NewStore(path).Load(context.Background())
	gt.NoError(t, err)
	gt.Value(t, got.GetTheme()).Equal("Light")
	gt.True(t, got.GetShowDebugOptions())

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Value(t, string(data)).Equal(content)
}

func TestStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	gt.NoError(t, os.WriteFile(path, []byte("theme = [unterminated"), 0o644))

	_, err := settings.NewStore(path).Load(context.Background())
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagParse))
}

func TestStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	store := settings.NewStore(path)

	want := settings.Defaults()
	theme := "Light"
	want.Theme = &theme
	gt.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	gt.NoError(t, err)
	gt.Value(t, got).Equal(want)
}
