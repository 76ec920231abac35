package game

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/andygrunwald/vdf"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

type locator struct {
	steamRoots []string
	gameDir    string
	appID      uint32
}

// Option configures the locator
type Option func(*locator)

// WithSteamRoots replaces the Steam installation directories searched for libraries
func WithSteamRoots(roots ...string) Option {
	return func(l *locator) {
		l.steamRoots = roots
	}
}

// WithGameDir pins the game installation directory and skips discovery
func WithGameDir(dir string) Option {
	return func(l *locator) {
		l.gameDir = dir
	}
}

// WithAppID sets the Steam app id of the target game
func WithAppID(appID uint32) Option {
	return func(l *locator) {
		l.appID = appID
	}
}

// NewLocator creates a GameLocator reading Steam library metadata
func NewLocator(opts ...Option) interfaces.GameLocator {
	l := &locator{
		steamRoots: DefaultSteamRoots(),
		appID:      model.Payday2AppID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultSteamRoots lists the usual Steam installation directories of the platform
func DefaultSteamRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Steam"),
			filepath.Join(os.Getenv("ProgramFiles"), "Steam"),
		}
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Steam")}
	default:
		return []string{
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".steam", "root"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", "data", "Steam"),
		}
	}
}

// RootsOf derives the destination roots of a game installation directory
func RootsOf(installDir string) *model.InstallRoots {
	return &model.InstallRoots{
		Mods:      filepath.Join(installDir, "mods"),
		Overrides: filepath.Join(installDir, "assets", "mod_overrides"),
	}
}

// InstallRoots resolves the roots of the target game
func (l *locator) InstallRoots(ctx context.Context) (*model.InstallRoots, error) {
	if l.gameDir != "" {
		return RootsOf(l.gameDir), nil
	}

	games, err := l.InstalledGames(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		if g.AppID == l.appID {
			ctxlog.From(ctx).Debug("Found game installation", "app_id", g.AppID, "install_dir", g.InstallDir)
			return RootsOf(g.InstallDir), nil
		}
	}

	return nil, goerr.New("game installation not found",
		goerr.V("app_id", l.appID),
		goerr.V("steam_roots", l.steamRoots),
		goerr.T(types.ErrTagNotFound),
	)
}

// InstalledGames lists every app manifest found in the Steam libraries
func (l *locator) InstalledGames(ctx context.Context) ([]model.InstalledGame, error) {
	logger := ctxlog.From(ctx)

	var games []model.InstalledGame
	for _, lib := range l.libraries(ctx) {
		manifests, err := filepath.Glob(filepath.Join(lib, "steamapps", "appmanifest_*.acf"))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list app manifests", goerr.V("library", lib))
		}

		for _, path := range manifests {
			g, err := readAppManifest(path)
			if err != nil {
				logger.Warn("Skipping unreadable app manifest", "path", path, "error", err)
				continue
			}
			g.InstallDir = filepath.Join(lib, "steamapps", "common", g.InstallDir)
			games = append(games, *g)
		}
	}

	logger.Debug("Found installed games", "count", len(games))
	return games, nil
}

// libraries returns every distinct library folder known to the Steam roots
func (l *locator) libraries(ctx context.Context) []string {
	seen := map[string]bool{}
	var libs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if seen[dir] || !isDir(filepath.Join(dir, "steamapps")) {
			return
		}
		seen[dir] = true
		libs = append(libs, dir)
	}

	for _, root := range l.steamRoots {
		if root == "" || !isDir(root) {
			continue
		}
		add(root)

		for _, name := range []string{
			filepath.Join(root, "steamapps", "libraryfolders.vdf"),
			filepath.Join(root, "config", "libraryfolders.vdf"),
		} {
			paths, err := readLibraryFolders(name)
			if err != nil {
				if !os.IsNotExist(err) {
					ctxlog.From(ctx).Warn("Failed to read library folders", "path", name, "error", err)
				}
				continue
			}
			for _, p := range paths {
				add(p)
			}
		}
	}

	return libs
}

func readVDF(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := vdf.NewParser(f).Parse()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse vdf", goerr.V("path", path), goerr.T(types.ErrTagParse))
	}
	return data, nil
}

// readLibraryFolders supports both the current layout ("0" { "path" "..." })
// and the legacy one ("1" "...").
func readLibraryFolders(path string) ([]string, error) {
	data, err := readVDF(path)
	if err != nil {
		return nil, err
	}

	folders, ok := lookup(data, "libraryfolders").(map[string]interface{})
	if !ok {
		return nil, goerr.New("libraryfolders section missing", goerr.V("path", path), goerr.T(types.ErrTagParse))
	}

	var paths []string
	for key, value := range folders {
		if _, err := strconv.Atoi(key); err != nil {
			continue
		}
		switch v := value.(type) {
		case string:
			paths = append(paths, v)
		case map[string]interface{}:
			if p, ok := lookup(v, "path").(string); ok {
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

func readAppManifest(path string) (*model.InstalledGame, error) {
	data, err := readVDF(path)
	if err != nil {
		return nil, err
	}

	state, ok := lookup(data, "AppState").(map[string]interface{})
	if !ok {
		return nil, goerr.New("AppState section missing", goerr.V("path", path), goerr.T(types.ErrTagParse))
	}

	appID, err := strconv.ParseUint(stringOf(state, "appid"), 10, 32)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid appid", goerr.V("path", path), goerr.T(types.ErrTagParse))
	}
	installDir := stringOf(state, "installdir")
	if installDir == "" {
		return nil, goerr.New("installdir missing", goerr.V("path", path), goerr.T(types.ErrTagParse))
	}

	return &model.InstalledGame{
		AppID:      uint32(appID),
		Name:       stringOf(state, "name"),
		InstallDir: installDir,
	}, nil
}

// lookup finds key case-insensitively; Steam is not consistent about casing
func lookup(m map[string]interface{}, key string) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func stringOf(m map[string]interface{}, key string) string {
	s, _ := lookup(m, key).(string)
	return s
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
