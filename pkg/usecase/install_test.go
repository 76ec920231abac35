package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
	"github.com/m-mizutani/voidmod/pkg/usecase"
)

type fixture struct {
	catalog *MockCatalogClient
	emitter *recordingEmitter
	roots   *model.InstallRoots
	staging string
	scratch string
	uc      interfaces.InstallUseCase
}

// newFixture serves archives by URL and resolves mod ids through urls.
// Staging, scratch and the game install live in separate temp directories.
func newFixture(t *testing.T, urls map[model.ModID]string, archives map[string][]byte) *fixture {
	t.Helper()

	game := t.TempDir()
	work := t.TempDir()

	f := &fixture{
		catalog: &MockCatalogClient{
			getDownloadURLFunc: func(ctx context.Context, id model.ModID) (string, error) {
				return urls[id], nil
			},
			downloadArchiveFunc: func(ctx context.Context, url string) ([]byte, error) {
				data, ok := archives[url]
				if !ok {
					return nil, goerr.New("not found", goerr.T(types.ErrTagNetwork))
				}
				return data, nil
			},
		},
		emitter: &recordingEmitter{},
		roots: &model.InstallRoots{
			Mods:      filepath.Join(game, "mods"),
			Overrides: filepath.Join(game, "assets", "mod_overrides"),
		},
		staging: filepath.Join(work, "staging"),
		scratch: filepath.Join(work, "extract"),
	}

	f.uc = usecase.NewInstall(f.catalog, &MockGameLocator{roots: f.roots},
		usecase.WithStagingDir(f.staging),
		usecase.WithScratchDir(f.scratch),
		usecase.WithEmitter(f.emitter),
	)
	return f
}

func TestInstall_PackageRoundTrip(t *testing.T) {
	const url = "https://example/files/pack.zip"
	archive := createZip(t,
		zipEntry{name: "ModPack/"},
		zipEntry{name: "ModPack/mod.txt", body: `{"name": "ModPack"}`},
		zipEntry{name: "ModPack/data.bin", body: "\x00\x01\x02binary"},
		zipEntry{name: "ModPack/lua/hook.lua", body: "print('hi')"},
	)
	f := newFixture(t, map[model.ModID]string{42: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 42)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateCompleted)
	gt.Value(t, result.Target.Kind).Equal(model.TargetMods)
	gt.Value(t, result.InstalledTo).Equal(filepath.Join(f.roots.Mods, "ModPack"))

	gt.Value(t, readTree(t, filepath.Join(f.roots.Mods, "ModPack"))).Equal(map[string]string{
		"mod.txt":      `{"name": "ModPack"}`,
		"data.bin":     "\x00\x01\x02binary",
		"lua/hook.lua": "print('hi')",
	})

	gt.False(t, exists(filepath.Join(f.scratch, "42")))
	gt.A(t, dirEntries(t, f.staging)).Length(0)
	gt.False(t, exists(f.roots.Overrides))

	gt.Value(t, f.emitter.types(42)).Equal([]model.EventType{
		model.EventStarted,
		model.EventWriting,
		model.EventFinishing,
		model.EventDone,
	})
}

func TestInstall_OverrideBundle(t *testing.T) {
	const url = "https://example/files/skins.zip"
	archive := createZip(t,
		zipEntry{name: "Skins/main.xml", body: "<table/>"},
		zipEntry{name: "Skins/units/gun.texture", body: "texture"},
	)
	f := newFixture(t, map[model.ModID]string{7: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 7)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateCompleted)
	gt.Value(t, result.Target.Kind).Equal(model.TargetOverrides)

	gt.Value(t, readTree(t, filepath.Join(f.roots.Overrides, "Skins"))).Equal(map[string]string{
		"main.xml":          "<table/>",
		"units/gun.texture": "texture",
	})
	gt.False(t, exists(f.roots.Mods))
}

func TestInstall_OverrideWinsOverPackage(t *testing.T) {
	const url = "https://example/files/both.zip"
	archive := createZip(t,
		zipEntry{name: "Pkg/mod.txt", body: "pkg"},
		zipEntry{name: "Assets/main.xml", body: "xml"},
	)
	f := newFixture(t, map[model.ModID]string{3: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 3)
	gt.NoError(t, err)
	gt.Value(t, result.Target.Kind).Equal(model.TargetOverrides)
	gt.True(t, exists(filepath.Join(f.roots.Overrides, "Assets", "main.xml")))
	gt.False(t, exists(filepath.Join(f.roots.Mods, "Pkg")))
}

func TestInstall_FirstMarkerWins(t *testing.T) {
	const url = "https://example/files/multi.zip"
	archive := createZip(t,
		zipEntry{name: "First/mod.txt", body: "first"},
		zipEntry{name: "Second/mod.txt", body: "second"},
	)
	f := newFixture(t, map[model.ModID]string{5: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 5)
	gt.NoError(t, err)
	gt.Value(t, result.InstalledTo).Equal(filepath.Join(f.roots.Mods, "First"))
	gt.Value(t, dirEntries(t, f.roots.Mods)).Equal([]string{"First"})
}

func TestInstall_NoDownloadAvailable(t *testing.T) {
	f := newFixture(t, map[model.ModID]string{}, nil)

	result, err := f.uc.Install(context.Background(), 99)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateNoDownloadAvailable)

	gt.A(t, f.catalog.downloadCalls).Length(0)
	gt.False(t, exists(f.staging))
	gt.False(t, exists(f.scratch))
	gt.False(t, exists(f.roots.Mods))

	gt.Value(t, f.emitter.types(99)).Equal([]model.EventType{model.EventError, model.EventDone})
	gt.Value(t, f.emitter.codes()).Equal([]string{model.CodeNoDownload})
}

func TestInstall_UnsupportedFormat(t *testing.T) {
	const url = "https://example/files/pack.rar"
	f := newFixture(t, map[model.ModID]string{11: url}, map[string][]byte{url: []byte("Rar!")})

	result, err := f.uc.Install(context.Background(), 11)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateUnsupportedFormat)

	gt.A(t, dirEntries(t, f.staging)).Length(0)
	gt.False(t, exists(filepath.Join(f.scratch, "11")))

	gt.Value(t, f.emitter.types(11)).Equal([]model.EventType{
		model.EventStarted,
		model.EventWriting,
		model.EventFinishing,
		model.EventError,
		model.EventDone,
	})
	gt.Value(t, f.emitter.codes()).Equal([]string{model.CodeUnsupported})
}

func TestInstall_UnknownExtensionIsUnsupported(t *testing.T) {
	const url = "https://example/download/123"
	f := newFixture(t, map[model.ModID]string{12: url}, map[string][]byte{url: []byte("data")})

	result, err := f.uc.Install(context.Background(), 12)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateUnsupportedFormat)
	gt.A(t, dirEntries(t, f.staging)).Length(0)
}

func TestInstall_UnrecognizedLayout(t *testing.T) {
	const url = "https://example/files/plain.zip"
	archive := createZip(t,
		zipEntry{name: "Stuff/readme.md", body: "no markers here"},
	)
	f := newFixture(t, map[model.ModID]string{13: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 13)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateUnrecognizedLayout)
	gt.Value(t, result.Target).Nil()

	gt.False(t, exists(f.roots.Mods))
	gt.False(t, exists(f.roots.Overrides))
	gt.False(t, exists(filepath.Join(f.scratch, "13")))
	gt.A(t, dirEntries(t, f.staging)).Length(0)
	gt.Value(t, f.emitter.codes()).Equal([]string{model.CodeLayout})
}

func TestInstall_Failures(t *testing.T) {
	downloadErr := goerr.New("connection reset", goerr.T(types.ErrTagNetwork))
	parseErr := goerr.New("bad json", goerr.T(types.ErrTagParse))

	tests := []struct {
		name     string
		resolve  func(ctx context.Context, id model.ModID) (string, error)
		download func(ctx context.Context, url string) ([]byte, error)
		wantErr  error
		wantIn   model.State
		wantKind model.FailureKind
		wantCode string
	}{
		{
			name: "resolve parse error",
			resolve: func(ctx context.Context, id model.ModID) (string, error) {
				return "", parseErr
			},
			wantErr:  parseErr,
			wantIn:   model.StateResolving,
			wantKind: model.FailureParse,
			wantCode: model.CodeParse,
		},
		{
			name: "download network error",
			resolve: func(ctx context.Context, id model.ModID) (string, error) {
				return "https://example/files/pack.zip", nil
			},
			download: func(ctx context.Context, url string) ([]byte, error) {
				return nil, downloadErr
			},
			wantErr:  downloadErr,
			wantIn:   model.StateFetching,
			wantKind: model.FailureNetwork,
			wantCode: model.CodeNetwork,
		},
		{
			name: "corrupt archive",
			resolve: func(ctx context.Context, id model.ModID) (string, error) {
				return "https://example/files/pack.zip", nil
			},
			download: func(ctx context.Context, url string) ([]byte, error) {
				return []byte("this is not a zip archive"), nil
			},
			wantIn:   model.StateExtracting,
			wantKind: model.FailureFileSystem,
			wantCode: model.CodeFileSystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			f.catalog.getDownloadURLFunc = tt.resolve
			f.catalog.downloadArchiveFunc = tt.download

			result, err := f.uc.Install(context.Background(), 21)
			gt.Error(t, err)
			if tt.wantErr != nil {
				gt.True(t, errors.Is(err, tt.wantErr))
			}
			gt.Value(t, result.State).Equal(model.StateFailed)
			gt.Value(t, result.FailedIn).Equal(tt.wantIn)
			gt.Value(t, result.Failure).Equal(tt.wantKind)
			gt.Value(t, f.emitter.codes()).Equal([]string{tt.wantCode})

			gt.A(t, dirEntries(t, f.staging)).Length(0)
			gt.False(t, exists(filepath.Join(f.scratch, "21")))

			events := f.emitter.types(21)
			gt.Value(t, events[len(events)-1]).Equal(model.EventError)
		})
	}
}

func TestInstall_GameNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)
	locatorErr := goerr.New("game not installed", goerr.T(types.ErrTagNotFound))
	uc := usecase.NewInstall(f.catalog, &MockGameLocator{err: locatorErr},
		usecase.WithStagingDir(f.staging),
		usecase.WithScratchDir(f.scratch),
		usecase.WithEmitter(f.emitter),
	)

	result, err := uc.Install(context.Background(), 1)
	gt.Error(t, err)
	gt.Value(t, result.State).Equal(model.StateFailed)
	gt.Value(t, result.FailedIn).Equal(model.StateResolving)
	gt.Value(t, f.emitter.types(1)).Equal([]model.EventType{model.EventError})
}

func TestInstall_Canceled(t *testing.T) {
	const url = "https://example/files/pack.zip"
	archive := createZip(t, zipEntry{name: "ModPack/mod.txt", body: "x"})
	f := newFixture(t, map[model.ModID]string{42: url}, map[string][]byte{url: archive})

	ctx, cancel := context.WithCancel(context.Background())
	f.catalog.downloadArchiveFunc = func(_ context.Context, _ string) ([]byte, error) {
		cancel()
		return archive, nil
	}

	result, err := f.uc.Install(ctx, 42)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagCanceled))
	gt.Value(t, result.Failure).Equal(model.FailureCanceled)
	gt.Value(t, result.FailedIn).Equal(model.StateStaged)
	gt.A(t, dirEntries(t, f.staging)).Length(0)
	gt.False(t, exists(filepath.Join(f.roots.Mods, "ModPack")))
}

func TestInstall_SkipsEntriesEscapingScratch(t *testing.T) {
	const url = "https://example/files/evil.zip"
	archive := createZip(t,
		zipEntry{name: "../../escaped.txt", body: "owned"},
		zipEntry{name: "Good/mod.txt", body: "ok"},
	)
	f := newFixture(t, map[model.ModID]string{8: url}, map[string][]byte{url: archive})

	result, err := f.uc.Install(context.Background(), 8)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateCompleted)
	gt.False(t, exists(filepath.Join(filepath.Dir(f.scratch), "escaped.txt")))
	gt.False(t, exists(filepath.Join(f.scratch, "escaped.txt")))
	gt.Value(t, readTree(t, filepath.Join(f.roots.Mods, "Good"))).Equal(map[string]string{"mod.txt": "ok"})
}

// Reinstalling replaces the previous tree instead of merging into it.
func TestInstall_ReinstallOverwrites(t *testing.T) {
	const url = "https://example/files/pack.zip"
	archives := map[string][]byte{
		url: createZip(t,
			zipEntry{name: "ModPack/mod.txt", body: "v1"},
			zipEntry{name: "ModPack/old.lua", body: "old"},
		),
	}
	f := newFixture(t, map[model.ModID]string{42: url}, archives)

	_, err := f.uc.Install(context.Background(), 42)
	gt.NoError(t, err)

	archives[url] = createZip(t,
		zipEntry{name: "ModPack/mod.txt", body: "v2"},
		zipEntry{name: "ModPack/new.lua", body: "new"},
	)
	result, err := f.uc.Install(context.Background(), 42)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateCompleted)

	gt.Value(t, readTree(t, filepath.Join(f.roots.Mods, "ModPack"))).Equal(map[string]string{
		"mod.txt": "v2",
		"new.lua": "new",
	})
	gt.Value(t, dirEntries(t, f.roots.Mods)).Equal([]string{"ModPack"})
}

func TestInstall_ConcurrentSameDestination(t *testing.T) {
	urlA := "https://example/files/a.zip"
	urlB := "https://example/files/b.zip"
	treeA := map[string]string{"mod.txt": "A", "only-a.lua": "a"}
	treeB := map[string]string{"mod.txt": "B", "only-b.lua": "b"}

	archives := map[string][]byte{
		urlA: createZip(t,
			zipEntry{name: "Shared/mod.txt", body: "A"},
			zipEntry{name: "Shared/only-a.lua", body: "a"},
		),
		urlB: createZip(t,
			zipEntry{name: "Shared/mod.txt", body: "B"},
			zipEntry{name: "Shared/only-b.lua", body: "b"},
		),
	}
	f := newFixture(t, map[model.ModID]string{1: urlA, 2: urlB}, archives)

	var wg sync.WaitGroup
	results := make([]*model.InstallResult, 2)
	for i, id := range []model.ModID{1, 2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.uc.Install(context.Background(), id)
			gt.NoError(t, err)
			results[i] = result
		}()
	}
	wg.Wait()

	gt.Value(t, results[0].State).Equal(model.StateCompleted)
	gt.Value(t, results[1].State).Equal(model.StateCompleted)

	got := readTree(t, filepath.Join(f.roots.Mods, "Shared"))
	if got["mod.txt"] == "A" {
		gt.Value(t, got).Equal(treeA)
	} else {
		gt.Value(t, got).Equal(treeB)
	}
	gt.Value(t, dirEntries(t, f.roots.Mods)).Equal([]string{"Shared"})
	gt.False(t, exists(filepath.Join(f.scratch, "1")))
	gt.False(t, exists(filepath.Join(f.scratch, "2")))
}

func TestInstall_ConcurrentDistinctMods(t *testing.T) {
	urls := map[model.ModID]string{}
	archives := map[string][]byte{}
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		id := model.ModID(len(urls) + 100)
		url := "https://example/files/" + name + ".zip"
		urls[id] = url
		archives[url] = createZip(t, zipEntry{name: name + "/mod.txt", body: name})
	}
	f := newFixture(t, urls, archives)

	var wg sync.WaitGroup
	for id := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.uc.Install(context.Background(), id)
			gt.NoError(t, err)
			gt.Value(t, result.State).Equal(model.StateCompleted)
		}()
	}
	wg.Wait()

	gt.Value(t, dirEntries(t, f.roots.Mods)).Equal([]string{"Alpha", "Bravo", "Charlie", "Delta"})
	gt.A(t, dirEntries(t, f.scratch)).Length(0)
	gt.A(t, dirEntries(t, f.staging)).Length(0)
}

// A second run of the same id waits for the first one; otherwise both
// would share and wipe the same staged archive and scratch tree.
func TestInstall_SameModRunsAreSerialized(t *testing.T) {
	const url = "https://example/files/pack.zip"
	archive := createZip(t,
		zipEntry{name: "ModPack/mod.txt", body: "manifest"},
		zipEntry{name: "ModPack/a.lua", body: "a"},
		zipEntry{name: "ModPack/b.lua", body: "b"},
	)
	f := newFixture(t, map[model.ModID]string{42: url}, map[string][]byte{url: archive})

	var resolves atomic.Int32
	f.catalog.getDownloadURLFunc = func(ctx context.Context, id model.ModID) (string, error) {
		resolves.Add(1)
		return url, nil
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var downloads atomic.Int32
	f.catalog.downloadArchiveFunc = func(ctx context.Context, _ string) ([]byte, error) {
		if downloads.Add(1) == 1 {
			close(entered)
			<-release
		}
		return archive, nil
	}

	var wg sync.WaitGroup
	results := make([]*model.InstallResult, 2)
	run := func(i int) {
		defer wg.Done()
		result, err := f.uc.Install(context.Background(), 42)
		gt.NoError(t, err)
		results[i] = result
	}

	wg.Add(1)
	go run(0)
	<-entered

	wg.Add(1)
	go run(1)
	time.Sleep(50 * time.Millisecond)
	gt.Value(t, resolves.Load()).Equal(int32(1))

	close(release)
	wg.Wait()

	gt.Value(t, resolves.Load()).Equal(int32(2))
	gt.Value(t, results[0].State).Equal(model.StateCompleted)
	gt.Value(t, results[1].State).Equal(model.StateCompleted)
	gt.Value(t, readTree(t, filepath.Join(f.roots.Mods, "ModPack"))).Equal(map[string]string{
		"mod.txt": "manifest",
		"a.lua":   "a",
		"b.lua":   "b",
	})
	gt.A(t, dirEntries(t, f.scratch)).Length(0)
	gt.A(t, dirEntries(t, f.staging)).Length(0)
}

func TestInstall_CanceledWhileWaitingForSameMod(t *testing.T) {
	const url = "https://example/files/pack.zip"
	archive := createZip(t, zipEntry{name: "ModPack/mod.txt", body: "manifest"})
	f := newFixture(t, map[model.ModID]string{42: url}, map[string][]byte{url: archive})

	entered := make(chan struct{})
	release := make(chan struct{})
	f.catalog.downloadArchiveFunc = func(ctx context.Context, _ string) ([]byte, error) {
		close(entered)
		<-release
		return archive, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.uc.Install(context.Background(), 42)
		gt.NoError(t, err)
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result, err := f.uc.Install(ctx, 42)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagCanceled))
	gt.Value(t, result.FailedIn).Equal(model.StateResolving)
	gt.Value(t, result.Failure).Equal(model.FailureCanceled)

	close(release)
	<-done
	gt.True(t, exists(filepath.Join(f.roots.Mods, "ModPack", "mod.txt")))
}

// Symlink entries are not materialized, neither as links nor as files
// holding the link target.
func TestInstall_SkipsSymlinkEntries(t *testing.T) {
	const url = "https://example/files/links.zip"

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range []struct {
		name string
		mode os.FileMode
		body string
	}{
		{name: "ModPack/mod.txt", mode: 0o644, body: "manifest"},
		{name: "ModPack/passwd", mode: os.ModeSymlink | 0o777, body: "/etc/passwd"},
	} {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		hdr.SetMode(e.mode)
		fw, err := w.CreateHeader(hdr)
		gt.NoError(t, err)
		_, err = fw.Write([]byte(e.body))
		gt.NoError(t, err)
	}
	gt.NoError(t, w.Close())

	f := newFixture(t, map[model.ModID]string{9: url}, map[string][]byte{url: buf.Bytes()})

	result, err := f.uc.Install(context.Background(), 9)
	gt.NoError(t, err)
	gt.Value(t, result.State).Equal(model.StateCompleted)
	gt.Value(t, readTree(t, filepath.Join(f.roots.Mods, "ModPack"))).Equal(map[string]string{
		"mod.txt": "manifest",
	})
	_, err = os.Lstat(filepath.Join(f.roots.Mods, "ModPack", "passwd"))
	gt.True(t, os.IsNotExist(err))
}
