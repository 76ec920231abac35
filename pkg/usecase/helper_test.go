package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// MockCatalogClient is a mock implementation of CatalogClient
type MockCatalogClient struct {
	searchModsFunc      func(ctx context.Context, query model.SearchQuery) (*model.ModPage, error)
	getDownloadURLFunc  func(ctx context.Context, id model.ModID) (string, error)
	downloadArchiveFunc func(ctx context.Context, url string) ([]byte, error)

	mu            sync.Mutex
	downloadCalls []string
}

func (m *MockCatalogClient) SearchMods(ctx context.Context, query model.SearchQuery) (*model.ModPage, error) {
	if m.searchModsFunc != nil {
		return m.searchModsFunc(ctx, query)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockCatalogClient) GetDownloadURL(ctx context.Context, id model.ModID) (string, error) {
	if m.getDownloadURLFunc != nil {
		return m.getDownloadURLFunc(ctx, id)
	}
	return "", errors.New("mock not configured")
}

func (m *MockCatalogClient) DownloadArchive(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.downloadCalls = append(m.downloadCalls, url)
	m.mu.Unlock()

	if m.downloadArchiveFunc != nil {
		return m.downloadArchiveFunc(ctx, url)
	}
	return nil, errors.New("mock not configured")
}

// MockGameLocator returns fixed roots
type MockGameLocator struct {
	roots *model.InstallRoots
	err   error
}

func (m *MockGameLocator) InstalledGames(ctx context.Context) ([]model.InstalledGame, error) {
	return nil, nil
}

func (m *MockGameLocator) InstallRoots(ctx context.Context) (*model.InstallRoots, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roots, nil
}

// recordingEmitter keeps every emitted event
type recordingEmitter struct {
	mu     sync.Mutex
	events []model.Event
}

func (e *recordingEmitter) Emit(ctx context.Context, event model.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) types(id model.ModID) []model.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.EventType
	for _, ev := range e.events {
		if ev.ModID == id {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (e *recordingEmitter) codes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		if ev.Code != "" {
			out = append(out, ev.Code)
		}
	}
	return out
}

type zipEntry struct {
	name string
	body string // empty with a trailing slash in name means directory
}

func createZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		gt.NoError(t, err)
		if e.body != "" {
			_, err = f.Write([]byte(e.body))
			gt.NoError(t, err)
		}
	}
	gt.NoError(t, w.Close())
	return buf.Bytes()
}

// readTree maps every regular file under root to its content
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	gt.NoError(t, err)
	return files
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	gt.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
