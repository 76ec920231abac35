package usecase

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

const (
	// overrideMarker identifies an asset override bundle
	overrideMarker = "main.xml"
	// packageMarker identifies a standard mod package
	packageMarker = "mod.txt"
)

// markerRecorder keeps the parent directory of the first occurrence of each
// marker kind, so the result does not depend on how many markers follow.
type markerRecorder struct {
	overrideDir string
	packageDir  string
}

func (m *markerRecorder) observe(filePath string) {
	switch filepath.Base(filePath) {
	case overrideMarker:
		if m.overrideDir == "" {
			m.overrideDir = filepath.Dir(filePath)
		}
	case packageMarker:
		if m.packageDir == "" {
			m.packageDir = filepath.Dir(filePath)
		}
	}
}

// extract expands the archive into a fresh scratch directory of the mod
func (uc *installUseCase) extract(ctx context.Context, archivePath string, id model.ModID) (*model.ExtractionResult, error) {
	logger := ctxlog.From(ctx)
	root := uc.scratchPath(id)

	if err := os.RemoveAll(root); err != nil {
		return nil, goerr.Wrap(err, "failed to reset scratch directory",
			goerr.V("scratch_dir", root),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create scratch directory",
			goerr.V("scratch_dir", root),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, goerr.Wrap(err, "failed to open archive",
			goerr.V("path", archivePath),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	defer func() { _ = zr.Close() }()

	result := &model.ExtractionResult{Root: root}
	var markers markerRecorder

	for _, file := range zr.File {
		if err := checkpoint(ctx); err != nil {
			return nil, err
		}

		destPath, ok := resolveEntryPath(root, file.Name)
		if !ok {
			logger.Warn("Skipping archive entry outside scratch directory", "entry", file.Name)
			result.Skipped++
			continue
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return nil, goerr.Wrap(err, "failed to create directory",
					goerr.V("path", destPath),
					goerr.T(types.ErrTagFileSystem),
				)
			}
			continue
		}
		if !file.Mode().IsRegular() {
			logger.Warn("Skipping non-regular archive entry", "entry", file.Name, "mode", file.Mode().String())
			result.Skipped++
			continue
		}

		n, err := extractFile(file, destPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("Extracted entry", "path", destPath, "size_bytes", n)

		result.Files++
		result.Size += n
		markers.observe(destPath)
	}

	result.OverrideDir = markers.overrideDir
	result.PackageDir = markers.packageDir
	return result, nil
}

// resolveEntryPath maps an archive entry name to a path strictly inside root.
// Absolute names and names climbing out of root are rejected.
func resolveEntryPath(root, name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || path.IsAbs(name) || filepath.VolumeName(filepath.FromSlash(name)) != "" {
		return "", false
	}

	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}

	dest := filepath.Join(root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(dest, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", false
	}
	return dest, true
}

// extractFile writes a single archive entry, creating parents on demand
func extractFile(file *zip.File, destPath string) (int64, error) {
	rc, err := file.Open()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open archive entry",
			goerr.V("entry", file.Name),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, goerr.Wrap(err, "failed to create parent directories",
			goerr.V("path", filepath.Dir(destPath)),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create destination file",
			goerr.V("path", destPath),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	n, err := io.Copy(out, rc)
	if err != nil {
		_ = out.Close()
		return 0, goerr.Wrap(err, "failed to copy entry content",
			goerr.V("entry", file.Name),
			goerr.V("path", destPath),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	if err := out.Close(); err != nil {
		return 0, goerr.Wrap(err, "failed to close destination file",
			goerr.V("path", destPath),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	return n, nil
}
