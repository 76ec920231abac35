package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

// stage writes downloaded bytes to <staging>/<id>.<ext>
func (uc *installUseCase) stage(ctx context.Context, desc *model.DownloadDescriptor, data []byte) (string, error) {
	if err := os.MkdirAll(uc.stagingDir, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create staging directory",
			goerr.V("staging_dir", uc.stagingDir),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	path := filepath.Join(uc.stagingDir, desc.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", goerr.Wrap(err, "failed to write staged archive",
			goerr.V("path", path),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	ctxlog.From(ctx).Debug("Staged archive", "path", path, "size_bytes", len(data))
	return path, nil
}
