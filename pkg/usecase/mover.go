package usecase

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

// install moves the classified tree into place. Installs of the same
// destination are serialized.
func (uc *installUseCase) install(ctx context.Context, target *model.InstallTarget) error {
	unlock := uc.locks.Lock(filepath.Clean(target.Path))
	defer unlock()

	ctxlog.From(ctx).Debug("Moving mod directory",
		"from", target.Source,
		"to", target.Path,
	)
	return moveTree(ctx, target.Source, target.Path)
}

// moveTree relocates src to dst by copy and delete, so src and dst may live
// on different filesystems. The copy lands in a hidden sibling of dst first
// and replaces any previous dst only after it is complete. src is removed
// last; on any failure it is left untouched.
func moveTree(ctx context.Context, src, dst string) error {
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create destination root",
			goerr.V("path", parent),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	partial := filepath.Join(parent, "."+filepath.Base(dst)+".partial-"+uuid.NewString())
	if err := copyTree(ctx, src, partial); err != nil {
		_ = os.RemoveAll(partial)
		return err
	}

	if err := os.RemoveAll(dst); err != nil {
		_ = os.RemoveAll(partial)
		return goerr.Wrap(err, "failed to remove previous installation",
			goerr.V("path", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.RemoveAll(partial)
		return goerr.Wrap(err, "failed to move installation into place",
			goerr.V("from", partial),
			goerr.V("to", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	if err := os.RemoveAll(src); err != nil {
		return goerr.Wrap(err, "failed to remove source directory",
			goerr.V("path", src),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	return nil
}

// copyTree recursively copies directories and regular files from src to dst
func copyTree(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create directory",
			goerr.V("path", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return goerr.Wrap(err, "failed to read directory",
			goerr.V("path", src),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	for _, entry := range entries {
		if err := checkpoint(ctx); err != nil {
			return err
		}

		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := copyTree(ctx, from, to); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if err := copyFile(from, to); err != nil {
				return err
			}
		default:
			ctxlog.From(ctx).Warn("Skipping non-regular file", "path", from, "type", entry.Type().String())
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return goerr.Wrap(err, "failed to open source file",
			goerr.V("path", src),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat source file",
			goerr.V("path", src),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return goerr.Wrap(err, "failed to create file",
			goerr.V("path", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return goerr.Wrap(err, "failed to copy file",
			goerr.V("from", src),
			goerr.V("to", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	if err := out.Close(); err != nil {
		return goerr.Wrap(err, "failed to close file",
			goerr.V("path", dst),
			goerr.T(types.ErrTagFileSystem),
		)
	}
	return nil
}
