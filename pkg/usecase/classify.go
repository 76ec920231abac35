package usecase

import (
	"path/filepath"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// classify picks the destination of an extracted tree. Override bundles win
// over packages; nil means the layout is not recognized.
func classify(result *model.ExtractionResult, roots *model.InstallRoots) *model.InstallTarget {
	switch {
	case result.OverrideDir != "":
		return &model.InstallTarget{
			Kind:   model.TargetOverrides,
			Source: result.OverrideDir,
			Path:   filepath.Join(roots.Overrides, filepath.Base(result.OverrideDir)),
		}
	case result.PackageDir != "":
		return &model.InstallTarget{
			Kind:   model.TargetMods,
			Source: result.PackageDir,
			Path:   filepath.Join(roots.Mods, filepath.Base(result.PackageDir)),
		}
	default:
		return nil
	}
}
