package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . InstallUseCase SearchUseCase

import (
	"context"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// InstallUseCase runs the acquisition-and-installation pipeline
type InstallUseCase interface {
	// Install downloads, extracts, classifies and installs one mod. Non-error
	// terminal outcomes are reported through the result state with a nil error.
	Install(ctx context.Context, id model.ModID) (*model.InstallResult, error)
}

// SearchUseCase queries the catalog
type SearchUseCase interface {
	Search(ctx context.Context, query model.SearchQuery) (*model.ModPage, error)
}
