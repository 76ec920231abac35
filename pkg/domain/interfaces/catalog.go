package interfaces

import (
	"context"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// CatalogClient defines operations against the remote mod catalog
type CatalogClient interface {
	// SearchMods returns one page of mod summaries matching the query
	SearchMods(ctx context.Context, query model.SearchQuery) (*model.ModPage, error)

	// GetDownloadURL resolves the download URL of a mod. An empty string with
	// a nil error means the catalog has no download for the mod.
	GetDownloadURL(ctx context.Context, id model.ModID) (string, error)

	// DownloadArchive fetches the whole body of url in a single request
	DownloadArchive(ctx context.Context, url string) ([]byte, error)
}
