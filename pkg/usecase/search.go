package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

type searchUseCase struct {
	catalog interfaces.CatalogClient
}

// NewSearch creates a new instance of SearchUseCase
func NewSearch(catalog interfaces.CatalogClient) interfaces.SearchUseCase {
	return &searchUseCase{catalog: catalog}
}

// Search queries the catalog for one page of mods
func (uc *searchUseCase) Search(ctx context.Context, query model.SearchQuery) (*model.ModPage, error) {
	logger := ctxlog.From(ctx)
	logger.Info("Searching catalog", "query", query.Query, "limit", query.Limit, "page", query.Page)

	page, err := uc.catalog.SearchMods(ctx, query)
	if err != nil {
		logger.Error("Catalog search failed", "error", err)
		return nil, err
	}

	logger.Debug("Catalog search completed",
		"count", len(page.Mods),
		"current_page", page.Meta.CurrentPage,
		"last_page", page.Meta.LastPage,
	)
	return page, nil
}
