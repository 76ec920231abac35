package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

// Dispatcher runs a handler in the background
type Dispatcher interface {
	Dispatch(ctx context.Context, handler func(ctx context.Context) error)
}

// ModHandler serves catalog search and background installs
type ModHandler struct {
	installUC  interfaces.InstallUseCase
	searchUC   interfaces.SearchUseCase
	tracker    interfaces.RunTracker
	dispatcher Dispatcher
}

// NewModHandler creates a new ModHandler
func NewModHandler(installUC interfaces.InstallUseCase, searchUC interfaces.SearchUseCase, tracker interfaces.RunTracker, dispatcher Dispatcher) *ModHandler {
	return &ModHandler{
		installUC:  installUC,
		searchUC:   searchUC,
		tracker:    tracker,
		dispatcher: dispatcher,
	}
}

// Search handles GET /api/mods
func (h *ModHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := model.SearchQuery{Query: q.Get("query")}
	for name, dst := range map[string]*int{"limit": &query.Limit, "page": &query.Page} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(ctx, w, goerr.New("invalid "+name, goerr.V(name, raw)), http.StatusBadRequest)
			return
		}
		*dst = v
	}

	page, err := h.searchUC.Search(ctx, query)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to search mods", "error", err)
		writeError(ctx, w, err, http.StatusBadGateway)
		return
	}

	writeJSON(ctx, w, http.StatusOK, page)
}

// Install handles POST /api/mods/{id}/install. The run continues after the
// response; its progress is available from GET /api/runs/{run_id}.
func (h *ModHandler) Install(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := model.ParseModID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err, http.StatusBadRequest)
		return
	}

	runID := h.tracker.Start(id)
	ctxlog.From(ctx).Info("Dispatching install", "mod_id", id, "run_id", runID)

	h.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		ctx = h.tracker.Bind(ctx, runID)
		ctx = ctxlog.With(ctx, ctxlog.From(ctx).With("run_id", runID, "mod_id", id))

		result, err := h.installUC.Install(ctx, id)
		h.tracker.Finish(runID, result, err)
		return err
	})

	writeJSON(ctx, w, http.StatusAccepted, map[string]string{
		"run_id": runID,
	})
}

// Run handles GET /api/runs/{run_id}
func (h *ModHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.tracker.Get(chi.URLParam(r, "run_id"))
	if err != nil {
		if goerr.HasTag(err, types.ErrTagNotFound) {
			writeError(ctx, w, err, http.StatusNotFound)
			return
		}
		writeError(ctx, w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, http.StatusOK, status)
}
