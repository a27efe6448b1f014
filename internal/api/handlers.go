package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/extract"
	"github.com/starford/zettel/internal/index"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ResultsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.FullText(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		Notes carrying a matching tag
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Tag substring"
//	@Success		200	{object}	ResultsResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	h.factQuery(w, r, "tags", h.svc.Tags)
}

// Links handles GET /api/links.
//
//	@Summary		Notes linking to a matching target (backlinks)
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Link target substring"
//	@Success		200	{object}	ResultsResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [get]
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	h.factQuery(w, r, "links", h.svc.Links)
}

func (h *Handler) factQuery(w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, q string) ([]models.Projection, error)) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := fn(r.Context(), q)
	if err != nil {
		slog.Error(name+" query failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: results})
}

// GetNote handles GET /api/notes/{identity}.
//
//	@Summary		Get a single note by identity
//	@Tags			notes
//	@Produce		json
//	@Param			identity	path		string	true	"Note identity"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{identity} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identity")
	note, err := h.svc.Note(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("get note failed", slog.String("identity", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Re-index the whole wiki or selected notes
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReindexRequest	true	"What to re-index"
//	@Success		200		{object}	ReindexResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || json.Unmarshal(body, &req) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if !req.All && len(req.Paths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("either 'all' or 'paths' is required"))
		return
	}

	var rep index.Report
	if req.All {
		rep, err = h.svc.IndexAll(r.Context())
	} else {
		rep, err = h.svc.IndexPaths(r.Context(), req.Paths)
	}
	if err != nil {
		slog.Error("reindex failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse(rep))
}

func reindexResponse(rep index.Report) ReindexResponse {
	return ReindexResponse{
		Indexed: rep.Indexed,
		Pruned:  rep.Pruned,
		Failures: lo.Map(rep.Failures, func(f extract.Failure, _ int) ReindexFailure {
			return ReindexFailure{Path: f.Path, Error: f.Err.Error()}
		}),
	}
}
