package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"coopaml/internal/sanction/models"
	"coopaml/internal/sanction/service"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Service defines the watchlist operations the transport layer needs.
type Service interface {
	Import(ctx context.Context, coopID id.CooperativeID, listType id.ListType, rows []models.ImportRow) (*service.ImportResult, error)
	List(ctx context.Context, coopID id.CooperativeID) ([]*models.SanctionRecord, error)
}

// Handler exposes watchlist import and listing endpoints.
type Handler struct {
	sanctions Service
	logger    *slog.Logger
}

func New(sanctions Service, logger *slog.Logger) *Handler {
	return &Handler{sanctions: sanctions, logger: logger}
}

// Register mounts the sanction routes. The router already carries tenant
// authentication; handlers read the cooperative scope from context and pass
// it down explicitly.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sanctions/import/{listType}", h.handleImport)
	r.Get("/sanctions", h.handleList)
}

type importRequest struct {
	Rows []models.ImportRow `json:"rows"`
}

type sanctionResponse struct {
	ID          string   `json:"id"`
	ListType    string   `json:"list_type"`
	FullName    string   `json:"full_name"`
	Aliases     []string `json:"aliases,omitempty"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	NationalID  string   `json:"national_id,omitempty"`
	LastUpdated string   `json:"last_updated"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	listType, err := id.ParseListType(chi.URLParam(r, "listType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[importRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if len(req.Rows) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "import requires at least one row"))
		return
	}

	result, err := h.sanctions.Import(ctx, coopID, listType, req.Rows)
	if err != nil {
		h.logger.ErrorContext(ctx, "watchlist import failed",
			"request_id", requestID,
			"list_type", listType,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "watchlist imported",
		"request_id", requestID,
		"list_type", listType,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	records, err := h.sanctions.List(ctx, coopID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list watchlist",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]sanctionResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, sanctionResponse{
			ID:          rec.ID.String(),
			ListType:    string(rec.ListType),
			FullName:    rec.FullName,
			Aliases:     rec.Aliases,
			DateOfBirth: rec.DateOfBirth,
			Nationality: rec.Nationality,
			NationalID:  rec.NationalID,
			LastUpdated: rec.LastUpdated.UTC().Format(time.RFC3339),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sanctions": resp})
}
