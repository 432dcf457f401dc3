package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"coopaml/internal/whitelist/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Service defines the whitelist operations the transport layer needs.
type Service interface {
	Add(ctx context.Context, coopID id.CooperativeID, triple models.Triple, reason string) (*models.Entry, error)
	ListByMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]*models.Entry, error)
}

// Handler exposes whitelist endpoints.
type Handler struct {
	whitelist Service
	logger    *slog.Logger
}

func New(whitelist Service, logger *slog.Logger) *Handler {
	return &Handler{whitelist: whitelist, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/whitelist", h.handleAdd)
	r.Get("/members/{memberID}/whitelist", h.handleListByMember)
}

type addRequest struct {
	MemberID   string `json:"member_id"`
	SanctionID string `json:"sanction_id"`
	ListType   string `json:"list_type"`
	Reason     string `json:"reason,omitempty"`
}

type entryResponse struct {
	MemberID   string `json:"member_id"`
	SanctionID string `json:"sanction_id"`
	ListType   string `json:"list_type"`
	AddedBy    string `json:"added_by,omitempty"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toEntryResponse(e *models.Entry) entryResponse {
	return entryResponse{
		MemberID:   e.MemberID.String(),
		SanctionID: e.SanctionID.String(),
		ListType:   string(e.ListType),
		AddedBy:    e.AddedBy,
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	req, ok := httputil.Decode[addRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sanctionID, err := id.ParseSanctionID(req.SanctionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	triple := models.Triple{MemberID: memberID, SanctionID: sanctionID, ListType: id.ListType(req.ListType)}
	entry, err := h.whitelist.Add(ctx, coopID, triple, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to add whitelist entry",
			"request_id", requestID,
			"member_id", req.MemberID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) handleListByMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.whitelist.ListByMember(ctx, coopID, memberID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list whitelist entries",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"whitelist": resp})
}
