package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"coopaml/internal/amlcase/models"
	"coopaml/internal/amlcase/service"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Service defines the case operations the transport layer needs.
type Service interface {
	Open(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID, caseType models.CaseType, notes string) (*models.Case, error)
	Close(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error)
	GenerateSTR(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (string, error)
	List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) (*service.Page, error)
}

// Handler exposes case endpoints.
type Handler struct {
	cases  Service
	logger *slog.Logger
}

func New(cases Service, logger *slog.Logger) *Handler {
	return &Handler{cases: cases, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases", h.handleList)
	r.Post("/cases", h.handleOpen)
	r.Post("/cases/{caseID}/close", h.handleClose)
	r.Post("/cases/{caseID}/str", h.handleGenerateSTR)
}

type openRequest struct {
	MemberID string `json:"member_id"`
	Type     string `json:"type"`
	Notes    string `json:"notes,omitempty"`
}

type caseResponse struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	ClosedAt   string `json:"closed_at,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
}

func toCaseResponse(c *models.Case) caseResponse {
	resp := caseResponse{
		ID:         c.ID.String(),
		MemberID:   c.MemberID.String(),
		Type:       string(c.Type),
		Status:     string(c.Status),
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		ReportPath: c.ReportPath,
	}
	if c.ClosedAt != nil {
		resp.ClosedAt = c.ClosedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	req, ok := httputil.Decode[openRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.cases.Open(ctx, coopID, memberID, models.CaseType(req.Type), req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open case",
			"request_id", requestID,
			"member_id", req.MemberID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.cases.Close(ctx, coopID, caseID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to close case",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) handleGenerateSTR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	path, err := h.cases.GenerateSTR(ctx, coopID, caseID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to generate STR",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"report_path": path})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	q := r.URL.Query()
	filter := models.ListFilter{
		Status: models.CaseStatus(q.Get("status")),
		Type:   models.CaseType(q.Get("type")),
	}
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.cases.List(ctx, coopID, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := make([]caseResponse, 0, len(page.Cases))
	for _, c := range page.Cases {
		resp = append(resp, toCaseResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"cases":  resp,
		"total":  page.Total,
		"offset": page.Offset,
		"limit":  page.Limit,
	})
}
