package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"coopaml/internal/ttr/models"
	"coopaml/internal/ttr/service"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Service defines the TTR operations the transport layer needs.
type Service interface {
	CreateFromThreshold(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID, forDate time.Time, total decimal.Decimal, sof models.SourceOfFunds) (*models.Report, error)
	Approve(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error)
	Reject(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID, remarks string) (*models.Report, error)
	GenerateXML(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (string, error)
	List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) (*service.Page, error)
}

// Handler exposes TTR endpoints.
type Handler struct {
	ttrs   Service
	logger *slog.Logger
}

func New(ttrs Service, logger *slog.Logger) *Handler {
	return &Handler{ttrs: ttrs, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/ttrs", h.handleList)
	r.Post("/ttrs", h.handleCreate)
	r.Post("/ttrs/{reportID}/approve", h.handleApprove)
	r.Post("/ttrs/{reportID}/reject", h.handleReject)
	r.Post("/ttrs/{reportID}/xml", h.handleGenerateXML)
}

type createRequest struct {
	MemberID          string `json:"member_id"`
	ForDate           string `json:"for_date"`
	TotalAmount       string `json:"total_amount"`
	SourceDeclaration string `json:"source_declaration,omitempty"`
	SourceAttachment  string `json:"source_attachment,omitempty"`
}

type reportResponse struct {
	ID            string               `json:"id"`
	MemberID      string               `json:"member_id"`
	ForDate       string               `json:"for_date"`
	TotalAmount   string               `json:"total_amount"`
	Status        string               `json:"status"`
	Deadline      string               `json:"deadline"`
	Remarks       string               `json:"remarks,omitempty"`
	XMLPath       string               `json:"xml_path,omitempty"`
	SourceOfFunds models.SourceOfFunds `json:"source_of_funds"`
	CreatedAt     string               `json:"created_at"`
	DecidedAt     string               `json:"decided_at,omitempty"`
}

func toReportResponse(r *models.Report) reportResponse {
	resp := reportResponse{
		ID:            r.ID.String(),
		MemberID:      r.MemberID.String(),
		ForDate:       r.ForDate.Format("2006-01-02"),
		TotalAmount:   r.TotalAmount.String(),
		Status:        string(r.Status),
		Deadline:      r.Deadline.Format("2006-01-02"),
		Remarks:       r.Remarks,
		XMLPath:       r.XMLPath,
		SourceOfFunds: r.SourceOfFunds,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		resp.DecidedAt = r.DecidedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	req, ok := httputil.Decode[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	forDate, err := time.Parse("2006-01-02", req.ForDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "for_date must be YYYY-MM-DD"))
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "total_amount must be a decimal number"))
		return
	}

	report, err := h.ttrs.CreateFromThreshold(ctx, coopID, memberID, forDate, total, models.SourceOfFunds{
		Declaration:    req.SourceDeclaration,
		AttachmentPath: req.SourceAttachment,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create ttr",
			"request_id", requestID,
			"member_id", req.MemberID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toReportResponse(report))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.ttrs.Approve(ctx, coopID, reportID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to approve ttr",
			"request_id", requestcontext.RequestID(ctx),
			"report_id", reportID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toReportResponse(report))
}

type rejectRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[rejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.ttrs.Reject(ctx, coopID, reportID, req.Remarks)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to reject ttr",
			"request_id", requestID,
			"report_id", reportID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) handleGenerateXML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	path, err := h.ttrs.GenerateXML(ctx, coopID, reportID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to generate ttr xml",
			"request_id", requestcontext.RequestID(ctx),
			"report_id", reportID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"xml_path": path})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	q := r.URL.Query()
	filter := models.ListFilter{Status: models.ReportStatus(q.Get("status"))}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "to must be YYYY-MM-DD"))
			return
		}
		filter.To = t
	}
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.ttrs.List(ctx, coopID, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := make([]reportResponse, 0, len(page.Reports))
	for _, report := range page.Reports {
		resp = append(resp, toReportResponse(report))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ttrs":   resp,
		"total":  page.Total,
		"offset": page.Offset,
		"limit":  page.Limit,
	})
}
