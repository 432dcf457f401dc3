package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"coopaml/internal/screening/matcher"
	"coopaml/internal/screening/models"
	"coopaml/internal/screening/service"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/httputil"
	"coopaml/pkg/requestcontext"
)

// Service defines the screening operations the transport layer needs.
type Service interface {
	ScreenMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]matcher.Result, error)
	ResolveFlag(ctx context.Context, coopID id.CooperativeID, flagID id.FlagID, resolution string) (*models.Flag, error)
	ListFlags(ctx context.Context, coopID id.CooperativeID, status models.FlagStatus) ([]*models.Flag, error)
}

// Rescreener runs the serialized tenant-wide rescreen.
type Rescreener interface {
	Run(ctx context.Context, coopID id.CooperativeID, listType id.ListType) (*service.RescreenResult, error)
}

// Handler exposes screening and flag endpoints.
type Handler struct {
	screening Service
	rescreen  Rescreener
	logger    *slog.Logger
}

func New(screening Service, rescreen Rescreener, logger *slog.Logger) *Handler {
	return &Handler{screening: screening, rescreen: rescreen, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/screening/members/{memberID}", h.handleScreenMember)
	r.Post("/screening/rescreen", h.handleRescreen)
	r.Get("/flags", h.handleListFlags)
	r.Post("/flags/{flagID}/resolve", h.handleResolveFlag)
}

type flagResponse struct {
	ID         string              `json:"id"`
	MemberID   string              `json:"member_id"`
	Type       string              `json:"type"`
	Details    models.MatchDetails `json:"details"`
	Status     string              `json:"status"`
	CreatedAt  string              `json:"created_at"`
	ResolvedAt string              `json:"resolved_at,omitempty"`
	Resolution string              `json:"resolution,omitempty"`
}

func toFlagResponse(f *models.Flag) flagResponse {
	resp := flagResponse{
		ID:         f.ID.String(),
		MemberID:   f.MemberID.String(),
		Type:       string(f.Type),
		Details:    f.Details,
		Status:     string(f.Status),
		CreatedAt:  f.CreatedAt.UTC().Format(time.RFC3339),
		Resolution: f.Resolution,
	}
	if f.ResolvedAt != nil {
		resp.ResolvedAt = f.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) handleScreenMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.screening.ScreenMember(ctx, coopID, memberID)
	if err != nil {
		h.logger.WarnContext(ctx, "member screening failed",
			"request_id", requestcontext.RequestID(ctx),
			"member_id", memberID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if results == nil {
		results = []matcher.Result{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"matches": results})
}

type rescreenRequest struct {
	ListType string `json:"list_type"`
}

func (h *Handler) handleRescreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	req, ok := httputil.Decode[rescreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	listType, err := id.ParseListType(req.ListType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.rescreen.Run(ctx, coopID, listType)
	if err != nil {
		h.logger.ErrorContext(ctx, "rescreen failed",
			"request_id", requestID,
			"list_type", listType,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coopID := requestcontext.CooperativeID(ctx)

	status := models.FlagStatus(r.URL.Query().Get("status"))
	flags, err := h.screening.ListFlags(ctx, coopID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := make([]flagResponse, 0, len(flags))
	for _, f := range flags {
		resp = append(resp, toFlagResponse(f))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"flags": resp})
}

type resolveFlagRequest struct {
	Resolution string `json:"resolution"`
}

func (h *Handler) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	coopID := requestcontext.CooperativeID(ctx)

	flagID, err := id.ParseFlagID(chi.URLParam(r, "flagID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[resolveFlagRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	flag, err := h.screening.ResolveFlag(ctx, coopID, flagID, req.Resolution)
	if err != nil {
		h.logger.WarnContext(ctx, "flag resolution failed",
			"request_id", requestID,
			"flag_id", flagID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toFlagResponse(flag))
}
