package guest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatepass/gatepass/internal/platform/httpx"
	"github.com/gatepass/gatepass/internal/shared"
)

// IdentityVerifier resolves a bearer identity token to a user id.
type IdentityVerifier interface {
	Verify(tokenString string) (string, error)
}

// Issuer is the business contract the handler depends on.
type Issuer interface {
	Issue(ctx context.Context, caller shared.IdentityCaller, in IssueInput) (*Issued, error)
}

// Handler wires the guest pass HTTP endpoint.
type Handler struct {
	logger    *slog.Logger
	service   Issuer
	identity  IdentityVerifier
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service Issuer, identity IdentityVerifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		identity:  identity,
		validator: validator.New(),
	}
}

// MountRoutes registers guest routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/guest-passes", h.handleIssue)
}

type issueRequest struct {
	GuestName string `json:"guestName" validate:"required"`
	ValidFrom string `json:"validFrom" validate:"required"`
	ValidTo   string `json:"validTo" validate:"required"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Verify(httpx.Bearer(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed json", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: guestName, validFrom and validTo are required", shared.ErrValidation))
		return
	}
	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: validFrom must be RFC3339", shared.ErrValidation))
		return
	}
	validTo, err := time.Parse(time.RFC3339, req.ValidTo)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: validTo must be RFC3339", shared.ErrValidation))
		return
	}

	caller := shared.IdentityCaller{UserID: userID}
	issued, err := h.service.Issue(r.Context(), caller, IssueInput{
		GuestName: req.GuestName,
		ValidFrom: validFrom,
		ValidTo:   validTo,
	})
	if err != nil {
		h.logger.Info("guest pass issue rejected", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, issued)
}
