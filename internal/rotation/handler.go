package rotation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatepass/gatepass/internal/platform/httpx"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

// IdentityVerifier resolves a bearer identity token to a user id.
type IdentityVerifier interface {
	Verify(tokenString string) (string, error)
}

// CodeService is the business contract the handler depends on.
type CodeService interface {
	GetCode(ctx context.Context, loc Locator) (*CodeResult, error)
}

// Handler wires the code rotation HTTP endpoint.
type Handler struct {
	logger     *slog.Logger
	service    CodeService
	identity   IdentityVerifier
	guestCodec *token.Codec
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service CodeService, identity IdentityVerifier, guestCodec *token.Codec) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, identity: identity, guestCodec: guestCodec}
}

// MountRoutes registers rotation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/codes", h.handleGetCode)
}

type codeRequest struct {
	CredentialID string `json:"credentialId"`
	GuestToken   string `json:"guestToken"`
}

func (h *Handler) handleGetCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	// An empty body is fine: identity callers may rely on their own single
	// active credential.
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, fmt.Errorf("%w: malformed json", shared.ErrValidation))
		return
	}

	loc, err := h.resolveLocator(r, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.GetCode(r.Context(), loc)
	if err != nil {
		h.logger.Info("get code failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, result)
}

// resolveLocator builds the Caller variant once at the boundary: a guest token
// wins when present, otherwise the request needs a verified identity token.
func (h *Handler) resolveLocator(r *http.Request, req codeRequest) (Locator, error) {
	if req.GuestToken != "" {
		claims, err := h.guestCodec.Verify(req.GuestToken)
		if err != nil || claims.Typ != token.TypGuest {
			return Locator{}, fmt.Errorf("%w: guest token", shared.ErrUnauthorized)
		}
		return Locator{Caller: shared.GuestCaller{
			OrgID:        claims.OrgID,
			CredentialID: claims.CredentialID,
		}}, nil
	}

	userID, err := h.identity.Verify(httpx.Bearer(r))
	if err != nil {
		return Locator{}, err
	}
	return Locator{
		Caller:       shared.IdentityCaller{UserID: userID},
		CredentialID: req.CredentialID,
	}, nil
}
