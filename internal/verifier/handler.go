package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/platform/httpx"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

// SessionHeader carries the verifier session token; a standard bearer
// Authorization header works as well.
const SessionHeader = "X-Verifier-Session"

// IdentityVerifier resolves a bearer identity token to a user id.
type IdentityVerifier interface {
	Verify(tokenString string) (string, error)
}

// Verifier is the verification contract the handler depends on.
type Verifier interface {
	Verify(ctx context.Context, session shared.VerifierCaller, code, checkpointID string) (*VerifyResult, error)
}

// Unlocker is the unlock contract the handler depends on.
type Unlocker interface {
	Unlock(ctx context.Context, caller shared.IdentityCaller, pin, deviceID string) (*UnlockResult, error)
}

// Handler wires the verifier HTTP endpoints.
type Handler struct {
	logger       *slog.Logger
	verify       Verifier
	unlock       Unlocker
	identity     IdentityVerifier
	sessionCodec *token.Codec
	deduper      *Deduper
	mockMode     bool
	validator    *validator.Validate
}

// HandlerConfig collects Handler dependencies.
type HandlerConfig struct {
	Logger       *slog.Logger
	Verify       Verifier
	Unlock       Unlocker
	Identity     IdentityVerifier
	SessionCodec *token.Codec
	Deduper      *Deduper // optional
	MockMode     bool
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		verify:       cfg.Verify,
		unlock:       cfg.Unlock,
		identity:     cfg.Identity,
		sessionCodec: cfg.SessionCodec,
		deduper:      cfg.Deduper,
		mockMode:     cfg.MockMode,
		validator:    validator.New(),
	}
}

// MountRoutes registers verifier routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/verifier/unlock", h.handleUnlock)
	r.Post("/api/verifier/verify", h.handleVerify)
}

type unlockRequest struct {
	Pin      string `json:"pin" validate:"required"`
	DeviceID string `json:"deviceId"`
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Verify(httpx.Bearer(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req unlockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed json", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: pin is required", shared.ErrValidation))
		return
	}

	result, err := h.unlock.Unlock(r.Context(), shared.IdentityCaller{UserID: userID}, req.Pin, req.DeviceID)
	if err != nil {
		h.logger.Info("verifier unlock rejected", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type verifyRequest struct {
	Code         string `json:"code" validate:"required"`
	CheckpointID string `json:"checkpointId" validate:"required"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed json", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: code and checkpointId are required", shared.ErrValidation))
		return
	}
	if !pass.ValidCode(req.Code) {
		httpx.RespondError(w, fmt.Errorf("%w: code must be 4 digits", shared.ErrValidation))
		return
	}

	if h.mockMode {
		httpx.JSON(w, http.StatusOK, MockVerify(req.Code, req.CheckpointID))
		return
	}

	session, err := h.resolveSession(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if h.deduper != nil && idemKey != "" {
		cached, err := h.deduper.Lookup(r.Context(), idemKey)
		if err != nil {
			h.logger.Warn("verify dedup lookup", slog.Any("error", err))
		} else if cached != nil {
			httpx.JSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.verify.Verify(r.Context(), session, req.Code, req.CheckpointID)
	if err != nil {
		h.logger.Info("verify failed",
			slog.String("staff_id", session.StaffID),
			slog.String("checkpoint_id", req.CheckpointID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if h.deduper != nil && idemKey != "" {
		if err := h.deduper.Store(r.Context(), idemKey, result); err != nil {
			h.logger.Warn("verify dedup store", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, result)
}

// resolveSession verifies the session token and builds the VerifierCaller
// once; core logic never re-derives trust from request fields.
func (h *Handler) resolveSession(r *http.Request) (shared.VerifierCaller, error) {
	tok := r.Header.Get(SessionHeader)
	if tok == "" {
		tok = httpx.Bearer(r)
	}
	if tok == "" {
		return shared.VerifierCaller{}, fmt.Errorf("%w: verifier session required", shared.ErrUnauthorized)
	}
	claims, err := h.sessionCodec.Verify(tok)
	if err != nil || claims.StaffID == "" || claims.OrgID == "" {
		return shared.VerifierCaller{}, fmt.Errorf("%w: verifier session", shared.ErrUnauthorized)
	}
	return shared.VerifierCaller{
		StaffID:  claims.StaffID,
		OrgID:    claims.OrgID,
		UserID:   claims.UserID,
		DeviceID: claims.DeviceID,
	}, nil
}
