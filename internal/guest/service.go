// Package guest mints guest credentials and their signed invitation tokens.
package guest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

const (
	// MaxWindow bounds the requested guest validity window.
	MaxWindow = 7 * 24 * time.Hour
	// TokenGrace extends the invitation token past the window end so an
	// expired guest can still be looked up and audited. The date check in
	// verification stops them from passing a checkpoint regardless.
	TokenGrace = 7 * 24 * time.Hour
)

// Repository defines persistence operations for the guest module.
type Repository interface {
	// ActiveInvitingCredential returns the caller's single active credential
	// whose type may invite guests, shared.ErrNotFound when there is none.
	ActiveInvitingCredential(ctx context.Context, userID string) (*pass.Credential, error)
	CreateCredential(ctx context.Context, c pass.Credential) error
}

// Service implements guest pass issuance.
type Service struct {
	repo    Repository
	codec   *token.Codec
	baseURL string
	now     func() time.Time
}

// NewService constructs a Service. baseURL is the public origin embedded in
// shareable guest links.
func NewService(repo Repository, codec *token.Codec, baseURL string) *Service {
	return &Service{repo: repo, codec: codec, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// IssueInput is a validated issuance request.
type IssueInput struct {
	GuestName string
	ValidFrom time.Time
	ValidTo   time.Time
}

// Issued is the result of minting a guest pass.
type Issued struct {
	CredentialID string `json:"credentialId"`
	GuestToken   string `json:"guestToken"`
	GuestURL     string `json:"guestUrl"`
}

// Issue mints a guest credential scoped to the requested window on behalf of
// caller, and signs its invitation token.
func (s *Service) Issue(ctx context.Context, caller shared.IdentityCaller, in IssueInput) (*Issued, error) {
	name := strings.TrimSpace(in.GuestName)
	if name == "" {
		return nil, fmt.Errorf("%w: guest name required", shared.ErrValidation)
	}
	if in.ValidFrom.IsZero() || in.ValidTo.IsZero() || !in.ValidFrom.Before(in.ValidTo) {
		return nil, fmt.Errorf("%w: validFrom must precede validTo", shared.ErrValidation)
	}
	if in.ValidTo.Sub(in.ValidFrom) > MaxWindow {
		return nil, fmt.Errorf("%w: window exceeds 7 days", shared.ErrValidation)
	}

	inviter, err := s.repo.ActiveInvitingCredential(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active credential eligible to invite", shared.ErrForbidden)
		}
		return nil, err
	}

	cred := pass.Credential{
		ID:          "crd_" + uuid.NewString(),
		OrgID:       inviter.OrgID,
		Type:        pass.TypeGuest,
		Status:      pass.StatusActive,
		ValidFrom:   in.ValidFrom,
		ValidTo:     in.ValidTo,
		DisplayName: name,
		CreatedBy:   caller.UserID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("guest: create credential: %w", err)
	}

	tok, err := s.codec.Sign(token.Claims{
		ExpiresAt:    in.ValidTo.Add(TokenGrace).Unix(),
		Typ:          token.TypGuest,
		OrgID:        cred.OrgID,
		CredentialID: cred.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("guest: sign token: %w", err)
	}

	return &Issued{
		CredentialID: cred.ID,
		GuestToken:   tok,
		GuestURL:     s.baseURL + "/g?token=" + url.QueryEscape(tok),
	}, nil
}

// WithClock overrides the time source; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
