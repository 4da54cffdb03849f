// Package rotation issues and rotates the short-lived 4-digit codes that stand
// in for credentials at checkpoints.
package rotation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
)

// mintAttempts bounds the per-org collision probe loop. The whole loop runs
// inside one store transaction.
const mintAttempts = 25

// Repository provides transactional access to the credential store.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the set of operations available inside one transaction.
type TxRepository interface {
	GetCredential(ctx context.Context, credentialID string) (*pass.Credential, error)
	ActiveCredentialForUser(ctx context.Context, userID string) (*pass.Credential, error)
	GetOrg(ctx context.Context, orgID string) (*pass.Org, error)
	GetRotatingCode(ctx context.Context, orgID, code string) (*pass.RotatingCode, error)
	// DeleteRotatingCodeIfOwned removes the (orgID, code) slot only while it
	// still points at credentialID, guarding against a concurrent reassignment.
	DeleteRotatingCodeIfOwned(ctx context.Context, orgID, code, credentialID string) error
	// DeleteRotatingCode removes the slot unconditionally (expired entries).
	DeleteRotatingCode(ctx context.Context, orgID, code string) error
	InsertRotatingCode(ctx context.Context, rc pass.RotatingCode) error
	UpdateCredentialRotation(ctx context.Context, credentialID, code string, issuedAt, expiresAt time.Time) error
}

// Locator identifies which credential a getCode call targets. Caller must be
// an IdentityCaller or a GuestCaller, resolved at the HTTP boundary.
type Locator struct {
	Caller       shared.Caller
	CredentialID string // optional explicit id, identity callers only
}

// CodeResult is the outcome of a getCode call. When CanVerify is false the
// code fields are empty and Reason names the cause; this is a normal outcome,
// not an error.
type CodeResult struct {
	Code            string       `json:"code,omitempty"`
	ExpiresAt       *time.Time   `json:"expiresAt,omitempty"`
	RotationSeconds int          `json:"rotationSeconds"`
	Credential      pass.Summary `json:"credential"`
	CanVerify       bool         `json:"canVerify"`
	Reason          pass.Reason  `json:"reason,omitempty"`
}

// Metrics is the optional instrumentation hook for minting.
type Metrics interface {
	CodeMinted()
	MintRetried()
}

type noopMetrics struct{}

func (noopMetrics) CodeMinted()  {}
func (noopMetrics) MintRetried() {}

// Service implements code issuance and rotation.
type Service struct {
	repo    Repository
	metrics Metrics
	now     func() time.Time
	draw    func() (string, error)
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, metrics: noopMetrics{}, now: time.Now, draw: drawCode}
}

// WithMetrics installs an instrumentation hook.
func (s *Service) WithMetrics(m Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// GetCode returns the credential's current valid rotating code, minting a
// fresh one transactionally when none is live. Safe to call repeatedly:
// within the rotation window it returns the same code unchanged.
func (s *Service) GetCode(ctx context.Context, loc Locator) (*CodeResult, error) {
	var result *CodeResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := s.getCodeTx(ctx, tx, loc)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) getCodeTx(ctx context.Context, tx TxRepository, loc Locator) (*CodeResult, error) {
	now := s.now().UTC()

	cred, err := s.resolveCredential(ctx, tx, loc)
	if err != nil {
		return nil, err
	}

	if guest, ok := loc.Caller.(shared.GuestCaller); ok && guest.OrgID != cred.OrgID {
		return nil, fmt.Errorf("%w: organization mismatch", shared.ErrForbidden)
	}
	if id, ok := loc.Caller.(shared.IdentityCaller); ok {
		if cred.UserID != "" && cred.UserID != id.UserID {
			return nil, fmt.Errorf("%w: credential belongs to another user", shared.ErrForbidden)
		}
	}

	rotationSeconds := pass.DefaultRotationSeconds
	org, err := tx.GetOrg(ctx, cred.OrgID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if org != nil {
		rotationSeconds = org.RotationSeconds()
	}

	result := &CodeResult{
		RotationSeconds: rotationSeconds,
		Credential:      cred.Summarize(),
	}

	if reason := cred.Eligibility(now); reason != pass.ReasonOK {
		result.Reason = reason
		return result, nil
	}
	result.CanVerify = true

	if cred.HasLiveCode(now) {
		expires := cred.CurrentCodeExpiresAt
		result.Code = cred.CurrentCode
		result.ExpiresAt = &expires
		return result, nil
	}

	code, err := s.mint(ctx, tx, cred.OrgID, now)
	if err != nil {
		return nil, err
	}

	if pass.ValidCode(cred.CurrentCode) {
		if err := tx.DeleteRotatingCodeIfOwned(ctx, cred.OrgID, cred.CurrentCode, cred.ID); err != nil {
			return nil, err
		}
	}

	expiresAt := now.Add(time.Duration(rotationSeconds) * time.Second)
	if err := tx.InsertRotatingCode(ctx, pass.RotatingCode{
		OrgID:        cred.OrgID,
		Code:         code,
		CredentialID: cred.ID,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return nil, err
	}
	if err := tx.UpdateCredentialRotation(ctx, cred.ID, code, now, expiresAt); err != nil {
		return nil, err
	}

	s.metrics.CodeMinted()
	result.Code = code
	result.ExpiresAt = &expiresAt
	return result, nil
}

func (s *Service) resolveCredential(ctx context.Context, tx TxRepository, loc Locator) (*pass.Credential, error) {
	switch caller := loc.Caller.(type) {
	case shared.GuestCaller:
		return tx.GetCredential(ctx, caller.CredentialID)
	case shared.IdentityCaller:
		if loc.CredentialID != "" {
			return tx.GetCredential(ctx, loc.CredentialID)
		}
		return tx.ActiveCredentialForUser(ctx, caller.UserID)
	default:
		return nil, shared.ErrUnauthorized
	}
}

// mint probes random per-org slots until one is free of a live entry. The
// caller's transaction makes the probe and the later insert atomic; a race
// lost anyway surfaces as a unique violation and retries the transaction.
func (s *Service) mint(ctx context.Context, tx TxRepository, orgID string, now time.Time) (string, error) {
	for attempt := 0; attempt < mintAttempts; attempt++ {
		code, err := s.draw()
		if err != nil {
			return "", err
		}
		existing, err := tx.GetRotatingCode(ctx, orgID, code)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
		if existing != nil {
			if existing.Live(now) {
				s.metrics.MintRetried()
				continue // collision with a live code
			}
			if err := tx.DeleteRotatingCode(ctx, existing.OrgID, existing.Code); err != nil {
				return "", err
			}
		}
		return code, nil
	}
	return "", fmt.Errorf("%w: code space congested", shared.ErrRetryLater)
}

// drawCode draws a uniform zero-padded value in "0000".."9999".
func drawCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// WithClock overrides the time source; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithDraw overrides the code source; tests only.
func (s *Service) WithDraw(draw func() (string, error)) *Service {
	s.draw = draw
	return s
}
