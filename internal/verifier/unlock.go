package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatepass/gatepass/internal/pinhash"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

// MinSessionTTL is the floor for verifier session lifetimes.
const MinSessionTTL = 60 * time.Second

// AttemptLimiter guards against PIN brute force. Implemented by Lockout;
// a nil limiter disables the guard.
type AttemptLimiter interface {
	TooMany(ctx context.Context, staffID string) (bool, error)
	RecordFailure(ctx context.Context, staffID string) error
	Reset(ctx context.Context, staffID string) error
}

// UnlockResult carries a fresh verifier session.
type UnlockResult struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// UnlockService issues verifier session tokens after PIN authentication.
type UnlockService struct {
	repo    Repository
	codec   *token.Codec
	limiter AttemptLimiter
	ttl     time.Duration
	now     func() time.Time
}

// NewUnlockService constructs an UnlockService. The TTL is clamped to the
// minimum; limiter may be nil.
func NewUnlockService(repo Repository, codec *token.Codec, limiter AttemptLimiter, ttl time.Duration) *UnlockService {
	if ttl < MinSessionTTL {
		ttl = MinSessionTTL
	}
	return &UnlockService{repo: repo, codec: codec, limiter: limiter, ttl: ttl, now: time.Now}
}

// Unlock authenticates a staff member's PIN and signs a session token scoping
// subsequent verification calls to the staff/org/device identity. Unknown
// staff and wrong PIN are indistinguishable to the caller.
func (s *UnlockService) Unlock(ctx context.Context, caller shared.IdentityCaller, pin, deviceID string) (*UnlockResult, error) {
	staff, err := s.repo.GetStaffByUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !staff.IsActive {
		return nil, fmt.Errorf("%w: staff inactive", shared.ErrForbidden)
	}
	if len(staff.ApprovedDeviceIDs) > 0 {
		if deviceID == "" || !staff.DeviceApproved(deviceID) {
			return nil, fmt.Errorf("%w: device not approved", shared.ErrForbidden)
		}
	}

	if s.limiter != nil {
		locked, err := s.limiter.TooMany(ctx, staff.ID)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, fmt.Errorf("%w: too many attempts, retry later", shared.ErrInvalidCredentials)
		}
	}

	if !pinhash.Verify(pin, staff.PinHash) {
		if s.limiter != nil {
			if err := s.limiter.RecordFailure(ctx, staff.ID); err != nil {
				return nil, err
			}
		}
		return nil, shared.ErrInvalidCredentials
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, staff.ID); err != nil {
			return nil, err
		}
	}

	expiresAt := s.now().Add(s.ttl)
	tok, err := s.codec.Sign(token.Claims{
		ExpiresAt: expiresAt.Unix(),
		StaffID:   staff.ID,
		OrgID:     staff.OrgID,
		UserID:    staff.UserID,
		DeviceID:  deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("verifier: sign session: %w", err)
	}
	return &UnlockResult{SessionToken: tok, ExpiresAt: expiresAt.UTC()}, nil
}

// WithClock overrides the time source; tests only.
func (s *UnlockService) WithClock(now func() time.Time) *UnlockService {
	s.now = now
	return s
}
