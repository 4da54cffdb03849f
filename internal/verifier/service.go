// Package verifier implements checkpoint duty: unlocking a verifier session
// with a staff PIN and validating presented rotating codes against credential
// state and checkpoint policy, with an append-only check-in audit trail.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
)

// Repository defines persistence operations for the verifier module.
type Repository interface {
	GetStaff(ctx context.Context, staffID string) (*pass.Staff, error)
	GetStaffByUser(ctx context.Context, userID string) (*pass.Staff, error)
	GetCheckpoint(ctx context.Context, checkpointID string) (*pass.Checkpoint, error)
	GetRotatingCode(ctx context.Context, orgID, code string) (*pass.RotatingCode, error)
	GetCredential(ctx context.Context, credentialID string) (*pass.Credential, error)
	InsertCheckIn(ctx context.Context, ci pass.CheckIn) error
}

// Metrics records verification outcomes. Implemented by observability.Metrics.
type Metrics interface {
	Verification(result, reason string)
}

// CheckpointInfo is the checkpoint projection returned to clients.
type CheckpointInfo struct {
	CheckpointID string `json:"checkpointId"`
	Name         string `json:"name"`
}

// VerifyResult is the outcome of one verification attempt.
type VerifyResult struct {
	Result     pass.Result    `json:"result"`
	Reason     pass.Reason    `json:"reason"`
	Checkpoint CheckpointInfo `json:"checkpoint"`
	Credential *pass.Summary  `json:"credential"`
}

// Service validates presented codes at checkpoints.
type Service struct {
	repo    Repository
	metrics Metrics
	now     func() time.Time
}

// NewService constructs a Service. metrics may be nil.
func NewService(repo Repository, metrics Metrics) *Service {
	return &Service{repo: repo, metrics: metrics, now: time.Now}
}

// Verify resolves the presented code to a credential and evaluates
// eligibility against credential state and checkpoint policy. Once the
// checkpoint and staff are resolved, exactly one check-in record is written
// regardless of outcome. A denial is a normal result, not an error.
func (s *Service) Verify(ctx context.Context, session shared.VerifierCaller, code, checkpointID string) (*VerifyResult, error) {
	if !pass.ValidCode(code) {
		return nil, fmt.Errorf("%w: code must be 4 digits", shared.ErrValidation)
	}
	if checkpointID == "" {
		return nil, fmt.Errorf("%w: checkpointId required", shared.ErrValidation)
	}

	staff, err := s.repo.GetStaff(ctx, session.StaffID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: staff", shared.ErrNotFound)
		}
		return nil, err
	}
	// Re-checking isActive per request is the de-facto revocation mechanism
	// for otherwise irrevocable session tokens.
	if !staff.IsActive || staff.OrgID != session.OrgID {
		return nil, fmt.Errorf("%w: staff not active for this organization", shared.ErrForbidden)
	}
	if !staff.DeviceApproved(session.DeviceID) {
		return nil, fmt.Errorf("%w: device not approved", shared.ErrForbidden)
	}

	checkpoint, err := s.repo.GetCheckpoint(ctx, checkpointID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: checkpoint", shared.ErrNotFound)
		}
		return nil, err
	}
	if !checkpoint.IsActive || checkpoint.OrgID != session.OrgID {
		return nil, fmt.Errorf("%w: checkpoint not active for this organization", shared.ErrForbidden)
	}

	now := s.now().UTC()
	result := &VerifyResult{
		Result:     pass.ResultDenied,
		Checkpoint: CheckpointInfo{CheckpointID: checkpoint.ID, Name: checkpoint.Name},
	}
	credentialID := pass.UnknownCredentialID

	rc, err := s.repo.GetRotatingCode(ctx, session.OrgID, code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	switch {
	case rc == nil || !rc.Live(now):
		result.Reason = pass.ReasonCodeExpired
	default:
		credentialID = rc.CredentialID
		cred, err := s.repo.GetCredential(ctx, rc.CredentialID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if cred == nil {
			result.Reason = pass.ReasonCredentialNotFound
			break
		}
		result.Credential = summaryPtr(cred.Summarize())
		result.Reason = evaluate(cred, checkpoint, session.OrgID, now)
		if result.Reason == pass.ReasonOK {
			result.Result = pass.ResultAllowed
		}
	}

	// The audit trail is the point: one record per attempt, allowed or not.
	ci := pass.CheckIn{
		ID:           "chk_" + uuid.NewString(),
		OrgID:        session.OrgID,
		CredentialID: credentialID,
		CheckpointID: checkpoint.ID,
		StaffID:      session.StaffID,
		DeviceID:     session.DeviceID,
		Result:       result.Result,
		Reason:       result.Reason,
		CreatedAt:    now,
	}
	if err := s.repo.InsertCheckIn(ctx, ci); err != nil {
		return nil, fmt.Errorf("verifier: write check-in: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Verification(string(result.Result), string(result.Reason))
	}
	return result, nil
}

// evaluate applies the ordered checks, short-circuiting on the first failure.
func evaluate(cred *pass.Credential, checkpoint *pass.Checkpoint, orgID string, now time.Time) pass.Reason {
	if cred.OrgID != orgID {
		return pass.ReasonOrgMismatch
	}
	if reason := cred.Eligibility(now); reason != pass.ReasonOK {
		return reason
	}
	if !checkpoint.Allows(cred.Type) {
		return pass.ReasonTypeNotAllowed
	}
	return pass.ReasonOK
}

func summaryPtr(s pass.Summary) *pass.Summary {
	return &s
}

// WithClock overrides the time source; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
