// Package pass holds the domain model shared by the guest, rotation and
// verifier packages: credentials, rotating codes, checkpoints, staff and the
// check-in audit log.
package pass

import (
	"regexp"
	"time"
)

// CredentialStatus is the lifecycle state of a credential. The store may carry
// values outside the known set; anything unknown is treated as inactive, never
// as a crash.
type CredentialStatus string

// Known credential statuses. Only StatusActive passes checks.
const (
	StatusActive    CredentialStatus = "active"
	StatusSuspended CredentialStatus = "suspended"
	StatusInactive  CredentialStatus = "inactive"
)

// CredentialType classifies a credential. The set is open; checkpoints
// allow-list specific types.
type CredentialType string

// Credential types this subsystem reasons about.
const (
	TypeResident CredentialType = "resident"
	TypeMember   CredentialType = "member"
	TypeGuest    CredentialType = "guest"
)

// InvitingTypes are the credential types allowed to mint guest passes.
var InvitingTypes = []CredentialType{TypeResident, TypeMember}

// Result is the outcome of one verification attempt.
type Result string

// Verification results.
const (
	ResultAllowed Result = "allowed"
	ResultDenied  Result = "denied"
)

// Reason explains a verification or rotation outcome.
type Reason string

// Outcome reasons. ReasonOK accompanies ResultAllowed; the rest are denials.
const (
	ReasonOK                 Reason = "ok"
	ReasonCodeExpired        Reason = "code_expired_or_invalid"
	ReasonCredentialNotFound Reason = "credential_not_found"
	ReasonSuspended          Reason = "credential_suspended"
	ReasonInactive           Reason = "credential_inactive"
	ReasonExpired            Reason = "credential_expired"
	ReasonNotYetValid        Reason = "credential_not_yet_valid"
	ReasonTypeNotAllowed     Reason = "credential_type_not_allowed"
	ReasonOrgMismatch        Reason = "org_mismatch"
)

var codePattern = regexp.MustCompile(`^\d{4}$`)

// ValidCode reports whether code is a well-formed 4-digit rotating code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Credential represents a person's (or guest's) right to be checked in.
type Credential struct {
	ID          string
	OrgID       string
	UserID      string // empty for guest credentials
	Type        CredentialType
	Status      CredentialStatus
	ValidFrom   time.Time
	ValidTo     time.Time
	DisplayName string
	MemberNo    string
	UnitNo      string

	// Rotation state, mutated only by the rotation service.
	CurrentCode          string
	CurrentCodeIssuedAt  time.Time
	CurrentCodeExpiresAt time.Time

	CreatedBy string
	CreatedAt time.Time
}

// Eligibility evaluates status and validity window at the given instant.
// It returns ReasonOK when the credential may receive codes and pass
// verification, otherwise the specific denial reason. An unparseable window
// (zero timestamp) reads as expired.
func (c Credential) Eligibility(now time.Time) Reason {
	switch c.Status {
	case StatusActive:
	case StatusSuspended:
		return ReasonSuspended
	default:
		return ReasonInactive
	}
	if c.ValidFrom.IsZero() || c.ValidTo.IsZero() {
		return ReasonExpired
	}
	if now.Before(c.ValidFrom) {
		return ReasonNotYetValid
	}
	if now.After(c.ValidTo) {
		return ReasonExpired
	}
	return ReasonOK
}

// HasLiveCode reports whether the credential's current code is well formed and
// unexpired, so rotation can return it unchanged.
func (c Credential) HasLiveCode(now time.Time) bool {
	return ValidCode(c.CurrentCode) && c.CurrentCodeExpiresAt.After(now)
}

// Summary is the public projection of a credential returned to clients. It
// never carries the rotating code or rotation timestamps.
type Summary struct {
	CredentialID string         `json:"credentialId"`
	DisplayName  string         `json:"displayName"`
	Type         CredentialType `json:"credentialType"`
	MemberNo     string         `json:"memberNo,omitempty"`
	UnitNo       string         `json:"unitNo,omitempty"`
}

// Summarize builds the public projection.
func (c Credential) Summarize() Summary {
	return Summary{
		CredentialID: c.ID,
		DisplayName:  c.DisplayName,
		Type:         c.Type,
		MemberNo:     c.MemberNo,
		UnitNo:       c.UnitNo,
	}
}

// RotatingCode is the currently redeemable secret for one credential, keyed by
// (OrgID, Code). The collision domain is per organization.
type RotatingCode struct {
	OrgID        string
	Code         string
	CredentialID string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Live reports whether the code is still redeemable.
func (r RotatingCode) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// CheckIn is one append-only audit record per verification attempt.
type CheckIn struct {
	ID           string
	OrgID        string
	CredentialID string // "unknown" when the code resolved to nothing
	CheckpointID string
	StaffID      string
	DeviceID     string
	Result       Result
	Reason       Reason
	CreatedAt    time.Time
}

// UnknownCredentialID marks check-ins whose code never resolved.
const UnknownCredentialID = "unknown"

// Checkpoint is a staffed access point with its own type policy. Not mutated
// by this subsystem.
type Checkpoint struct {
	ID           string
	OrgID        string
	Name         string
	IsActive     bool
	AllowedTypes []CredentialType // empty = all types allowed
}

// Allows reports whether the checkpoint admits the given credential type.
func (cp Checkpoint) Allows(t CredentialType) bool {
	if len(cp.AllowedTypes) == 0 {
		return true
	}
	for _, allowed := range cp.AllowedTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Staff is a front-line staff record able to unlock verifier sessions.
type Staff struct {
	ID                string
	OrgID             string
	UserID            string
	PinHash           string
	IsActive          bool
	ApprovedDeviceIDs []string // empty = any device allowed
}

// DeviceApproved reports whether the staff member may unlock on deviceID.
func (s Staff) DeviceApproved(deviceID string) bool {
	if len(s.ApprovedDeviceIDs) == 0 {
		return true
	}
	for _, id := range s.ApprovedDeviceIDs {
		if id == deviceID {
			return true
		}
	}
	return false
}

// Org carries per-organization policy.
type Org struct {
	ID                  string
	Name                string
	CodeRotationSeconds int
}

// Rotation cadence bounds. The stored value is untrusted configuration.
const (
	MinRotationSeconds     = 20
	MaxRotationSeconds     = 60
	DefaultRotationSeconds = 30
)

// RotationSeconds returns the org cadence clamped to [20, 60], default 30.
func (o Org) RotationSeconds() int {
	s := o.CodeRotationSeconds
	if s == 0 {
		return DefaultRotationSeconds
	}
	if s < MinRotationSeconds {
		return MinRotationSeconds
	}
	if s > MaxRotationSeconds {
		return MaxRotationSeconds
	}
	return s
}
