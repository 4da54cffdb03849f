package verifier

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const staffColumns = `id, org_id, user_id, pin_hash, is_active, approved_device_ids`

func scanStaff(row pgx.Row) (*pass.Staff, error) {
	var s pass.Staff
	err := row.Scan(&s.ID, &s.OrgID, &s.UserID, &s.PinHash, &s.IsActive, &s.ApprovedDeviceIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetStaff fetches a staff record by id.
func (r *PGRepository) GetStaff(ctx context.Context, staffID string) (*pass.Staff, error) {
	return scanStaff(r.pool.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1`, staffID))
}

// GetStaffByUser fetches a staff record by owning user id.
func (r *PGRepository) GetStaffByUser(ctx context.Context, userID string) (*pass.Staff, error) {
	return scanStaff(r.pool.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE user_id = $1`, userID))
}

// GetCheckpoint fetches a checkpoint by id.
func (r *PGRepository) GetCheckpoint(ctx context.Context, checkpointID string) (*pass.Checkpoint, error) {
	var cp pass.Checkpoint
	var allowed []string
	err := r.pool.QueryRow(ctx,
		`SELECT id, org_id, COALESCE(name, ''), is_active, allowed_types
		 FROM checkpoints WHERE id = $1`, checkpointID).
		Scan(&cp.ID, &cp.OrgID, &cp.Name, &cp.IsActive, &allowed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	for _, t := range allowed {
		cp.AllowedTypes = append(cp.AllowedTypes, pass.CredentialType(t))
	}
	return &cp, nil
}

// GetRotatingCode fetches the live-or-expired slot for (orgID, code).
func (r *PGRepository) GetRotatingCode(ctx context.Context, orgID, code string) (*pass.RotatingCode, error) {
	var rc pass.RotatingCode
	err := r.pool.QueryRow(ctx,
		`SELECT org_id, code, credential_id, issued_at, expires_at
		 FROM rotating_codes WHERE org_id = $1 AND code = $2`, orgID, code).
		Scan(&rc.OrgID, &rc.Code, &rc.CredentialID, &rc.IssuedAt, &rc.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rc, nil
}

// GetCredential fetches a credential by id.
func (r *PGRepository) GetCredential(ctx context.Context, credentialID string) (*pass.Credential, error) {
	var c pass.Credential
	err := r.pool.QueryRow(ctx,
		`SELECT id, org_id, COALESCE(user_id, ''), credential_type, status,
		        valid_from, valid_to,
		        COALESCE(display_name, ''), COALESCE(member_no, ''), COALESCE(unit_no, '')
		 FROM credentials WHERE id = $1`, credentialID).
		Scan(&c.ID, &c.OrgID, &c.UserID, &c.Type, &c.Status,
			&c.ValidFrom, &c.ValidTo, &c.DisplayName, &c.MemberNo, &c.UnitNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// InsertCheckIn appends one audit record.
func (r *PGRepository) InsertCheckIn(ctx context.Context, ci pass.CheckIn) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO checkins
			(id, org_id, credential_id, checkpoint_id, staff_id, device_id, result, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ci.ID, ci.OrgID, ci.CredentialID, ci.CheckpointID, ci.StaffID, ci.DeviceID,
		string(ci.Result), string(ci.Reason), ci.CreatedAt.UTC())
	return err
}

var _ Repository = (*PGRepository)(nil)
