package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/platform/db"
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

// WithTx runs fn inside one RepeatableRead transaction with conflict retry.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

const credentialColumns = `
	id, org_id, COALESCE(user_id, ''), credential_type, status,
	valid_from, valid_to,
	COALESCE(display_name, ''), COALESCE(member_no, ''), COALESCE(unit_no, ''),
	COALESCE(current_code, ''),
	COALESCE(current_code_issued_at, 'epoch'::timestamptz),
	COALESCE(current_code_expires_at, 'epoch'::timestamptz)`

func scanCredential(row pgx.Row) (*pass.Credential, error) {
	var c pass.Credential
	err := row.Scan(
		&c.ID, &c.OrgID, &c.UserID, &c.Type, &c.Status,
		&c.ValidFrom, &c.ValidTo,
		&c.DisplayName, &c.MemberNo, &c.UnitNo,
		&c.CurrentCode, &c.CurrentCodeIssuedAt, &c.CurrentCodeExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	// epoch sentinels read back as the zero rotation state
	epoch := time.Unix(0, 0).UTC()
	if c.CurrentCodeIssuedAt.Equal(epoch) {
		c.CurrentCodeIssuedAt = time.Time{}
	}
	if c.CurrentCodeExpiresAt.Equal(epoch) {
		c.CurrentCodeExpiresAt = time.Time{}
	}
	return &c, nil
}

func (t *pgTx) GetCredential(ctx context.Context, credentialID string) (*pass.Credential, error) {
	return scanCredential(t.tx.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, credentialID))
}

func (t *pgTx) ActiveCredentialForUser(ctx context.Context, userID string) (*pass.Credential, error) {
	return scanCredential(t.tx.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = $1 AND status = 'active' LIMIT 1`,
		userID))
}

func (t *pgTx) GetOrg(ctx context.Context, orgID string) (*pass.Org, error) {
	var o pass.Org
	err := t.tx.QueryRow(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(code_rotation_seconds, 0) FROM orgs WHERE id = $1`,
		orgID).Scan(&o.ID, &o.Name, &o.CodeRotationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) GetRotatingCode(ctx context.Context, orgID, code string) (*pass.RotatingCode, error) {
	var rc pass.RotatingCode
	err := t.tx.QueryRow(ctx,
		`SELECT org_id, code, credential_id, issued_at, expires_at
		 FROM rotating_codes WHERE org_id = $1 AND code = $2`,
		orgID, code).Scan(&rc.OrgID, &rc.Code, &rc.CredentialID, &rc.IssuedAt, &rc.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rc, nil
}

func (t *pgTx) DeleteRotatingCodeIfOwned(ctx context.Context, orgID, code, credentialID string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM rotating_codes WHERE org_id = $1 AND code = $2 AND credential_id = $3`,
		orgID, code, credentialID)
	return err
}

func (t *pgTx) DeleteRotatingCode(ctx context.Context, orgID, code string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM rotating_codes WHERE org_id = $1 AND code = $2`, orgID, code)
	return err
}

func (t *pgTx) InsertRotatingCode(ctx context.Context, rc pass.RotatingCode) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO rotating_codes (org_id, code, credential_id, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rc.OrgID, rc.Code, rc.CredentialID, rc.IssuedAt.UTC(), rc.ExpiresAt.UTC())
	return err
}

func (t *pgTx) UpdateCredentialRotation(ctx context.Context, credentialID, code string, issuedAt, expiresAt time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE credentials
		 SET current_code = $2, current_code_issued_at = $3, current_code_expires_at = $4
		 WHERE id = $1`,
		credentialID, code, issuedAt.UTC(), expiresAt.UTC())
	return err
}

var _ Repository = (*PGRepository)(nil)
var _ TxRepository = (*pgTx)(nil)
