package guest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
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

// ActiveInvitingCredential fetches the caller's active resident or member
// credential.
func (r *PGRepository) ActiveInvitingCredential(ctx context.Context, userID string) (*pass.Credential, error) {
	const query = `
		SELECT id, org_id, credential_type, status, valid_from, valid_to, COALESCE(display_name, '')
		FROM credentials
		WHERE user_id = $1 AND status = 'active' AND credential_type = ANY($2)
		LIMIT 1`
	types := make([]string, 0, len(pass.InvitingTypes))
	for _, t := range pass.InvitingTypes {
		types = append(types, string(t))
	}
	var c pass.Credential
	c.UserID = userID
	err := r.pool.QueryRow(ctx, query, userID, types).Scan(
		&c.ID, &c.OrgID, &c.Type, &c.Status, &c.ValidFrom, &c.ValidTo, &c.DisplayName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCredential inserts a new guest credential row.
func (r *PGRepository) CreateCredential(ctx context.Context, c pass.Credential) error {
	const query = `
		INSERT INTO credentials
			(id, org_id, user_id, credential_type, status, valid_from, valid_to,
			 display_name, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.OrgID,
		pgtype.Text{String: c.UserID, Valid: c.UserID != ""},
		string(c.Type), string(c.Status),
		c.ValidFrom.UTC(), c.ValidTo.UTC(),
		c.DisplayName,
		pgtype.Text{String: c.CreatedBy, Valid: c.CreatedBy != ""},
		c.CreatedAt,
	)
	return err
}

var _ Repository = (*PGRepository)(nil)
