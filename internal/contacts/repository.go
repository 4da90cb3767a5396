package contacts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence for contact intake and read markers.
type Repository interface {
	Insert(ctx context.Context, c Contact) (Contact, error)
	ListFor(ctx context.Context, principalID string) ([]ListedContact, error)
	MarkViewed(ctx context.Context, contactID int64, principalID string) error
	CountUnviewed(ctx context.Context, principalID string) (int, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores a submission.
func (r *PGRepository) Insert(ctx context.Context, c Contact) (Contact, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (name, email, phone, message, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id, name, email, phone, message, created_at`,
		c.Name, c.Email, c.Phone, c.Message)
	var created Contact
	if err := row.Scan(&created.ID, &created.Name, &created.Email, &created.Phone, &created.Message, &created.CreatedAt); err != nil {
		return Contact{}, fmt.Errorf("contacts: insert: %w", err)
	}
	return created, nil
}

// ListFor returns all contacts newest first, with the per-principal read marker.
func (r *PGRepository) ListFor(ctx context.Context, principalID string) ([]ListedContact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.email, c.phone, c.message, c.created_at,
		        v.contact_id IS NOT NULL AS viewed
		 FROM contacts c
		 LEFT JOIN contact_views v ON v.contact_id = c.id AND v.principal_id = $1
		 ORDER BY c.created_at DESC`,
		principalID)
	if err != nil {
		return nil, fmt.Errorf("contacts: list: %w", err)
	}
	defer rows.Close()
	var contacts []ListedContact
	for rows.Next() {
		var lc ListedContact
		if err := rows.Scan(&lc.ID, &lc.Name, &lc.Email, &lc.Phone, &lc.Message, &lc.CreatedAt, &lc.Viewed); err != nil {
			return nil, fmt.Errorf("contacts: scan: %w", err)
		}
		contacts = append(contacts, lc)
	}
	return contacts, rows.Err()
}

// MarkViewed records that the principal has seen the contact. Idempotent.
func (r *PGRepository) MarkViewed(ctx context.Context, contactID int64, principalID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contact_views (contact_id, principal_id, viewed_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (contact_id, principal_id) DO NOTHING`,
		contactID, principalID)
	if err != nil {
		return fmt.Errorf("contacts: mark viewed: %w", err)
	}
	return nil
}

// CountUnviewed counts contacts the principal has not yet opened.
func (r *PGRepository) CountUnviewed(ctx context.Context, principalID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM contacts c
		 WHERE NOT EXISTS (
		   SELECT 1 FROM contact_views v WHERE v.contact_id = c.id AND v.principal_id = $1
		 )`,
		principalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("contacts: count unviewed: %w", err)
	}
	return count, nil
}

var _ Repository = (*PGRepository)(nil)
