package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/koemail-admin/internal/model"
)

// DomainRepo encapsulates queries on the domains table.
type DomainRepo struct {
	db *sql.DB
}

func NewDomainRepo(db *sql.DB) *DomainRepo { return &DomainRepo{db: db} }

// List returns every domain with the number of users it hosts.
func (r *DomainRepo) List(ctx context.Context) ([]model.Domain, error) {
	const q = `SELECT d.id, d.domain, COALESCE(d.description, ''), d.active, d.created_at, d.updated_at,
	           COUNT(u.id) AS user_count
	           FROM domains d LEFT JOIN users u ON u.domain_id = d.id
	           GROUP BY d.id, d.domain, d.description, d.active, d.created_at, d.updated_at
	           ORDER BY d.domain`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Domain{}
	for rows.Next() {
		var d model.Domain
		if err := rows.Scan(&d.ID, &d.Domain, &d.Description, &d.Active, &d.CreatedAt, &d.UpdatedAt, &d.UserCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create inserts a domain and returns its id. The name is stored
// lower-cased; duplicates yield ErrDomainExists.
func (r *DomainRepo) Create(ctx context.Context, name, description string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO domains (domain, description) VALUES (?, ?)",
		strings.ToLower(name), description)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDomainExists
		}
		return 0, err
	}
	return res.LastInsertId()
}
