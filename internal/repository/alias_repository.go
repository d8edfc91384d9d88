package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/koemail-admin/internal/model"
)

type AliasRepo struct {
	db *sql.DB
}

func NewAliasRepo(db *sql.DB) *AliasRepo { return &AliasRepo{db: db} }

// List returns all aliases ordered by source address.
func (r *AliasRepo) List(ctx context.Context) ([]model.Alias, error) {
	const q = `SELECT a.id, a.source, a.destination, a.domain_id, d.domain, a.active, a.created_at
	           FROM aliases a JOIN domains d ON d.id = a.domain_id
	           ORDER BY a.source`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Alias{}
	for rows.Next() {
		var a model.Alias
		if err := rows.Scan(&a.ID, &a.Source, &a.Destination, &a.DomainID, &a.DomainName, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
