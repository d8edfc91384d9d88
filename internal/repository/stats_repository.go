package repository

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/koemail-admin/internal/model"
)

type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Summary runs the four dashboard counters concurrently.
func (r *StatsRepo) Summary(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, q string) {
		g.Go(func() error {
			var n sql.NullInt64
			if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
				return err
			}
			*dst = n.Int64
			return nil
		})
	}
	count(&s.Users, "SELECT COUNT(*) FROM users WHERE active = TRUE")
	count(&s.Domains, "SELECT COUNT(*) FROM domains WHERE active = TRUE")
	count(&s.Aliases, "SELECT COUNT(*) FROM aliases WHERE active = TRUE")
	count(&s.Storage, "SELECT SUM(bytes_used) FROM quota_usage")

	if err := g.Wait(); err != nil {
		return model.Stats{}, err
	}
	return s, nil
}
