package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/database"
	"github.com/iliyamo/koemail-admin/internal/model"
)

// DefaultQuota is applied when a new user is created without one (1 GiB).
const DefaultQuota int64 = 1 << 30

// UserRepo reads and writes the users and quota_usage tables. It also
// serves as the credential store for the auth package.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

var _ auth.CredentialStore = (*UserRepo)(nil)

const credentialColumns = "id, email, name, password, active, admin"

func scanCredential(row *sql.Row) (auth.Credential, error) {
	var (
		c     auth.Credential
		admin bool
	)
	if err := row.Scan(&c.UserID, &c.Email, &c.Name, &c.PasswordHash, &c.Active, &admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Credential{}, auth.ErrCredentialNotFound
		}
		return auth.Credential{}, err
	}
	c.Role = auth.RoleFromFlag(admin)
	return c, nil
}

// FindCredentialByEmail looks a login up by its normalized email.
func (r *UserRepo) FindCredentialByEmail(ctx context.Context, email string) (auth.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM users WHERE email = ? LIMIT 1", email))
}

func (r *UserRepo) FindCredentialByID(ctx context.Context, id int64) (auth.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), id)
	return err
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password = ? WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

const userSelect = `SELECT u.id, u.email, u.name, u.domain_id, COALESCE(d.domain, ''), u.quota, u.active, u.admin,
	u.created_at, u.updated_at, u.last_login, COALESCE(q.bytes_used, 0), COALESCE(q.message_count, 0)
	FROM users u
	LEFT JOIN domains d ON d.id = u.domain_id
	LEFT JOIN quota_usage q ON q.user_id = u.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		last sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.DomainID, &u.Domain, &u.Quota, &u.Active, &u.Admin,
		&u.CreatedAt, &u.UpdatedAt, &last, &u.Usage.BytesUsed, &u.Usage.MessageCount); err != nil {
		return model.User{}, err
	}
	if last.Valid {
		t := last.Time
		u.LastLogin = &t
	}
	return u, nil
}

// maxOffset bounds OFFSET so (page-1)*limit cannot overflow.
const maxOffset = 1 << 30

func pageOffset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > maxOffset/limit {
		return maxOffset
	}
	return (page - 1) * limit
}

// List returns one page of users, newest first, and the total count.
func (r *UserRepo) List(ctx context.Context, page, limit int) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, userSelect+" ORDER BY u.created_at DESC, u.id DESC LIMIT ? OFFSET ?",
		limit, pageOffset(page, limit))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// GetByID returns ErrNotFound when the user does not exist.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+" WHERE u.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// DomainOf returns the lower-cased part after the last '@'.
func DomainOf(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}

// Create inserts a user under the domain named by its email together with
// an empty quota_usage row. Both rows are written in one transaction.
func (r *UserRepo) Create(ctx context.Context, nu model.NewUser) (int64, error) {
	if nu.Quota <= 0 {
		nu.Quota = DefaultQuota
	}
	var id int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		var domainID int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM domains WHERE domain = ?", DomainOf(nu.Email)).Scan(&domainID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDomainNotFound
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, password, name, domain_id, quota, admin) VALUES (?, ?, ?, ?, ?, ?)",
			nu.Email, nu.PasswordHash, nu.Name, domainID, nu.Quota, nu.Admin)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrEmailExists
			}
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO quota_usage (user_id) VALUES (?)", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies the non-nil fields of upd. Column names come from a fixed
// list; only values are bound from the request.
func (r *UserRepo) Update(ctx context.Context, id int64, upd model.UserUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *upd.Name)
	}
	if upd.Quota != nil {
		sets, args = append(sets, "quota = ?"), append(args, *upd.Quota)
	}
	if upd.Admin != nil {
		sets, args = append(sets, "admin = ?"), append(args, *upd.Admin)
	}
	if upd.Active != nil {
		sets, args = append(sets, "active = ?"), append(args, *upd.Active)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// SetPassword is used by the CLI to reset a password by email.
func (r *UserRepo) SetPassword(ctx context.Context, email, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password = ? WHERE email = ?", hash, email)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// requireOneRow maps "no row affected" to ErrNotFound. The DSN sets
// clientFoundRows so an UPDATE that changes nothing still counts.
func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
