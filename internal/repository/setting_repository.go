package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/koemail-admin/internal/model"
)

// SettingRepo reads and writes system_settings. `key` is quoted because it
// is a reserved word in MySQL.
type SettingRepo struct {
	db *sql.DB
}

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

const settingSelect = "SELECT `key`, value, type, COALESCE(description, ''), updated_at FROM system_settings"

func (r *SettingRepo) List(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.db.QueryContext(ctx, settingSelect+" ORDER BY `key`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Setting{}
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.Description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SettingRepo) Get(ctx context.Context, key string) (model.Setting, error) {
	var s model.Setting
	err := r.db.QueryRowContext(ctx, settingSelect+" WHERE `key` = ?", key).
		Scan(&s.Key, &s.Value, &s.Type, &s.Description, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Setting{}, ErrNotFound
	}
	return s, err
}

// UpdateValue changes the value of an existing setting. Unknown keys are
// ErrNotFound; settings are never created through the API.
func (r *SettingRepo) UpdateValue(ctx context.Context, key, value string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE system_settings SET value = ? WHERE `key` = ?", value, key)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}
