package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

// StateRepository хранит ключи и пользователей в SQL. Один Commit = одна транзакция.
type StateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewStateRepository(db *DB, logger *slog.Logger) *StateRepository {
	return &StateRepository{
		db:     db,
		logger: logger.With("component", "state_repository", "dialect", string(db.dialect)),
	}
}

// Migrate создает таблицы, если их нет
func (r *StateRepository) Migrate(ctx context.Context) error {
	ts := r.db.timestampType()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS license_keys (
			code        TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			redeemed_by TEXT,
			redeemed_at ` + ts + `,
			created_at  ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activated_users (
			principal_id TEXT PRIMARY KEY,
			activated_at ` + ts + ` NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (r *StateRepository) Load(ctx context.Context) (domain.State, error) {
	state := domain.NewState()

	rows, err := r.db.QueryContext(ctx, `SELECT code, status, redeemed_by, redeemed_at, created_at FROM license_keys`)
	if err != nil {
		return domain.State{}, fmt.Errorf("failed to load keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return domain.State{}, err
		}
		state.Keys[k.Code] = k
	}
	if err := rows.Err(); err != nil {
		return domain.State{}, fmt.Errorf("failed to iterate keys: %w", err)
	}

	userRows, err := r.db.QueryContext(ctx, `SELECT principal_id, activated_at FROM activated_users`)
	if err != nil {
		return domain.State{}, fmt.Errorf("failed to load users: %w", err)
	}
	defer userRows.Close()

	for userRows.Next() {
		var p domain.Principal
		if err := userRows.Scan(&p.ID, &p.ActivatedAt); err != nil {
			return domain.State{}, fmt.Errorf("scan user error: %w", err)
		}
		p.ActivatedAt = p.ActivatedAt.UTC()
		state.Principals[p.ID] = p
	}
	if err := userRows.Err(); err != nil {
		return domain.State{}, fmt.Errorf("failed to iterate users: %w", err)
	}

	return state, nil
}

// Commit пишет мутацию в одной транзакции.
// Новый ключ не перезаписывает существующий, погашенный ключ не гасится повторно.
func (r *StateRepository) Commit(ctx context.Context, m domain.Mutation) error {
	if m.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, k := range m.Keys {
		if err := r.writeKey(ctx, tx, k); err != nil {
			return err
		}
	}

	insertUser := r.db.rebind(`
		INSERT INTO activated_users (principal_id, activated_at)
		VALUES ($1, $2)
		ON CONFLICT (principal_id) DO NOTHING
	`)
	for _, p := range m.Principals {
		if _, err := tx.ExecContext(ctx, insertUser, p.ID, p.ActivatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to save user %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *StateRepository) writeKey(ctx context.Context, tx *sql.Tx, k domain.ActivationKey) error {
	var (
		query      string
		redeemedBy sql.NullString
		redeemedAt sql.NullTime
	)

	if k.IsRedeemed() {
		redeemedBy = sql.NullString{String: k.RedeemedBy, Valid: true}
		if k.RedeemedAt != nil {
			redeemedAt = sql.NullTime{Time: k.RedeemedAt.UTC(), Valid: true}
		}
		query = `
			INSERT INTO license_keys (code, status, redeemed_by, redeemed_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO UPDATE
			SET status = excluded.status, redeemed_by = excluded.redeemed_by, redeemed_at = excluded.redeemed_at
			WHERE license_keys.status = 'UNREDEEMED'
		`
	} else {
		query = `
			INSERT INTO license_keys (code, status, redeemed_by, redeemed_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO NOTHING
		`
	}

	res, err := tx.ExecContext(ctx, r.db.rebind(query),
		k.Code, string(k.Status), redeemedBy, redeemedAt, k.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save key %s: %w", k.Code, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Это важно: другой процесс уже выпустил или погасил этот ключ
		r.logger.Warn("key write conflict", slog.String("code", k.Code), slog.String("status", string(k.Status)))
		return fmt.Errorf("%w: key %s", domain.ErrConflict, k.Code)
	}
	return nil
}

func scanKey(rows *sql.Rows) (domain.ActivationKey, error) {
	var (
		k          domain.ActivationKey
		status     string
		redeemedBy sql.NullString
		redeemedAt sql.NullTime
	)

	if err := rows.Scan(&k.Code, &status, &redeemedBy, &redeemedAt, &k.CreatedAt); err != nil {
		return domain.ActivationKey{}, fmt.Errorf("scan key error: %w", err)
	}
	k.CreatedAt = k.CreatedAt.UTC()

	switch domain.KeyStatus(status) {
	case domain.KeyStatusUnredeemed:
		k.Status = domain.KeyStatusUnredeemed
	case domain.KeyStatusRedeemed:
		if !redeemedBy.Valid || !redeemedAt.Valid {
			return domain.ActivationKey{}, fmt.Errorf("key %s is redeemed but has no redeemer", k.Code)
		}
		at := redeemedAt.Time.UTC()
		k.Status = domain.KeyStatusRedeemed
		k.RedeemedBy = redeemedBy.String
		k.RedeemedAt = &at
	default:
		return domain.ActivationKey{}, fmt.Errorf("key %s has unknown status %q", k.Code, status)
	}
	return k, nil
}
