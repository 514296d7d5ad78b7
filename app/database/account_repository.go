package database

import (
	"database/sql"
	"fmt"
	"time"
)

// accountRepository handles database operations for publish accounts
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, name, profile_name, is_active, daily_limit,
	publish_count_today, publish_count_total, last_publish_at, count_reset_at,
	created_at, updated_at`

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Name, &a.ProfileName, &a.IsActive, &a.DailyLimit,
		&a.PublishCountToday, &a.PublishCountTotal, &a.LastPublishAt, &a.CountResetAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount retrieves an account by its ID
func (r *accountRepository) GetAccount(id string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return a, nil
}

// GetAllAccounts returns every account ordered by creation time
func (r *accountRepository) GetAllAccounts() ([]Account, error) {
	rows, err := r.db.Query(
		`SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// PickAccountForPublish returns the active account that published least
// recently, used when a direction has no fixed account
func (r *accountRepository) PickAccountForPublish() (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(
		`SELECT ` + accountColumns + `
		FROM accounts
		WHERE is_active = true
		ORDER BY last_publish_at ASC NULLS FIRST
		LIMIT 1`))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick account: %w", err)
	}

	return a, nil
}

// CreateAccount inserts a new account and returns its ID
func (r *accountRepository) CreateAccount(a *Account) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO accounts (name, profile_name, is_active, daily_limit)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.Name, a.ProfileName, a.IsActive, a.DailyLimit).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	return id, nil
}

// UpdateAccount updates the operator-editable fields of an account
func (r *accountRepository) UpdateAccount(a *Account) error {
	_, err := r.db.Exec(`
		UPDATE accounts
		SET name = $2, profile_name = $3, is_active = $4, daily_limit = $5,
		    updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Name, a.ProfileName, a.IsActive, a.DailyLimit)

	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// RecordPublish atomically bumps the publish counters after a confirmed
// success
func (r *accountRepository) RecordPublish(id string, publishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE accounts
		SET publish_count_today = publish_count_today + 1,
		    publish_count_total = publish_count_total + 1,
		    last_publish_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, publishedAt)

	if err != nil {
		return fmt.Errorf("failed to record publish: %w", err)
	}

	return nil
}

// ResetDailyCount zeroes the daily publish counter at the start of a new
// local day
func (r *accountRepository) ResetDailyCount(id string, resetAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE accounts
		SET publish_count_today = 0, count_reset_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, resetAt)

	if err != nil {
		return fmt.Errorf("failed to reset account daily count: %w", err)
	}

	return nil
}
