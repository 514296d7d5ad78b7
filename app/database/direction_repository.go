package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// directionRepository handles database operations for content directions
type directionRepository struct {
	db *DB
}

// NewDirectionRepository creates a new direction repository
func NewDirectionRepository(db *DB) DirectionRepository {
	return &directionRepository{db: db}
}

const directionColumns = `id, name, keywords, description, mode, style, word_count,
	COALESCE(provider, ''), daily_count, is_active, COALESCE(account_id::text, ''),
	auto_publish, publish_interval, anti_detect_level, start_hour, end_hour,
	active_days, start_date, end_date, COALESCE(inspiration_feed_url, ''),
	generated_today, generated_total, last_generated_at, count_reset_at,
	COALESCE(last_error, ''), COALESCE(config_file, ''), config_hash,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDirection(row rowScanner) (*ContentDirection, error) {
	var d ContentDirection
	var startHour, endHour sql.NullInt64

	err := row.Scan(
		&d.ID, &d.Name, &d.Keywords, &d.Description, &d.Mode, &d.Style, &d.WordCount,
		&d.Provider, &d.DailyCount, &d.IsActive, &d.AccountID,
		&d.AutoPublish, &d.PublishInterval, &d.AntiDetectLevel, &startHour, &endHour,
		pq.Array(&d.ActiveDays), &d.StartDate, &d.EndDate, &d.InspirationFeedURL,
		&d.GeneratedToday, &d.GeneratedTotal, &d.LastGeneratedAt, &d.CountResetAt,
		&d.LastError, &d.ConfigFile, &d.ConfigHash, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startHour.Valid {
		h := int(startHour.Int64)
		d.StartHour = &h
	}
	if endHour.Valid {
		h := int(endHour.Int64)
		d.EndHour = &h
	}

	return &d, nil
}

// GetDirection retrieves a direction by its ID
func (r *directionRepository) GetDirection(id string) (*ContentDirection, error) {
	d, err := scanDirection(r.db.QueryRow(
		`SELECT `+directionColumns+` FROM content_directions WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get direction: %w", err)
	}

	return d, nil
}

// GetDirectionByConfigFile retrieves a direction managed by a seed file
func (r *directionRepository) GetDirectionByConfigFile(configFile string) (*ContentDirection, error) {
	d, err := scanDirection(r.db.QueryRow(
		`SELECT `+directionColumns+` FROM content_directions WHERE config_file = $1`, configFile))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get direction by config file: %w", err)
	}

	return d, nil
}

// GetAllDirections returns every direction ordered by creation time
func (r *directionRepository) GetAllDirections() ([]ContentDirection, error) {
	rows, err := r.db.Query(
		`SELECT ` + directionColumns + ` FROM content_directions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to get directions: %w", err)
	}
	defer rows.Close()

	return collectDirections(rows)
}

// GetActiveDirections returns directions the scheduler should evaluate
func (r *directionRepository) GetActiveDirections() ([]ContentDirection, error) {
	rows, err := r.db.Query(
		`SELECT ` + directionColumns + ` FROM content_directions WHERE is_active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active directions: %w", err)
	}
	defer rows.Close()

	return collectDirections(rows)
}

func collectDirections(rows *sql.Rows) ([]ContentDirection, error) {
	var directions []ContentDirection
	for rows.Next() {
		d, err := scanDirection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan direction row: %w", err)
		}
		directions = append(directions, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating direction rows: %w", err)
	}

	return directions, nil
}

// CreateDirection inserts a new direction and returns its ID
func (r *directionRepository) CreateDirection(d *ContentDirection) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO content_directions (
			name, keywords, description, mode, style, word_count, provider,
			daily_count, is_active, account_id, auto_publish, publish_interval,
			anti_detect_level, start_hour, end_hour, active_days,
			start_date, end_date, inspiration_feed_url
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, '')::uuid,
			$11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, ''))
		RETURNING id
	`, d.Name, d.Keywords, d.Description, d.Mode, d.Style, d.WordCount, d.Provider,
		d.DailyCount, d.IsActive, d.AccountID, d.AutoPublish, d.PublishInterval,
		d.AntiDetectLevel, d.StartHour, d.EndHour, pq.Array(d.ActiveDays),
		d.StartDate, d.EndDate, d.InspirationFeedURL).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create direction: %w", err)
	}

	return id, nil
}

// UpdateDirection updates the operator-editable fields of a direction
func (r *directionRepository) UpdateDirection(d *ContentDirection) error {
	_, err := r.db.Exec(`
		UPDATE content_directions
		SET name = $2, keywords = $3, description = $4, mode = $5, style = $6,
		    word_count = $7, provider = NULLIF($8, ''), daily_count = $9,
		    account_id = NULLIF($10, '')::uuid, auto_publish = $11,
		    publish_interval = $12, anti_detect_level = $13,
		    start_hour = $14, end_hour = $15, active_days = $16,
		    start_date = $17, end_date = $18, inspiration_feed_url = NULLIF($19, ''),
		    updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.Name, d.Keywords, d.Description, d.Mode, d.Style,
		d.WordCount, d.Provider, d.DailyCount, d.AccountID, d.AutoPublish,
		d.PublishInterval, d.AntiDetectLevel, d.StartHour, d.EndHour,
		pq.Array(d.ActiveDays), d.StartDate, d.EndDate, d.InspirationFeedURL)

	if err != nil {
		return fmt.Errorf("failed to update direction: %w", err)
	}

	return nil
}

// UpsertSeedDirection inserts or updates a direction managed by a seed file.
// An unchanged file (same content hash) leaves the row alone, so operator
// edits made through the API survive restarts; counters and runtime state
// are preserved either way.
func (r *directionRepository) UpsertSeedDirection(configFile string, d *ContentDirection) (string, bool, error) {
	existing, err := r.GetDirectionByConfigFile(configFile)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing seed direction: %w", err)
	}

	var id string
	if existing != nil {
		if existing.ConfigHash == d.ConfigHash {
			return existing.ID, false, nil
		}

		err = r.db.QueryRow(`
			UPDATE content_directions
			SET name = $2, keywords = $3, description = $4, mode = $5, style = $6,
			    word_count = $7, provider = NULLIF($8, ''), daily_count = $9,
			    is_active = $10, auto_publish = $11, publish_interval = $12,
			    anti_detect_level = $13, start_hour = $14, end_hour = $15,
			    active_days = $16, start_date = $17, end_date = $18,
			    inspiration_feed_url = NULLIF($19, ''), config_hash = $20,
			    updated_at = NOW()
			WHERE config_file = $1
			RETURNING id
		`, configFile, d.Name, d.Keywords, d.Description, d.Mode, d.Style,
			d.WordCount, d.Provider, d.DailyCount, d.IsActive, d.AutoPublish,
			d.PublishInterval, d.AntiDetectLevel, d.StartHour, d.EndHour,
			pq.Array(d.ActiveDays), d.StartDate, d.EndDate, d.InspirationFeedURL,
			d.ConfigHash).Scan(&id)
		if err != nil {
			return "", false, fmt.Errorf("failed to update seed direction: %w", err)
		}
		return id, false, nil
	}

	err = r.db.QueryRow(`
		INSERT INTO content_directions (
			config_file, name, keywords, description, mode, style, word_count,
			provider, daily_count, is_active, auto_publish, publish_interval,
			anti_detect_level, start_hour, end_hour, active_days,
			start_date, end_date, inspiration_feed_url, config_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, NULLIF($19, ''), $20)
		RETURNING id
	`, configFile, d.Name, d.Keywords, d.Description, d.Mode, d.Style, d.WordCount,
		d.Provider, d.DailyCount, d.IsActive, d.AutoPublish, d.PublishInterval,
		d.AntiDetectLevel, d.StartHour, d.EndHour, pq.Array(d.ActiveDays),
		d.StartDate, d.EndDate, d.InspirationFeedURL, d.ConfigHash).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert seed direction: %w", err)
	}

	return id, true, nil
}

// DeleteDirection removes a direction
func (r *directionRepository) DeleteDirection(id string) error {
	_, err := r.db.Exec(`DELETE FROM content_directions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete direction: %w", err)
	}
	return nil
}

// SetDirectionActive sets the active status of a direction
func (r *directionRepository) SetDirectionActive(id string, active bool) error {
	_, err := r.db.Exec(`
		UPDATE content_directions
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
	`, id, active)

	if err != nil {
		return fmt.Errorf("failed to set direction active status: %w", err)
	}

	return nil
}

// IncrementGenerated bumps the daily and lifetime generation counters
func (r *directionRepository) IncrementGenerated(id string, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE content_directions
		SET generated_today = generated_today + 1,
		    generated_total = generated_total + 1,
		    last_generated_at = $2,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, now)

	if err != nil {
		return fmt.Errorf("failed to increment generated counters: %w", err)
	}

	return nil
}

// ResetDailyCount zeroes the daily counter at the start of a new local day
func (r *directionRepository) ResetDailyCount(id string, resetAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE content_directions
		SET generated_today = 0, count_reset_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, resetAt)

	if err != nil {
		return fmt.Errorf("failed to reset daily count: %w", err)
	}

	return nil
}

// SetDirectionError records the last generation error for operator inspection
func (r *directionRepository) SetDirectionError(id string, message string) error {
	_, err := r.db.Exec(`
		UPDATE content_directions
		SET last_error = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1
	`, id, message)

	if err != nil {
		return fmt.Errorf("failed to set direction error: %w", err)
	}

	return nil
}

// GetDirectionCount returns the total number of directions
func (r *directionRepository) GetDirectionCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM content_directions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get direction count: %w", err)
	}
	return count, nil
}

// GetActiveDirectionCount returns the count of active directions
func (r *directionRepository) GetActiveDirectionCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM content_directions WHERE is_active = true").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active direction count: %w", err)
	}
	return count, nil
}
