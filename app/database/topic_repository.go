package database

import (
	"database/sql"
	"fmt"
)

// topicRepository handles database operations for the generated topic ledger
type topicRepository struct {
	db *DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *DB) TopicRepository {
	return &topicRepository{db: db}
}

// CheckDuplicate checks if a topic with the given content hash already
// exists for the direction
func (r *topicRepository) CheckDuplicate(directionID, contentHash string) (bool, *string, error) {
	var duplicateID sql.NullString

	err := r.db.QueryRow(
		`SELECT id FROM generated_topics WHERE direction_id = $1 AND content_hash = $2 LIMIT 1`,
		directionID, contentHash).Scan(&duplicateID)

	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check duplicate topic: %w", err)
	}

	id := duplicateID.String
	return true, &id, nil
}

// RecordTopic inserts a ledger entry for a topic about to be generated.
// Returns the entry ID and whether the insert happened; a false result
// means the hash collided with an existing entry for the direction.
func (r *topicRepository) RecordTopic(directionID, topic, contentHash string) (string, bool, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO generated_topics (direction_id, topic, content_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (direction_id, content_hash) DO NOTHING
		RETURNING id
	`, directionID, topic, contentHash).Scan(&id)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to record topic: %w", err)
	}

	return id, true, nil
}

// LinkArticle fills in the article back-reference once generation succeeds
func (r *topicRepository) LinkArticle(topicID, articleID string) error {
	_, err := r.db.Exec(`
		UPDATE generated_topics
		SET article_id = $2
		WHERE id = $1
	`, topicID, articleID)

	if err != nil {
		return fmt.Errorf("failed to link topic to article: %w", err)
	}

	return nil
}

// GetTopicsByDirection returns the most recent ledger entries for a direction
func (r *topicRepository) GetTopicsByDirection(directionID string, limit int) ([]GeneratedTopic, error) {
	rows, err := r.db.Query(`
		SELECT id, direction_id, topic, content_hash, COALESCE(article_id::text, ''), created_at
		FROM generated_topics
		WHERE direction_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, directionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	defer rows.Close()

	var topics []GeneratedTopic
	for rows.Next() {
		var t GeneratedTopic
		err := rows.Scan(&t.ID, &t.DirectionID, &t.Topic, &t.ContentHash, &t.ArticleID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

// GetTopicCount returns the number of ledger entries for a direction
func (r *topicRepository) GetTopicCount(directionID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM generated_topics WHERE direction_id = $1", directionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get topic count: %w", err)
	}
	return count, nil
}
