package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// articleRepository handles database operations for articles
type articleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) ArticleRepository {
	return &articleRepository{db: db}
}

const articleColumns = `id, title, content, summary, COALESCE(tags, '{}'), word_count,
	COALESCE(category, ''), COALESCE(ai_provider, ''), COALESCE(direction_id::text, ''),
	status, COALESCE(series_id::text, ''), series_order, COALESCE(published_url, ''),
	published_at, created_at, updated_at`

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Summary, pq.Array(&a.Tags), &a.WordCount,
		&a.Category, &a.Provider, &a.DirectionID,
		&a.Status, &a.SeriesID, &a.SeriesOrder, &a.PublishedURL,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateArticle inserts a new article and returns its ID
func (r *articleRepository) CreateArticle(a *Article) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO articles (
			title, content, summary, tags, word_count, category,
			ai_provider, direction_id, status, series_id, series_order
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, '')::uuid,
			$9, NULLIF($10, '')::uuid, $11)
		RETURNING id
	`, a.Title, a.Content, a.Summary, pq.Array(a.Tags), a.WordCount, a.Category,
		a.Provider, a.DirectionID, a.Status, a.SeriesID, a.SeriesOrder).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create article: %w", err)
	}

	return id, nil
}

// GetArticle retrieves an article by its ID
func (r *articleRepository) GetArticle(id string) (*Article, error) {
	a, err := scanArticle(r.db.QueryRow(
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return a, nil
}

// GetArticles returns articles filtered by status and/or direction.
// Empty filter values match everything.
func (r *articleRepository) GetArticles(status, directionID string, limit, offset int) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT `+articleColumns+`
		FROM articles
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR direction_id = $2::uuid)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, status, directionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// GetArticlesBySeries returns all parts of a series in order
func (r *articleRepository) GetArticlesBySeries(seriesID string) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT `+articleColumns+`
		FROM articles
		WHERE series_id = $1::uuid
		ORDER BY series_order
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to get series articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// UpdateArticleDraft updates the editable fields of an article still in
// draft or failed state
func (r *articleRepository) UpdateArticleDraft(id, title, content, summary string, tags []string, wordCount int) error {
	result, err := r.db.Exec(`
		UPDATE articles
		SET title = $2, content = $3, summary = $4, tags = $5,
		    word_count = $6, updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'failed')
	`, id, title, content, summary, pq.Array(tags), wordCount)

	if err != nil {
		return fmt.Errorf("failed to update article draft: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %s is not editable", id)
	}

	return nil
}

// SetArticleStatus transitions an article to a new status
func (r *articleRepository) SetArticleStatus(id, status string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)

	if err != nil {
		return fmt.Errorf("failed to set article status: %w", err)
	}

	return nil
}

// MarkArticlePublished records a successful publish
func (r *articleRepository) MarkArticlePublished(id, url string, publishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET status = 'published', published_url = NULLIF($2, ''),
		    published_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, url, publishedAt)

	if err != nil {
		return fmt.Errorf("failed to mark article published: %w", err)
	}

	return nil
}

// DeleteArticle removes an article
func (r *articleRepository) DeleteArticle(id string) error {
	_, err := r.db.Exec(`DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// GetArticleStats returns article counts grouped by status
func (r *articleRepository) GetArticleStats() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM articles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get article stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan article stats row: %w", err)
		}
		stats[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article stats rows: %w", err)
	}

	return stats, nil
}
