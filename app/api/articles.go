package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/generator"
)

func (h *Handler) ListArticles(c *gin.Context) {
	status := c.Query("status")
	directionID := c.Query("direction_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	articles, err := h.articleRepo.GetArticles(status, directionID, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list articles"})
		return
	}

	list := make([]map[string]interface{}, 0, len(articles))
	for i := range articles {
		list = append(list, articleJSON(&articles[i], false))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(list),
		"articles": list,
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, articleJSON(article, true))
}

// UpdateArticle edits a draft in place. Published and queued articles are
// immutable; cancel their tasks first.
func (h *Handler) UpdateArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	if article.Status != database.ArticleStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft articles can be edited", "status": article.Status})
		return
	}

	var req articleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if req.Title != nil {
		article.Title = *req.Title
	}
	if req.Content != nil {
		article.Content = *req.Content
		article.WordCount = generator.CountWords(article.Content)
	}
	if req.Summary != nil {
		article.Summary = *req.Summary
	}
	if req.Tags != nil {
		article.Tags = req.Tags
	}

	err := h.articleRepo.UpdateArticleDraft(article.ID, article.Title, article.Content,
		article.Summary, article.Tags, article.WordCount)
	if err != nil {
		slog.Error("Database error", "operation", "update_article", "article_id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update article"})
		return
	}

	c.JSON(http.StatusOK, articleJSON(article, true))
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	if err := h.articleRepo.DeleteArticle(article.ID); err != nil {
		slog.Error("Database error", "operation", "delete_article", "article_id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete article"})
		return
	}

	slog.Info("Article deleted", "article_id", article.ID, "title", article.Title)

	c.JSON(http.StatusOK, gin.H{"message": "Article deleted", "id": article.ID})
}

// GenerateArticles runs one generation synchronously and returns the
// produced drafts. Unlike a pilot cycle it ignores the direction's
// schedule and daily quota; it is the operator's explicit override.
func (h *Handler) GenerateArticles(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	direction, err := h.directionRepo.GetDirection(req.DirectionID)
	if err != nil {
		slog.Error("Database error", "operation", "get_direction", "direction_id", req.DirectionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load direction"})
		return
	}
	if direction == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Direction not found"})
		return
	}

	if req.Mode != "" {
		switch req.Mode {
		case database.ModeSingle, database.ModeAgent, database.ModeStory:
			direction.Mode = req.Mode
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown mode: " + req.Mode})
			return
		}
	}

	references := make([]generator.Reference, 0, len(req.References))
	for _, ref := range req.References {
		references = append(references, generator.Reference{Title: ref.Title, Content: ref.Content})
	}

	switch direction.Mode {
	case database.ModeAgent:
		if len(references) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Agent mode requires reference material"})
			return
		}
	case database.ModeStory:
		if req.Topic == "" && len(references) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Story mode requires a topic or reference material"})
			return
		}
	default:
		if req.Topic == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Topic is required for single mode"})
			return
		}
	}

	slog.Info("Manual generation started", "direction", direction.Name, "mode", direction.Mode, "topic", req.Topic)
	start := time.Now()

	result, err := h.generator.Run(c.Request.Context(), &generator.Request{
		Direction:  direction,
		Topic:      req.Topic,
		Count:      req.Count,
		References: references,
	})
	if err != nil {
		slog.Error("Manual generation failed", "direction", direction.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed", "message": err.Error()})
		return
	}

	slog.Info("Manual generation finished", "direction", direction.Name,
		"articles", len(result.Articles), "duration", time.Since(start).Round(time.Millisecond))

	list := make([]map[string]interface{}, 0, len(result.Articles))
	for i := range result.Articles {
		list = append(list, articleJSON(&result.Articles[i], true))
	}

	c.JSON(http.StatusCreated, gin.H{
		"count":    len(list),
		"planned":  result.Planned,
		"failed":   result.Failed,
		"articles": list,
	})
}

func (h *Handler) loadArticle(c *gin.Context) (*database.Article, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Article ID is required"})
		return nil, false
	}

	article, err := h.articleRepo.GetArticle(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load article"})
		return nil, false
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil, false
	}

	return article, true
}

func articleJSON(a *database.Article, includeContent bool) map[string]interface{} {
	out := map[string]interface{}{
		"id":            a.ID,
		"title":         a.Title,
		"summary":       a.Summary,
		"tags":          a.Tags,
		"word_count":    a.WordCount,
		"category":      a.Category,
		"provider":      a.Provider,
		"direction_id":  a.DirectionID,
		"status":        a.Status,
		"series_id":     a.SeriesID,
		"series_order":  a.SeriesOrder,
		"published_url": a.PublishedURL,
		"published_at":  timeString(a.PublishedAt),
		"created_at":    a.CreatedAt.Format(time.RFC3339),
		"updated_at":    a.UpdatedAt.Format(time.RFC3339),
	}
	if includeContent {
		out["content"] = a.Content
	}
	return out
}
