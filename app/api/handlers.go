package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
)

func NewHandler(directionRepo database.DirectionRepository, topicRepo database.TopicRepository,
	articleRepo database.ArticleRepository, taskRepo database.TaskRepository,
	accountRepo database.AccountRepository, notificationRepo database.NotificationRepository,
	gen GeneratorInterface, p PilotInterface, queue QueueInterface,
	registry RegistryInterface, bus *events.Bus) *Handler {
	return &Handler{
		directionRepo:    directionRepo,
		topicRepo:        topicRepo,
		articleRepo:      articleRepo,
		taskRepo:         taskRepo,
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		generator:        gen,
		pilot:            p,
		queue:            queue,
		registry:         registry,
		bus:              bus,
	}
}

func (h *Handler) ListDirections(c *gin.Context) {
	directions, err := h.directionRepo.GetAllDirections()
	if err != nil {
		slog.Error("Database error", "operation", "list_directions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list directions"})
		return
	}

	list := make([]map[string]interface{}, 0, len(directions))
	for i := range directions {
		list = append(list, directionJSON(&directions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(list),
		"directions": list,
	})
}

func (h *Handler) GetDirection(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, directionJSON(direction))
}

func (h *Handler) CreateDirection(c *gin.Context) {
	var req directionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	// New directions start disabled with auto publish on
	direction := &database.ContentDirection{AutoPublish: true}
	if err := req.apply(direction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applyDirectionDefaults(direction)
	if direction.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction name is required"})
		return
	}

	id, err := h.directionRepo.CreateDirection(direction)
	if err != nil {
		slog.Error("Database error", "operation", "create_direction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create direction"})
		return
	}
	direction.ID = id

	h.bus.Emit(events.EventDirectionUpdated, id, "created", direction.Name)
	slog.Info("Direction created", "direction", direction.Name, "id", id)

	c.JSON(http.StatusCreated, directionJSON(direction))
}

func (h *Handler) UpdateDirection(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	var req directionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if err := req.apply(direction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if direction.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction name is required"})
		return
	}

	if err := h.directionRepo.UpdateDirection(direction); err != nil {
		slog.Error("Database error", "operation", "update_direction", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update direction"})
		return
	}

	h.bus.Emit(events.EventDirectionUpdated, direction.ID, "updated", direction.Name)

	c.JSON(http.StatusOK, directionJSON(direction))
}

func (h *Handler) DeleteDirection(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	if err := h.directionRepo.DeleteDirection(direction.ID); err != nil {
		slog.Error("Database error", "operation", "delete_direction", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete direction"})
		return
	}

	h.bus.Emit(events.EventDirectionUpdated, direction.ID, "deleted", direction.Name)
	slog.Info("Direction deleted", "direction", direction.Name, "id", direction.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Direction deleted", "id": direction.ID})
}

func (h *Handler) EnableDirection(c *gin.Context) {
	h.setDirectionActive(c, true)
}

func (h *Handler) DisableDirection(c *gin.Context) {
	h.setDirectionActive(c, false)
}

func (h *Handler) setDirectionActive(c *gin.Context, active bool) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	if err := h.directionRepo.SetDirectionActive(direction.ID, active); err != nil {
		slog.Error("Database error", "operation", "set_direction_active", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update direction"})
		return
	}

	status := "disabled"
	if active {
		status = "enabled"
	}
	h.bus.Emit(events.EventDirectionUpdated, direction.ID, status, direction.Name)

	c.JSON(http.StatusOK, gin.H{"message": "Direction " + status, "id": direction.ID, "enabled": active})
}

// TriggerDirection starts a manual generation run. The run itself is
// asynchronous; only direction lookup failures are reported here.
func (h *Handler) TriggerDirection(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	if err := h.pilot.Trigger(direction.ID); err != nil {
		slog.Error("Manual trigger failed", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger direction", "message": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Generation triggered", "id": direction.ID})
}

func (h *Handler) ResetDirectionCount(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	if err := h.directionRepo.ResetDailyCount(direction.ID, time.Now()); err != nil {
		slog.Error("Database error", "operation", "reset_direction_count", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset counter"})
		return
	}

	h.bus.Emit(events.EventDirectionUpdated, direction.ID, "updated", direction.Name)

	c.JSON(http.StatusOK, gin.H{"message": "Daily counter reset", "id": direction.ID})
}

func (h *Handler) ListDirectionTopics(c *gin.Context) {
	direction, ok := h.loadDirection(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 50)
	topics, err := h.topicRepo.GetTopicsByDirection(direction.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_topics", "direction_id", direction.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list topics"})
		return
	}

	list := make([]map[string]interface{}, 0, len(topics))
	for _, topic := range topics {
		list = append(list, map[string]interface{}{
			"id":         topic.ID,
			"topic":      topic.Topic,
			"article_id": topic.ArticleID,
			"created_at": topic.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(list),
		"topics": list,
	})
}

// loadDirection resolves the :id path parameter, writing the error
// response itself when the direction cannot be served.
func (h *Handler) loadDirection(c *gin.Context) (*database.ContentDirection, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direction ID is required"})
		return nil, false
	}

	direction, err := h.directionRepo.GetDirection(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_direction", "direction_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load direction"})
		return nil, false
	}
	if direction == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Direction not found"})
		return nil, false
	}

	return direction, true
}

func (r *directionRequest) apply(d *database.ContentDirection) error {
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Keywords != nil {
		d.Keywords = *r.Keywords
	}
	if r.Description != nil {
		d.Description = *r.Description
	}
	if r.Mode != nil {
		switch *r.Mode {
		case database.ModeSingle, database.ModeAgent, database.ModeStory:
			d.Mode = *r.Mode
		default:
			return fmt.Errorf("unknown mode %q", *r.Mode)
		}
	}
	if r.Style != nil {
		d.Style = *r.Style
	}
	if r.WordCount != nil {
		if *r.WordCount < 0 {
			return fmt.Errorf("word_count must be non-negative")
		}
		d.WordCount = *r.WordCount
	}
	if r.Provider != nil {
		d.Provider = *r.Provider
	}
	if r.DailyCount != nil {
		if *r.DailyCount < 0 {
			return fmt.Errorf("daily_count must be non-negative")
		}
		d.DailyCount = *r.DailyCount
	}
	if r.AccountID != nil {
		d.AccountID = *r.AccountID
	}
	if r.AutoPublish != nil {
		d.AutoPublish = *r.AutoPublish
	}
	if r.PublishInterval != nil {
		if *r.PublishInterval < 0 {
			return fmt.Errorf("publish_interval must be non-negative")
		}
		d.PublishInterval = *r.PublishInterval
	}
	if r.AntiDetectLevel != nil {
		if *r.AntiDetectLevel < 0 || *r.AntiDetectLevel > 3 {
			return fmt.Errorf("anti_detect_level must be between 0 and 3")
		}
		d.AntiDetectLevel = *r.AntiDetectLevel
	}
	if r.StartHour != nil {
		if *r.StartHour < 0 || *r.StartHour > 23 {
			return fmt.Errorf("start_hour must be between 0 and 23")
		}
		hour := *r.StartHour
		d.StartHour = &hour
	}
	if r.EndHour != nil {
		if *r.EndHour < 0 || *r.EndHour > 23 {
			return fmt.Errorf("end_hour must be between 0 and 23")
		}
		hour := *r.EndHour
		d.EndHour = &hour
	}
	if d.StartHour != nil && d.EndHour != nil && *d.StartHour >= *d.EndHour {
		return fmt.Errorf("start_hour must precede end_hour")
	}
	if r.ActiveDays != nil {
		for _, day := range r.ActiveDays {
			if day < 0 || day > 6 {
				return fmt.Errorf("active_days entries must be between 0 (Monday) and 6 (Sunday)")
			}
		}
		d.ActiveDays = r.ActiveDays
	}
	if r.StartDate != nil {
		if *r.StartDate == "" {
			d.StartDate = nil
		} else {
			startDate, err := time.ParseInLocation("2006-01-02", *r.StartDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid start_date %q: %w", *r.StartDate, err)
			}
			d.StartDate = &startDate
		}
	}
	if r.EndDate != nil {
		if *r.EndDate == "" {
			d.EndDate = nil
		} else {
			endDate, err := time.ParseInLocation("2006-01-02", *r.EndDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid end_date %q: %w", *r.EndDate, err)
			}
			d.EndDate = &endDate
		}
	}
	if r.InspirationFeedURL != nil {
		d.InspirationFeedURL = *r.InspirationFeedURL
	}
	if r.Enabled != nil {
		d.IsActive = *r.Enabled
	}

	return nil
}

// applyDirectionDefaults fills the same defaults seed files get, so
// directions created over the API behave identically.
func applyDirectionDefaults(d *database.ContentDirection) {
	if d.Mode == "" {
		d.Mode = database.ModeSingle
	}
	if d.Style == "" {
		d.Style = "professional"
	}
	if d.WordCount == 0 {
		d.WordCount = 1500
	}
	if d.DailyCount == 0 {
		d.DailyCount = 24
	}
	if d.PublishInterval == 0 {
		d.PublishInterval = 30
	}
}

func directionJSON(d *database.ContentDirection) map[string]interface{} {
	return map[string]interface{}{
		"id":                   d.ID,
		"name":                 d.Name,
		"keywords":             d.Keywords,
		"description":          d.Description,
		"mode":                 d.Mode,
		"style":                d.Style,
		"word_count":           d.WordCount,
		"provider":             d.Provider,
		"daily_count":          d.DailyCount,
		"enabled":              d.IsActive,
		"account_id":           d.AccountID,
		"auto_publish":         d.AutoPublish,
		"publish_interval":     d.PublishInterval,
		"anti_detect_level":    d.AntiDetectLevel,
		"start_hour":           d.StartHour,
		"end_hour":             d.EndHour,
		"active_days":          d.ActiveDays,
		"start_date":           dateString(d.StartDate),
		"end_date":             dateString(d.EndDate),
		"inspiration_feed_url": d.InspirationFeedURL,
		"generated_today":      d.GeneratedToday,
		"generated_total":      d.GeneratedTotal,
		"last_generated_at":    timeString(d.LastGeneratedAt),
		"last_error":           d.LastError,
		"config_file":          d.ConfigFile,
		"created_at":           d.CreatedAt.Format(time.RFC3339),
		"updated_at":           d.UpdatedAt.Format(time.RFC3339),
	}
}

func timeString(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func dateString(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
