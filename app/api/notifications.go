package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit := queryInt(c, "limit", 50)

	notifications, err := h.notificationRepo.GetNotifications(unreadOnly, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	list := make([]map[string]interface{}, 0, len(notifications))
	for _, n := range notifications {
		list = append(list, map[string]interface{}{
			"id":         n.ID,
			"type":       n.Type,
			"title":      n.Title,
			"body":       n.Body,
			"level":      n.Level,
			"read":       n.Read,
			"created_at": n.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count":         len(list),
		"notifications": list,
	})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Notification ID is required"})
		return
	}

	if err := h.notificationRepo.MarkNotificationRead(id); err != nil {
		slog.Error("Database error", "operation", "mark_notification_read", "notification_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read", "id": id})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.notificationRepo.MarkAllNotificationsRead(); err != nil {
		slog.Error("Database error", "operation", "mark_all_notifications_read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}
