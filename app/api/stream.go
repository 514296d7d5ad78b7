package api

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/events"
)

const streamHeartbeat = 15 * time.Second

// StreamEvents pushes bus events to the client as server-sent events.
// An optional ?types=task_update,pilot_cycle query narrows the stream.
// Heartbeats keep idle connections from being reaped by proxies; a
// client that misses events recovers by polling the entity state.
func (h *Handler) StreamEvents(c *gin.Context) {
	var types []events.EventType
	if raw := c.Query("types"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				types = append(types, events.EventType(name))
			}
		}
	}

	ch := h.bus.Subscribe(types...)
	defer h.bus.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"timestamp": time.Now().In(time.Local).Format(time.RFC3339)})
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"timestamp": time.Now().In(time.Local).Format(time.RFC3339)})
			return true
		}
	})
}
