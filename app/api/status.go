package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/cfg"
)

// providerProbeTimeout bounds the optional status probe; a hung provider
// must not hold the status request open indefinitely.
const providerProbeTimeout = 15 * time.Second

// GetHealth reports liveness. The direction count doubles as the
// database ping.
func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	}

	directionCount, err := h.directionRepo.GetDirectionCount()
	if err != nil {
		health["status"] = "degraded"
		health["error"] = "database unreachable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "ok"
	health["directions"] = directionCount

	if pending, err := h.taskRepo.GetPendingCount(); err == nil {
		health["pending_tasks"] = pending
	}

	c.JSON(http.StatusOK, health)
}

// GetStatus is the operator dashboard snapshot: providers, direction and
// account activity, article and task counts by status.
func (h *Handler) GetStatus(c *gin.Context) {
	status := map[string]interface{}{
		"service":   "Content Pilot",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	status["providers"] = h.registry.Providers()
	status["provider_count"] = h.registry.Count()

	// Probing fires a real one-token completion per provider, so it only
	// runs when asked for.
	if c.Query("probe") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), providerProbeTimeout)
		defer cancel()

		health := map[string]interface{}{}
		for name, err := range h.registry.CheckHealth(ctx) {
			if err != nil {
				health[name] = err.Error()
			} else {
				health[name] = "ok"
			}
		}
		status["provider_health"] = health
	}

	directions := map[string]interface{}{}
	if total, err := h.directionRepo.GetDirectionCount(); err == nil {
		directions["total"] = total
	}
	if active, err := h.directionRepo.GetActiveDirectionCount(); err == nil {
		directions["active"] = active
	}
	if all, err := h.directionRepo.GetAllDirections(); err == nil {
		generatedToday := 0
		generatedTotal := 0
		for _, d := range all {
			generatedToday += d.GeneratedToday
			generatedTotal += d.GeneratedTotal
		}
		directions["generated_today"] = generatedToday
		directions["generated_total"] = generatedTotal
	}
	status["directions"] = directions

	if stats, err := h.articleRepo.GetArticleStats(); err == nil {
		status["articles"] = stats
	}
	if stats, err := h.taskRepo.GetTaskStats(); err == nil {
		status["tasks"] = stats
	}
	if pending, err := h.taskRepo.GetPendingCount(); err == nil {
		status["queue_depth"] = pending
	}

	if accounts, err := h.accountRepo.GetAllAccounts(); err == nil {
		activeAccounts := 0
		for _, a := range accounts {
			if a.IsActive {
				activeAccounts++
			}
		}
		status["accounts"] = map[string]interface{}{
			"total":  len(accounts),
			"active": activeAccounts,
		}
	}

	c.JSON(http.StatusOK, status)
}
