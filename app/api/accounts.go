package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/database"
)

func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountRepo.GetAllAccounts()
	if err != nil {
		slog.Error("Database error", "operation", "list_accounts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list accounts"})
		return
	}

	list := make([]map[string]interface{}, 0, len(accounts))
	for i := range accounts {
		list = append(list, accountJSON(&accounts[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(list),
		"accounts": list,
	})
}

func (h *Handler) GetAccount(c *gin.Context) {
	account, ok := h.loadAccount(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, accountJSON(account))
}

// CreateAccount registers a publishing account. A zero daily limit means
// the global default applies at publish time.
func (h *Handler) CreateAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if req.Name == nil || *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account name is required"})
		return
	}
	if req.DailyLimit != nil && *req.DailyLimit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "daily_limit must be non-negative"})
		return
	}

	account := &database.Account{
		Name:     *req.Name,
		IsActive: true,
	}
	if req.ProfileName != nil {
		account.ProfileName = *req.ProfileName
	}
	if req.DailyLimit != nil {
		account.DailyLimit = *req.DailyLimit
	}
	if req.Enabled != nil {
		account.IsActive = *req.Enabled
	}

	id, err := h.accountRepo.CreateAccount(account)
	if err != nil {
		slog.Error("Database error", "operation", "create_account", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	account.ID = id

	slog.Info("Account created", "account", account.Name, "id", id)

	c.JSON(http.StatusCreated, accountJSON(account))
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	account, ok := h.loadAccount(c)
	if !ok {
		return
	}

	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account name is required"})
			return
		}
		account.Name = *req.Name
	}
	if req.ProfileName != nil {
		account.ProfileName = *req.ProfileName
	}
	if req.DailyLimit != nil {
		if *req.DailyLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "daily_limit must be non-negative"})
			return
		}
		account.DailyLimit = *req.DailyLimit
	}
	if req.Enabled != nil {
		account.IsActive = *req.Enabled
	}

	if err := h.accountRepo.UpdateAccount(account); err != nil {
		slog.Error("Database error", "operation", "update_account", "account_id", account.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
		return
	}

	c.JSON(http.StatusOK, accountJSON(account))
}

func (h *Handler) ResetAccountCount(c *gin.Context) {
	account, ok := h.loadAccount(c)
	if !ok {
		return
	}

	if err := h.accountRepo.ResetDailyCount(account.ID, time.Now()); err != nil {
		slog.Error("Database error", "operation", "reset_account_count", "account_id", account.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset counter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Daily counter reset", "id": account.ID})
}

func (h *Handler) loadAccount(c *gin.Context) (*database.Account, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account ID is required"})
		return nil, false
	}

	account, err := h.accountRepo.GetAccount(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_account", "account_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return nil, false
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return nil, false
	}

	return account, true
}

func accountJSON(a *database.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":                  a.ID,
		"name":                a.Name,
		"profile_name":        a.ProfileName,
		"enabled":             a.IsActive,
		"daily_limit":         a.DailyLimit,
		"publish_count_today": a.PublishCountToday,
		"publish_count_total": a.PublishCountTotal,
		"last_publish_at":     timeString(a.LastPublishAt),
		"created_at":          a.CreatedAt.Format(time.RFC3339),
		"updated_at":          a.UpdatedAt.Format(time.RFC3339),
	}
}
