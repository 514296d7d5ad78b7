package publish

import (
	"fmt"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
)

// Quota enforces the per-account publish rate policy: a daily cap plus a
// minimum spacing between publishes. Counters live on the account row,
// never only in memory, so a restart cannot forget a spent slot.
type Quota struct {
	accountRepo  database.AccountRepository
	minInterval  time.Duration
	defaultLimit int
}

func NewQuota(accountRepo database.AccountRepository) *Quota {
	c := cfg.Get()

	return &Quota{
		accountRepo:  accountRepo,
		minInterval:  time.Duration(c.MinPublishInterval) * time.Second,
		defaultLimit: c.DefaultDailyLimit,
	}
}

// CanPublish reports whether the account may publish right now, rolling
// the daily counter first on a new local day. A false result carries the
// reason; it is backpressure, not an error. The check spends nothing, so
// repeated calls give the same answer.
func (q *Quota) CanPublish(accountID string, now time.Time) (bool, string, error) {
	account, err := q.accountRepo.GetAccount(accountID)
	if err != nil {
		return false, "", err
	}
	if account == nil {
		return false, "", fmt.Errorf("account %s not found", accountID)
	}

	if !account.IsActive {
		return false, "account disabled", nil
	}

	if database.IsNewDay(account.CountResetAt, now) {
		if err := q.accountRepo.ResetDailyCount(account.ID, now); err != nil {
			return false, "", err
		}
		account.PublishCountToday = 0
	}

	limit := account.DailyLimit
	if limit <= 0 {
		limit = q.defaultLimit
	}
	if account.PublishCountToday >= limit {
		return false, "daily limit reached", nil
	}

	if account.LastPublishAt != nil && now.Sub(*account.LastPublishAt) < q.minInterval {
		return false, "publish interval not elapsed", nil
	}

	return true, "", nil
}

// RecordPublish spends one slot after a confirmed success. The underlying
// update increments and timestamps in a single statement, so concurrent
// workers on different accounts cannot race past a counter.
func (q *Quota) RecordPublish(accountID string, publishedAt time.Time) error {
	return q.accountRepo.RecordPublish(accountID, publishedAt)
}
