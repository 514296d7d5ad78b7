package pilot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
	"github.com/lysyi3m/content-pilot/app/generator"
	"github.com/lysyi3m/content-pilot/app/monitoring"
	"github.com/lysyi3m/content-pilot/app/publish"
	"github.com/lysyi3m/content-pilot/app/reference"
)

const (
	// maxBatchPerCycle caps how many drafts one direction produces per
	// tick, so a large daily_count is spread over the day.
	maxBatchPerCycle = 6

	// defaultPublishInterval spaces auto-publish batch tasks (minutes)
	// when the direction does not set its own interval.
	defaultPublishInterval = 30

	directionRunTimeout = 30 * time.Minute
)

// contentGenerator is the slice of the generation orchestrator the pilot
// consumes.
type contentGenerator interface {
	Run(ctx context.Context, req *generator.Request) (*generator.Result, error)
	GenerateTopics(ctx context.Context, direction *database.ContentDirection, existing []string, count int) ([]string, error)
}

// inspirationSource feeds topic candidates and reference material.
type inspirationSource interface {
	FetchEntries(ctx context.Context, url string, limit int) ([]reference.Entry, error)
	FetchPageText(ctx context.Context, url string) (string, error)
}

// taskBatcher queues spaced publish tasks for freshly generated articles.
type taskBatcher interface {
	CreateBatch(articleIDs []string, accountID string, intervalMinutes int) ([]string, error)
}

// Pilot is the direction scheduler. On every tick it walks the active
// directions and, for each one that is eligible right now, claims fresh
// topics and drives the generator. Directions fail independently; one
// direction's error is recorded on its row and never stops the cycle.
type Pilot struct {
	directionRepo database.DirectionRepository
	topicRepo     database.TopicRepository
	accountRepo   database.AccountRepository
	generator     contentGenerator
	source        inspirationSource
	batcher       taskBatcher
	bus           *events.Bus
	interval      time.Duration
	alternates    int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewPilot(directionRepo database.DirectionRepository, topicRepo database.TopicRepository,
	accountRepo database.AccountRepository, gen *generator.Generator, source *reference.Source,
	queue *publish.Queue, bus *events.Bus) *Pilot {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Pilot{
		directionRepo: directionRepo,
		topicRepo:     topicRepo,
		accountRepo:   accountRepo,
		generator:     gen,
		source:        source,
		batcher:       queue,
		bus:           bus,
		interval:      time.Duration(cfg.PilotInterval) * time.Minute,
		alternates:    cfg.TopicAlternates,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (p *Pilot) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.runCycle()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.runCycle()
			}
		}
	}()

	slog.Info("Pilot started", "interval", p.interval.String())
}

func (p *Pilot) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Trigger runs one direction immediately, outside its schedule. The hour,
// day and date windows are bypassed; the daily quota is not. The run
// happens in the background so the caller is not held for the duration
// of the model calls.
func (p *Pilot) Trigger(directionID string) error {
	direction, err := p.directionRepo.GetDirection(directionID)
	if err != nil {
		return fmt.Errorf("failed to load direction: %w", err)
	}
	if direction == nil {
		return fmt.Errorf("direction %s not found", directionID)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(p.ctx, directionRunTimeout)
		defer cancel()

		slog.Info("Manual direction run", "direction", direction.Name)

		if err := p.runDirection(ctx, direction, time.Now(), true); err != nil {
			p.recordFailure(direction, err)
		}
	}()

	return nil
}

func (p *Pilot) runCycle() {
	directions, err := p.directionRepo.GetActiveDirections()
	if err != nil {
		slog.Error("Failed to load active directions", "error", err)
		return
	}

	monitoring.SetDirectionsActive(len(directions))

	if len(directions) == 0 {
		slog.Debug("No active directions")
		return
	}

	slog.Debug("Pilot cycle started", "directions", len(directions))

	now := time.Now()
	for i := range directions {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		direction := &directions[i]

		ctx, cancel := context.WithTimeout(p.ctx, directionRunTimeout)
		err := p.runDirection(ctx, direction, now, false)
		cancel()

		if err != nil {
			p.recordFailure(direction, err)
		}
	}

	p.bus.Emit(events.EventPilotCycle, "", "done", fmt.Sprintf("checked %d directions", len(directions)))
}

// runDirection executes one direction pass: eligibility, daily counter
// roll, quota, topic claim, generation, counter bumps and the optional
// auto-publish batch. Manual runs skip the schedule checks only.
func (p *Pilot) runDirection(ctx context.Context, direction *database.ContentDirection, now time.Time, manual bool) error {
	if !manual {
		if !direction.IsActive {
			return nil
		}

		if expired(direction.EndDate, now) {
			slog.Info("Direction past end date, disabling", "direction", direction.Name)
			if err := p.directionRepo.SetDirectionActive(direction.ID, false); err != nil {
				return fmt.Errorf("failed to disable expired direction: %w", err)
			}
			p.bus.Emit(events.EventDirectionUpdated, direction.ID, "disabled", "end date passed")
			return nil
		}

		if !started(direction.StartDate, now) {
			slog.Debug("Direction not started yet", "direction", direction.Name)
			return nil
		}

		if !activeDay(direction.ActiveDays, now) || !activeHour(direction.StartHour, direction.EndHour, now) {
			slog.Debug("Direction outside its schedule window", "direction", direction.Name)
			return nil
		}
	}

	if database.IsNewDay(direction.CountResetAt, now) {
		if err := p.directionRepo.ResetDailyCount(direction.ID, now); err != nil {
			return fmt.Errorf("failed to reset daily count: %w", err)
		}
		direction.GeneratedToday = 0
	}

	remaining := direction.DailyCount - direction.GeneratedToday
	if remaining <= 0 {
		slog.Debug("Daily quota reached", "direction", direction.Name, "generated", direction.GeneratedToday)
		return nil
	}

	mode := direction.Mode
	if mode == "" {
		mode = database.ModeSingle
	}

	var references []generator.Reference
	if mode == database.ModeAgent || mode == database.ModeStory {
		references = p.collectReferences(ctx, direction)
	}

	topics, err := p.pickTopics(ctx, direction, runsPerCycle(mode, remaining))
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		slog.Info("No fresh topics for direction", "direction", direction.Name)
		return nil
	}

	var produced []string
	var runErr error

	for _, pick := range topics {
		req := &generator.Request{
			Direction:  direction,
			Topic:      pick.topic,
			References: references,
		}
		if mode == database.ModeAgent {
			req.Count = min(remaining-len(produced), maxBatchPerCycle)
		}

		result, err := p.generator.Run(ctx, req)
		if err != nil {
			runErr = fmt.Errorf("failed to generate %q: %w", pick.topic, err)
			break
		}

		for _, article := range result.Articles {
			if err := p.directionRepo.IncrementGenerated(direction.ID, now); err != nil {
				slog.Error("Failed to bump generation counter", "direction", direction.Name, "error", err)
			}
			produced = append(produced, article.ID)
		}

		if len(result.Articles) > 0 {
			if err := p.topicRepo.LinkArticle(pick.id, result.Articles[0].ID); err != nil {
				slog.Warn("Failed to link ledger entry to article", "topic", pick.topic, "error", err)
			}
		}
	}

	if len(produced) > 0 {
		slog.Info("Direction produced articles",
			"direction", direction.Name,
			"mode", mode,
			"articles", len(produced))
		p.bus.Emit(events.EventDirectionUpdated, direction.ID, "generated",
			fmt.Sprintf("%d article(s) generated", len(produced)))

		if direction.AutoPublish {
			if err := p.queuePublish(direction, produced); err != nil {
				slog.Error("Failed to queue publish batch", "direction", direction.Name, "error", err)
				if runErr == nil {
					runErr = err
				}
			}
		}
	}

	return runErr
}

// runsPerCycle decides how many generator invocations one pass makes.
// Agent and story runs are heavyweight multi-call pipelines, so one per
// tick; single mode spends up to maxBatchPerCycle quota slots.
func runsPerCycle(mode string, remaining int) int {
	if mode == database.ModeAgent || mode == database.ModeStory {
		return 1
	}
	return min(remaining, maxBatchPerCycle)
}

func (p *Pilot) queuePublish(direction *database.ContentDirection, articleIDs []string) error {
	accountID := direction.AccountID
	if accountID == "" {
		account, err := p.accountRepo.PickAccountForPublish()
		if err != nil {
			return fmt.Errorf("failed to pick publish account: %w", err)
		}
		if account == nil {
			return fmt.Errorf("no active account available for auto publish")
		}
		accountID = account.ID
	}

	interval := direction.PublishInterval
	if interval <= 0 {
		interval = defaultPublishInterval
	}

	taskIDs, err := p.batcher.CreateBatch(articleIDs, accountID, interval)
	if err != nil {
		return fmt.Errorf("failed to create publish tasks: %w", err)
	}

	slog.Info("Publish batch queued",
		"direction", direction.Name,
		"tasks", len(taskIDs),
		"account_id", accountID,
		"interval_minutes", interval)

	return nil
}

func (p *Pilot) recordFailure(direction *database.ContentDirection, err error) {
	slog.Error("Direction run failed", "direction", direction.Name, "error", err)

	if dbErr := p.directionRepo.SetDirectionError(direction.ID, err.Error()); dbErr != nil {
		slog.Error("Failed to record direction error", "direction", direction.Name, "error", dbErr)
	}

	p.bus.Notify("pilot", "Direction run failed",
		fmt.Sprintf("%s: %v", direction.Name, err), database.NotificationError)
}
