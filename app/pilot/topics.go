package pilot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/generator"
)

const (
	recentTopicLimit    = 50
	referenceFetchLimit = 5
	referencePageLimit  = 3
)

// pickedTopic is a ledger entry claimed for this cycle. The entry exists
// in the database before any generation is attempted, so a crash
// mid-generation spends the slot instead of retrying the topic forever.
type pickedTopic struct {
	id    string
	topic string
}

// pickTopics claims up to want fresh topics for a direction. Inspiration
// feed titles are tried first when a feed is configured; the model derives
// the rest. Duplicates against the ledger are skipped, and the model is
// re-asked at most p.alternates times before the cycle gives up.
func (p *Pilot) pickTopics(ctx context.Context, direction *database.ContentDirection, want int) ([]pickedTopic, error) {
	existing := p.recentTopics(direction.ID)
	picked := make([]pickedTopic, 0, want)

	claim := func(candidates []string) error {
		for _, topic := range candidates {
			if len(picked) == want {
				return nil
			}

			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}

			id, inserted, err := p.topicRepo.RecordTopic(direction.ID, topic, TopicHash(topic))
			if err != nil {
				return fmt.Errorf("failed to record topic: %w", err)
			}
			if !inserted {
				slog.Debug("Duplicate topic skipped", "direction", direction.Name, "topic", topic)
				continue
			}

			picked = append(picked, pickedTopic{id: id, topic: topic})
		}
		return nil
	}

	if direction.InspirationFeedURL != "" {
		entries, err := p.source.FetchEntries(ctx, direction.InspirationFeedURL, want*2)
		if err != nil {
			slog.Warn("Failed to fetch inspiration feed", "direction", direction.Name, "error", err)
		}

		titles := make([]string, 0, len(entries))
		for _, entry := range entries {
			titles = append(titles, entry.Title)
		}

		if err := claim(titles); err != nil {
			return nil, err
		}
	}

	for attempt := 0; len(picked) < want && attempt < p.alternates; attempt++ {
		generated, err := p.generator.GenerateTopics(ctx, direction, existing, want-len(picked))
		if err != nil {
			if len(picked) > 0 {
				slog.Warn("Topic derivation failed, continuing with partial batch",
					"direction", direction.Name, "error", err)
				break
			}
			return nil, fmt.Errorf("failed to derive topics: %w", err)
		}

		if err := claim(generated); err != nil {
			return nil, err
		}

		existing = append(existing, generated...)
	}

	return picked, nil
}

// recentTopics returns the latest ledger titles so the model steers away
// from what was already produced. A read failure degrades to no steering.
func (p *Pilot) recentTopics(directionID string) []string {
	entries, err := p.topicRepo.GetTopicsByDirection(directionID, recentTopicLimit)
	if err != nil {
		slog.Warn("Failed to load recent topics", "direction_id", directionID, "error", err)
		return nil
	}

	titles := make([]string, 0, len(entries))
	for _, entry := range entries {
		titles = append(titles, entry.Topic)
	}

	return titles
}

// collectReferences gathers reference material for agent and story runs.
// Feed entries are preferred, with up to referencePageLimit full page
// extractions; the direction description is the fallback so a direction
// without a feed can still run.
func (p *Pilot) collectReferences(ctx context.Context, direction *database.ContentDirection) []generator.Reference {
	var references []generator.Reference

	if direction.InspirationFeedURL != "" {
		entries, err := p.source.FetchEntries(ctx, direction.InspirationFeedURL, referenceFetchLimit)
		if err != nil {
			slog.Warn("Failed to fetch reference feed", "direction", direction.Name, "error", err)
		}

		for _, entry := range entries {
			content := entry.Summary

			if entry.Link != "" && len(references) < referencePageLimit {
				if text, err := p.source.FetchPageText(ctx, entry.Link); err == nil && text != "" {
					content = text
				} else if err != nil {
					slog.Debug("Failed to extract reference page", "url", entry.Link, "error", err)
				}
			}

			if strings.TrimSpace(content) == "" {
				continue
			}

			references = append(references, generator.Reference{Title: entry.Title, Content: content})
		}
	}

	if len(references) == 0 && direction.Description != "" {
		references = append(references, generator.Reference{
			Title:   direction.Name,
			Content: direction.Description,
		})
	}

	return references
}
