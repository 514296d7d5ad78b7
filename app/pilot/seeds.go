package pilot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/content-pilot/app/database"
)

// seedFile mirrors one YAML direction definition. Policy fields only;
// counters and runtime state live in the database and survive re-syncs.
type seedFile struct {
	Name               string `yaml:"name"`
	Keywords           string `yaml:"keywords"`
	Description        string `yaml:"description"`
	Mode               string `yaml:"mode"`
	Style              string `yaml:"style"`
	WordCount          int    `yaml:"word_count"`
	Provider           string `yaml:"provider"`
	DailyCount         int    `yaml:"daily_count"`
	Enabled            *bool  `yaml:"enabled"`
	AutoPublish        *bool  `yaml:"auto_publish"`
	PublishInterval    int    `yaml:"publish_interval"`
	AntiDetectLevel    *int   `yaml:"anti_detect_level"`
	StartHour          *int   `yaml:"start_hour"`
	EndHour            *int   `yaml:"end_hour"`
	ActiveDays         []int  `yaml:"active_days"`
	StartDate          string `yaml:"start_date"`
	EndDate            string `yaml:"end_date"`
	InspirationFeedURL string `yaml:"inspiration_feed_url"`
}

// SyncSeedDirections loads every YAML file in directionsDir and upserts
// the definitions keyed by file name. An unchanged file leaves its
// direction untouched, so operator edits survive restarts. A missing or
// unset directory is not an error; a broken file is, so a typo never
// half-applies.
func SyncSeedDirections(directionsDir string, directionRepo database.DirectionRepository) error {
	if directionsDir == "" {
		return nil
	}

	if _, err := os.Stat(directionsDir); os.IsNotExist(err) {
		slog.Debug("Directions directory does not exist, skipping seed sync", "dir", directionsDir)
		return nil
	}

	files, err := filepath.Glob(filepath.Join(directionsDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(directionsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		direction, err := loadSeedFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		key := filepath.Base(file)
		id, created, err := directionRepo.UpsertSeedDirection(key, direction)
		if err != nil {
			return fmt.Errorf("failed to sync %s: %w", key, err)
		}

		if created {
			slog.Info("Seed direction created", "file", key, "name", direction.Name, "id", id)
		} else {
			slog.Debug("Seed direction updated", "file", key, "name", direction.Name, "id", id)
		}
	}

	return nil
}

func loadSeedFile(path string) (*database.ContentDirection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSeed(&seed); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)

	direction := &database.ContentDirection{
		Name:               seed.Name,
		Keywords:           seed.Keywords,
		Description:        seed.Description,
		Mode:               seed.Mode,
		Style:              seed.Style,
		WordCount:          seed.WordCount,
		Provider:           seed.Provider,
		DailyCount:         seed.DailyCount,
		IsActive:           seed.Enabled != nil && *seed.Enabled,
		AutoPublish:        seed.AutoPublish == nil || *seed.AutoPublish,
		PublishInterval:    seed.PublishInterval,
		StartHour:          seed.StartHour,
		EndHour:            seed.EndHour,
		InspirationFeedURL: seed.InspirationFeedURL,
		ConfigHash:         hex.EncodeToString(sum[:]),
	}

	if seed.AntiDetectLevel != nil {
		direction.AntiDetectLevel = *seed.AntiDetectLevel
	} else {
		direction.AntiDetectLevel = 3
	}

	for _, day := range seed.ActiveDays {
		direction.ActiveDays = append(direction.ActiveDays, int64(day))
	}

	if seed.StartDate != "" {
		startDate, err := time.ParseInLocation("2006-01-02", seed.StartDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: %w", seed.StartDate, err)
		}
		direction.StartDate = &startDate
	}

	if seed.EndDate != "" {
		endDate, err := time.ParseInLocation("2006-01-02", seed.EndDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date %q: %w", seed.EndDate, err)
		}
		direction.EndDate = &endDate
	}

	setSeedDefaults(direction)

	return direction, nil
}

func validateSeed(seed *seedFile) error {
	if seed.Name == "" {
		return fmt.Errorf("direction name is required")
	}

	switch seed.Mode {
	case "", database.ModeSingle, database.ModeAgent, database.ModeStory:
	default:
		return fmt.Errorf("unknown mode %q", seed.Mode)
	}

	if seed.DailyCount < 0 {
		return fmt.Errorf("daily_count must be non-negative")
	}
	if seed.WordCount < 0 {
		return fmt.Errorf("word_count must be non-negative")
	}
	if seed.AntiDetectLevel != nil && (*seed.AntiDetectLevel < 0 || *seed.AntiDetectLevel > 3) {
		return fmt.Errorf("anti_detect_level must be between 0 and 3")
	}

	if seed.StartHour != nil && (*seed.StartHour < 0 || *seed.StartHour > 23) {
		return fmt.Errorf("start_hour must be between 0 and 23")
	}
	if seed.EndHour != nil && (*seed.EndHour < 0 || *seed.EndHour > 23) {
		return fmt.Errorf("end_hour must be between 0 and 23")
	}
	if seed.StartHour != nil && seed.EndHour != nil && *seed.StartHour >= *seed.EndHour {
		return fmt.Errorf("start_hour must precede end_hour")
	}

	for _, day := range seed.ActiveDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("active_days entries must be between 0 (Monday) and 6 (Sunday)")
		}
	}

	return nil
}

func setSeedDefaults(direction *database.ContentDirection) {
	if direction.Mode == "" {
		direction.Mode = database.ModeSingle
	}
	if direction.Style == "" {
		direction.Style = "professional"
	}
	if direction.WordCount == 0 {
		direction.WordCount = 1500
	}
	if direction.DailyCount == 0 {
		direction.DailyCount = 24
	}
	if direction.PublishInterval == 0 {
		direction.PublishInterval = defaultPublishInterval
	}
}
