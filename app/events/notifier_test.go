package events

import (
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/content-pilot/app/database"
)

type mockNotificationRepository struct {
	mu      sync.Mutex
	created []database.Notification
}

func (m *mockNotificationRepository) CreateNotification(ntype, title, body, level string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, database.Notification{Type: ntype, Title: title, Body: body, Level: level})
	return nil
}

func (m *mockNotificationRepository) GetNotifications(unreadOnly bool, limit int) ([]database.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepository) MarkNotificationRead(id string) error { return nil }

func (m *mockNotificationRepository) MarkAllNotificationsRead() error { return nil }

func (m *mockNotificationRepository) snapshot() []database.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Notification, len(m.created))
	copy(out, m.created)
	return out
}

func TestNotifierPersistsNotificationEvents(t *testing.T) {
	bus := NewBus(8, 50*time.Millisecond)
	defer bus.Close()

	repo := &mockNotificationRepository{}
	notifier := NewNotifier(bus, repo)
	notifier.Start()

	bus.Notify("generation_failed", "Generation failed", "direction d1: no provider responded", "error")
	bus.Emit(EventTaskUpdate, "task-1", "running", "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(repo.snapshot()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	notifier.Stop()

	created := repo.snapshot()
	if len(created) != 1 {
		t.Fatalf("Expected 1 persisted notification, got %d", len(created))
	}
	if created[0].Type != "generation_failed" {
		t.Errorf("Expected type generation_failed, got %s", created[0].Type)
	}
	if created[0].Title != "Generation failed" {
		t.Errorf("Expected title from event data, got %s", created[0].Title)
	}
	if created[0].Level != "error" {
		t.Errorf("Expected level error, got %s", created[0].Level)
	}
}

func TestNotifierDefaultsLevelAndTitle(t *testing.T) {
	bus := NewBus(8, 50*time.Millisecond)
	defer bus.Close()

	repo := &mockNotificationRepository{}
	notifier := NewNotifier(bus, repo)
	notifier.Start()

	// A bare notification event without data falls back to sane defaults.
	bus.Emit(EventNotification, "", "", "pilot cycle finished")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(repo.snapshot()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	notifier.Stop()

	created := repo.snapshot()
	if len(created) != 1 {
		t.Fatalf("Expected 1 persisted notification, got %d", len(created))
	}
	if created[0].Type != "system" {
		t.Errorf("Expected fallback type system, got %s", created[0].Type)
	}
	if created[0].Title != "pilot cycle finished" {
		t.Errorf("Expected title to fall back to message, got %s", created[0].Title)
	}
	if created[0].Level != database.NotificationInfo {
		t.Errorf("Expected fallback level info, got %s", created[0].Level)
	}
}
