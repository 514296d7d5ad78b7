package events

import (
	"log/slog"
	"sync"

	"github.com/lysyi3m/content-pilot/app/database"
)

// Notifier persists notification events so they survive restarts and
// disconnected clients. Other event types pass it by.
type Notifier struct {
	bus              *Bus
	notificationRepo database.NotificationRepository
	events           <-chan *Event
	wg               sync.WaitGroup
}

func NewNotifier(bus *Bus, notificationRepo database.NotificationRepository) *Notifier {
	return &Notifier{
		bus:              bus,
		notificationRepo: notificationRepo,
	}
}

// Start subscribes to notification events and writes them to the store
func (n *Notifier) Start() {
	n.events = n.bus.Subscribe(EventNotification)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for event := range n.events {
			level := event.Status
			if level == "" {
				level = database.NotificationInfo
			}
			ntype := event.Data["ntype"]
			if ntype == "" {
				ntype = "system"
			}
			title := event.Data["title"]
			if title == "" {
				title = event.Message
			}
			if err := n.notificationRepo.CreateNotification(ntype, title, event.Message, level); err != nil {
				slog.Error("Failed to persist notification", "error", err)
			}
		}
	}()

	slog.Debug("Notification writer started")
}

// Stop unsubscribes and waits for the writer goroutine to drain
func (n *Notifier) Stop() {
	if n.events != nil {
		n.bus.Unsubscribe(n.events)
	}
	n.wg.Wait()

	slog.Debug("Notification writer stopped")
}
