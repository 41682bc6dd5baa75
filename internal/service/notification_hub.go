package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/models"
)

// ErrHubClosed is returned by Subscribe once the hub has shut down.
var ErrHubClosed = errors.New("notification hub closed")

// PendingSource lists the pending entries of one request kind.
type PendingSource func(ctx context.Context) ([]models.Notification, error)

// NotificationHub owns the in-memory list of requests awaiting review and
// fans changes out to subscribers. Delivery never blocks the publisher: a
// subscriber whose buffer is full is disconnected and re-syncs on reconnect.
type NotificationHub struct {
	mu          sync.RWMutex
	entries     []models.Notification
	subscribers map[uint64]chan models.NotificationEvent
	nextID      uint64
	buffer      int
	closed      bool

	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationHub constructs an empty hub. buffer is the per-subscriber queue length.
func NewNotificationHub(buffer int, metrics *MetricsService, logger *zap.Logger) *NotificationHub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHub{
		subscribers: make(map[uint64]chan models.NotificationEvent),
		buffer:      buffer,
		metrics:     metrics,
		logger:      logger,
	}
}

// Load replaces the entry list with the merged pending entries of every source,
// newest first, and pushes the result to subscribers.
func (h *NotificationHub) Load(ctx context.Context, sources ...PendingSource) error {
	var merged []models.Notification
	for _, source := range sources {
		items, err := source(ctx)
		if err != nil {
			return err
		}
		merged = append(merged, items...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = merged
	h.reportPendingLocked()
	h.broadcastLocked(h.snapshotEventLocked())
	h.logger.Info("notification hub loaded", zap.Int("pending", len(merged)))
	return nil
}

// Announce prepends a freshly submitted request and pushes a created event.
func (h *NotificationHub) Announce(n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(n.ID)
	h.entries = append([]models.Notification{n}, h.entries...)
	h.reportPendingLocked()
	entry := n
	h.broadcastLocked(models.NotificationEvent{Type: models.NotificationCreated, Notification: &entry})
}

// Upsert inserts n at its chronological position, or replaces the entry with
// the same id, and pushes the full list.
func (h *NotificationHub) Upsert(n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(n.ID)
	idx := sort.Search(len(h.entries), func(i int) bool {
		return !h.entries[i].CreatedAt.After(n.CreatedAt)
	})
	h.entries = append(h.entries, models.Notification{})
	copy(h.entries[idx+1:], h.entries[idx:])
	h.entries[idx] = n
	h.reportPendingLocked()
	h.broadcastLocked(h.snapshotEventLocked())
}

// Retract removes the entry with id, if any, and always pushes the full list.
func (h *NotificationHub) Retract(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
	h.reportPendingLocked()
	h.broadcastLocked(h.snapshotEventLocked())
}

// Snapshot returns a copy of the current entries, newest first.
func (h *NotificationHub) Snapshot() []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Notification, len(h.entries))
	copy(out, h.entries)
	return out
}

// Subscribe registers an observer. The returned channel first receives the
// current snapshot and is closed when ctx ends, the hub closes, or the
// observer falls behind.
func (h *NotificationHub) Subscribe(ctx context.Context) (<-chan models.NotificationEvent, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	id := h.nextID
	h.nextID++
	ch := make(chan models.NotificationEvent, h.buffer)
	ch <- h.snapshotEventLocked()
	h.subscribers[id] = ch
	h.metrics.SetSubscribers(len(h.subscribers))
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(id)
	}()
	return ch, nil
}

// Subscribers reports the number of connected observers.
func (h *NotificationHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber. Later mutations still update the list.
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	h.metrics.SetSubscribers(0)
}

func (h *NotificationHub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
		h.metrics.SetSubscribers(len(h.subscribers))
	}
}

func (h *NotificationHub) removeLocked(id string) {
	for i := range h.entries {
		if h.entries[i].ID == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *NotificationHub) snapshotEventLocked() models.NotificationEvent {
	list := make([]models.Notification, len(h.entries))
	copy(list, h.entries)
	return models.NotificationEvent{Type: models.NotificationSnapshot, Notifications: list}
}

func (h *NotificationHub) broadcastLocked(event models.NotificationEvent) {
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn("notification subscriber lagging, disconnecting", zap.Uint64("subscriber", id))
			close(ch)
			delete(h.subscribers, id)
		}
	}
	h.metrics.SetSubscribers(len(h.subscribers))
}

func (h *NotificationHub) reportPendingLocked() {
	if h.metrics == nil {
		return
	}
	counts := map[models.RequestKind]int{models.KindVisit: 0, models.KindInternship: 0}
	for _, n := range h.entries {
		counts[n.Kind]++
	}
	for kind, n := range counts {
		h.metrics.SetPending(string(kind), n)
	}
}
