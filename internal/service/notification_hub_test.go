package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/visit-intake-api/internal/models"
)

func hubEntry(kind models.RequestKind, id int64, created time.Time) models.Notification {
	return models.Notification{ID: models.NotificationID(kind, id), Kind: kind, RequestID: id, CreatedAt: created}
}

func receive(t *testing.T, ch <-chan models.NotificationEvent) models.NotificationEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return models.NotificationEvent{}
}

func TestNotificationHubLoadMergesNewestFirst(t *testing.T) {
	base := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	hub := NewNotificationHub(4, nil, nil)
	visits := func(ctx context.Context) ([]models.Notification, error) {
		return []models.Notification{hubEntry(models.KindVisit, 1, base), hubEntry(models.KindVisit, 2, base.Add(2*time.Hour))}, nil
	}
	internships := func(ctx context.Context) ([]models.Notification, error) {
		return []models.Notification{hubEntry(models.KindInternship, 1, base.Add(time.Hour))}, nil
	}
	require.NoError(t, hub.Load(context.Background(), visits, internships))

	entries := hub.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "visit-2", entries[0].ID)
	assert.Equal(t, "internship-1", entries[1].ID)
	assert.Equal(t, "visit-1", entries[2].ID)

	failing := func(ctx context.Context) ([]models.Notification, error) { return nil, errors.New("db down") }
	require.Error(t, hub.Load(context.Background(), failing))
	assert.Len(t, hub.Snapshot(), 3)
}

func TestNotificationHubSubscribeReceivesSnapshotThenChanges(t *testing.T) {
	base := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	hub := NewNotificationHub(8, nil, nil)
	hub.Announce(hubEntry(models.KindVisit, 1, base))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers())

	first := receive(t, events)
	assert.Equal(t, models.NotificationSnapshot, first.Type)
	require.Len(t, first.Notifications, 1)

	hub.Announce(hubEntry(models.KindInternship, 4, base.Add(time.Hour)))
	created := receive(t, events)
	assert.Equal(t, models.NotificationCreated, created.Type)
	assert.Equal(t, "internship-4", created.Notification.ID)

	hub.Upsert(hubEntry(models.KindVisit, 9, base.Add(30*time.Minute)))
	snapshot := receive(t, events)
	require.Len(t, snapshot.Notifications, 3)
	assert.Equal(t, []string{"internship-4", "visit-9", "visit-1"}, []string{
		snapshot.Notifications[0].ID, snapshot.Notifications[1].ID, snapshot.Notifications[2].ID,
	})

	hub.Retract("visit-9")
	assert.Len(t, receive(t, events).Notifications, 2)

	hub.Retract("visit-404")
	unchanged := receive(t, events)
	assert.Equal(t, models.NotificationSnapshot, unchanged.Type)
	assert.Len(t, unchanged.Notifications, 2)

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestNotificationHubEmptySnapshotCarriesList(t *testing.T) {
	hub := NewNotificationHub(2, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	payload, err := json.Marshal(receive(t, events))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"snapshot","notifications":[]}`, string(payload))

	hub.Retract("visit-1")
	payload, err = json.Marshal(receive(t, events))
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"notifications":[]`)
}

func TestNotificationHubUpsertReplacesEntry(t *testing.T) {
	base := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	hub := NewNotificationHub(4, nil, nil)
	hub.Announce(hubEntry(models.KindVisit, 1, base))
	updated := hubEntry(models.KindVisit, 1, base)
	updated.Message = "moved to Session 2"
	hub.Upsert(updated)

	entries := hub.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "moved to Session 2", entries[0].Message)
}

func TestNotificationHubDisconnectsLaggingSubscriber(t *testing.T) {
	hub := NewNotificationHub(2, nil, nil)
	slow, err := hub.Subscribe(context.Background())
	require.NoError(t, err)
	fast, err := hub.Subscribe(context.Background())
	require.NoError(t, err)

	go func() {
		for range fast {
		}
	}()

	for i := int64(1); i <= 5; i++ {
		hub.Announce(hubEntry(models.KindVisit, i, time.Now()))
	}

	received := 0
	for range slow {
		received++
	}
	assert.LessOrEqual(t, received, 2)
	assert.Len(t, hub.Snapshot(), 5)
}

func TestNotificationHubClose(t *testing.T) {
	hub := NewNotificationHub(4, nil, nil)
	events, err := hub.Subscribe(context.Background())
	require.NoError(t, err)
	hub.Close()
	hub.Close()

	receive(t, events)
	_, open := <-events
	assert.False(t, open)

	_, err = hub.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrHubClosed)

	hub.Announce(hubEntry(models.KindVisit, 1, time.Now()))
	assert.Len(t, hub.Snapshot(), 1)
}
