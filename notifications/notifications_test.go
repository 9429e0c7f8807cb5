package notifications_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"trendsetter/notifications"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToRecipientOnly(t *testing.T) {
	hub := notifications.NewHub()

	var aliceEvents, bobEvents []notifications.Event
	unsubscribeAlice := hub.Subscribe("alice", func(event notifications.Event) {
		aliceEvents = append(aliceEvents, event)
	})
	hub.Subscribe("bob", func(event notifications.Event) {
		bobEvents = append(bobEvents, event)
	})

	hub.Publish(notifications.Event{Type: notifications.EventFollow, RecipientId: "alice", ActorId: "bob"})
	require.Len(t, aliceEvents, 1)
	require.Empty(t, bobEvents)

	unsubscribeAlice()
	unsubscribeAlice()
	require.Zero(t, hub.SubscriberCount("alice"))

	hub.Publish(notifications.Event{Type: notifications.EventLike, RecipientId: "alice", ActorId: "bob"})
	require.Len(t, aliceEvents, 1)
	require.Equal(t, 1, hub.SubscriberCount("bob"))
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := notifications.NewHub()

	calls := 0
	first := hub.Subscribe("alice", func(notifications.Event) { calls++ })
	hub.Subscribe("alice", func(notifications.Event) { calls++ })

	hub.Publish(notifications.Event{RecipientId: "alice"})
	require.Equal(t, 2, calls)

	first()
	hub.Publish(notifications.Event{RecipientId: "alice"})
	require.Equal(t, 3, calls)
}

func TestStreamerSendsEvents(t *testing.T) {
	hub := notifications.NewHub()
	streamer := notifications.NewStreamer(hub, "*")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamer.Serve(w, r, "alice")
	}))
	defer server.Close()

	connection, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(notifications.Event{Type: notifications.EventLike, RecipientId: "alice", ActorId: "bob", PostId: "post"})

	connection.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event notifications.Event
	require.NoError(t, connection.ReadJSON(&event))
	require.Equal(t, notifications.EventLike, event.Type)
	require.Equal(t, "bob", event.ActorId)
	require.Equal(t, "post", event.PostId)

	require.NoError(t, connection.Close())
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("alice") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
