package wsfanout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/capability"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSubscribeReceivesOnlyItsChannel(t *testing.T) {
	b := bus.New(16)
	h := New(b, time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h.Serve(w, r) }))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(controlFrame{Type: "subscribe", Channels: []string{"team-a"}}))
	require.Eventually(t, func() bool { return b.SubscriberCount("team-a") == 1 }, time.Second, 5*time.Millisecond)

	b.Publish("team-b", capability.Event{Kind: capability.EventMemoryAdded, Channel: "team-b"})
	b.Publish("team-a", capability.Event{Kind: capability.EventEntityAdded, Channel: "team-a"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame outFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	require.Equal(t, "team-a", frame.Channel)
	require.Equal(t, "entity_added", frame.Type)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := bus.New(16)
	h := New(b, time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h.Serve(w, r) }))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(controlFrame{Type: "subscribe", Channels: []string{"team-a"}}))
	require.Eventually(t, func() bool { return b.SubscriberCount("team-a") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(controlFrame{Type: "unsubscribe", Channels: []string{"team-a"}}))
	require.Eventually(t, func() bool { return b.SubscriberCount("team-a") == 0 }, time.Second, 5*time.Millisecond)
}

func TestSlowClientIsEvicted(t *testing.T) {
	b := bus.New(16)
	h := New(b, 10*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h.Serve(w, r) }))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(controlFrame{Type: "subscribe", Channels: []string{"slow"}}))
	require.Eventually(t, func() bool { return b.SubscriberCount("slow") == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 2000; i++ {
		b.Publish("slow", capability.Event{Kind: capability.EventMemoryAdded, Channel: "slow"})
	}

	require.Eventually(t, func() bool { return b.SubscriberCount("slow") == 0 }, 2*time.Second, 10*time.Millisecond)
}
