package netsink

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(AnalyzerFrame{TimestampMs: 123, PixelWidth: 4, Columns: []float64{-10, -20, -30, -40}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), `"pixel_width":4`)
}

func TestUnsubscribeOnDisconnect(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBroadcastDropsForSlowSubscriberWithoutBlocking(t *testing.T) {
	hub := NewHub()
	ch := make(chan []byte, 1)
	hub.subscribe(ch)
	defer hub.unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			hub.Broadcast(AnalyzerFrame{TimestampMs: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full subscriber channel")
	}
}
