package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "word_submitted",
			data:      `{"word":"KEDI"}`,
			expected:  "event: word_submitted\ndata: {\"word\":\"KEDI\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "game_finished",
			data:      "{\n  \"draw\": true\n}",
			expected:  "event: game_finished\ndata: {\ndata:   \"draw\": true\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func newEvent(topic string, eventType model.EventType) model.Event {
	return model.Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Payload:   map[string]string{"code": "ABC123"},
	}
}

func TestHubRelaysFeedEvents(t *testing.T) {
	bus := feed.NewMemory(testutil.NopLogger())
	manager := NewHubManager(bus, testutil.NopLogger())
	defer manager.Close()

	hub, err := manager.GetOrCreateHub("room:r1")
	require.NoError(t, err)

	again, err := manager.GetOrCreateHub("room:r1")
	require.NoError(t, err)
	assert.Same(t, hub, again)

	client := NewClient(hub, "u1")
	require.True(t, hub.Register(client))
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, bus.Publish(context.Background(), newEvent("room:r1", model.EventPlayerJoined)))

	select {
	case msg := <-client.send:
		assert.True(t, strings.HasPrefix(string(msg), "event: player_joined\n"))
		assert.Contains(t, string(msg), `"code":"ABC123"`)
	case <-time.After(2 * time.Second):
		t.Fatal("event not relayed")
	}
}

func TestCleanupClosesSubscription(t *testing.T) {
	bus := feed.NewMemory(testutil.NopLogger())
	manager := NewHubManager(bus, testutil.NopLogger())

	_, err := manager.GetOrCreateHub("tournament:t1")
	require.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount("tournament:t1"))

	manager.CleanupEmptyHubs()

	assert.Nil(t, manager.GetHub("tournament:t1"))
	assert.Eventually(t, func() bool {
		return bus.SubscriberCount("tournament:t1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterOnClosedHub(t *testing.T) {
	bus := feed.NewMemory(testutil.NopLogger())
	manager := NewHubManager(bus, testutil.NopLogger())

	hub, err := manager.GetOrCreateHub("user:u1")
	require.NoError(t, err)
	manager.Close()

	assert.False(t, hub.Register(NewClient(hub, "u1")))
}

func TestServeSSEStreamsEvents(t *testing.T) {
	bus := feed.NewMemory(testutil.NopLogger())
	manager := NewHubManager(bus, testutil.NopLogger())
	defer manager.Close()

	hub, err := manager.GetOrCreateHub("user:u1")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub, "u1")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// The client is registered once the connected event is out
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), newEvent("user:u1", model.EventLivesChanged)))

	found := false
	for i := 0; i < 10 && !found; i++ {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		found = line == "event: lives_changed\n"
	}
	assert.True(t, found)
}
