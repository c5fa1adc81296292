package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == want
	}, time.Second, 5*time.Millisecond, "expected %d clients", want)
}

// receive pops the next frame from the client's send buffer.
func receive(t *testing.T, client *Client) events.Message {
	t.Helper()
	select {
	case data, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		var msg events.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame within deadline")
		return events.Message{}
	}
}

func TestHub_RegisterSendsWelcome(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)

	welcome := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, welcome.Type)
	assert.False(t, welcome.Timestamp.IsZero())
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := newRunningHub(t)

	first := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	second := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(first)
	hub.Register(second)
	waitForClients(t, hub, 2)
	receive(t, first)  // welcome
	receive(t, second) // welcome

	hub.Broadcast(events.Message{
		Type:      events.MessageTypeDatasetLoaded,
		SessionID: "s-1",
		Data:      events.DatasetLoadedData{Name: "lap1.csv", RowCount: 42, Columns: 3},
	})

	for _, client := range []*Client{first, second} {
		msg := receive(t, client)
		assert.Equal(t, events.MessageTypeDatasetLoaded, msg.Type)
		assert.Equal(t, "s-1", msg.SessionID)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.unregister <- client
	waitForClients(t, hub, 0)

	// Drain until the closed channel is observed.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)

	// Nothing reads client.send, so filling it simulates a stalled peer.
	for filling := true; filling; {
		select {
		case client.send <- []byte("{}"):
		default:
			filling = false
		}
	}

	hub.Broadcast(events.Message{Type: events.MessageTypeRenderStarted})
	waitForClients(t, hub, 0)

	metrics := hub.Metrics()
	assert.Equal(t, int64(1), metrics["dropped_clients"])
}

func TestHub_BroadcastDropsWhenQueueFull(t *testing.T) {
	// Not started, so the queue never drains.
	hub := NewHub(testLogger())

	for i := 0; i < cap(hub.broadcast); i++ {
		hub.Broadcast(events.Message{Type: events.MessageTypeRenderStarted})
	}
	hub.Broadcast(events.Message{Type: events.MessageTypeRenderStarted})

	metrics := hub.Metrics()
	assert.Equal(t, int64(1), metrics["dropped_messages"])
}

func TestHub_StartAndStopAreIdempotent(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Stop()
	assert.Zero(t, hub.ClientCount())
}

func TestHub_MetricsSnapshot(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)

	metrics := hub.Metrics()
	assert.Equal(t, 1, metrics["active_clients"])
	assert.Equal(t, int64(1), metrics["total_connections"])
}

func TestHub_BroadcastStampsTimestamp(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection(), testLogger())
	hub.Register(client)
	waitForClients(t, hub, 1)
	receive(t, client) // welcome

	hub.Broadcast(events.Message{Type: events.MessageTypeSlotUpdated})
	msg := receive(t, client)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestHub_BroadcastUnmarshalableData(t *testing.T) {
	hub := NewHub(testLogger())

	// Channels cannot be marshaled; the event is logged and dropped without
	// reaching the queue.
	hub.Broadcast(events.Message{
		Type: events.MessageTypeSlotUpdated,
		Data: make(chan int),
	})
	assert.Zero(t, len(hub.broadcast))
}
