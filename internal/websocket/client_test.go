package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPeerGone = errors.New("peer gone")

func TestClient_WritePumpWritesFrames(t *testing.T) {
	hub := NewHub(testLogger())
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, testLogger())

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"render:started"}`)
	require.Eventually(t, func() bool {
		return len(conn.Written()) == 1
	}, time.Second, 5*time.Millisecond)

	written := conn.Written()
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.JSONEq(t, `{"type":"render:started"}`, string(written[0].Data))

	// Closing send tells the pump the hub dropped the client.
	close(client.send)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}

	written = conn.Written()
	require.Len(t, written, 2)
	assert.Equal(t, websocket.CloseMessage, written[1].Type)
	assert.True(t, conn.IsClosed())
}

func TestClient_WritePumpStopsOnWriteError(t *testing.T) {
	hub := NewHub(testLogger())
	conn := NewMockConnection()
	conn.WriteMessageFunc = func(messageType int, data []byte) error {
		return errPeerGone
	}
	client := NewClientWithConnection(hub, conn, testLogger())

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte("{}")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop on error")
	}
}

func TestClient_ReadPumpUnregistersOnClose(t *testing.T) {
	hub := newRunningHub(t)
	conn := NewMockConnection()
	conn.ReadMessages = []MockMessage{
		{Type: websocket.TextMessage, Data: []byte(`{"type":"heartbeat"}`)},
		{Err: errPeerGone},
	}
	client := NewClientWithConnection(hub, conn, testLogger())

	hub.Register(client)
	waitForClients(t, hub, 1)

	go client.ReadPump()
	waitForClients(t, hub, 0)

	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(maxMessageSize), conn.ReadLimit)
	assert.NotNil(t, conn.PongHandler)
}

func TestClient_PongHandlerExtendsDeadline(t *testing.T) {
	hub := newRunningHub(t)
	conn := NewMockConnection()
	conn.ReadMessages = []MockMessage{{Err: errPeerGone}}
	client := NewClientWithConnection(hub, conn, testLogger())

	hub.Register(client)
	waitForClients(t, hub, 1)

	go client.ReadPump()
	waitForClients(t, hub, 0)
	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)

	before := conn.ReadDeadline
	require.NotNil(t, conn.PongHandler)
	require.NoError(t, conn.PongHandler(""))
	assert.False(t, conn.ReadDeadline.Before(before))
}

func TestNewClientMetadata(t *testing.T) {
	hub := NewHub(testLogger())
	conn := NewMockConnection()
	client := NewClientWithConnection(hub, conn, testLogger())

	assert.NotEmpty(t, client.id)
	assert.Equal(t, "127.0.0.1:8080", client.remoteAddr)
	assert.False(t, client.connectedAt.IsZero())
	assert.Equal(t, 256, cap(client.send))
}
