package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the subset of a websocket connection the client pumps
// touch. Tests substitute a scripted implementation.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// gorillaConn adapts *websocket.Conn to Connection. Everything except
// RemoteAddr is promoted straight from the embedded connection.
type gorillaConn struct {
	*websocket.Conn
}

func wrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

// RemoteAddr flattens the net.Addr, tolerating an already-gone peer.
func (g gorillaConn) RemoteAddr() string {
	if addr := g.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
