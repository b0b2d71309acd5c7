package game

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// readTimeout must comfortably exceed the ping interval so a
	// healthy peer's pongs keep pushing the deadline out.
	readTimeout       = time.Minute
	closeWriteTimeout = time.Second * 20
)

type websocketConnection struct {
	socket *websocket.Conn
}

func (wc *websocketConnection) Write(data []byte) error {
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *websocketConnection) Ping() error {
	return wc.socket.WriteMessage(websocket.PingMessage, nil)
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Close(reason string) {
	wc.socket.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	wc.socket.Close()
}

func NewWebsocketConnection(conn *websocket.Conn) *websocketConnection {
	// The initial deadline catches peers that die before ever answering
	// a ping; each pong afterwards extends it.
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	return &websocketConnection{conn}
}
