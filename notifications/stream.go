package notifications

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	EventBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Streamer pushes hub events to websocket clients as JSON messages.
type Streamer struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewStreamer(hub *Hub, allowedOrigin string) *Streamer {
	return &Streamer{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request and streams events addressed to userId until
// the client goes away. It returns once the connection is closed.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, userId string) {
	connection, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("Error upgrading notifications connection: %v", err)
		return
	}
	defer connection.Close()

	events := make(chan Event, EventBufferSize)
	unsubscribe := s.hub.Subscribe(userId, func(event Event) {
		select {
		case events <- event:
		default:
			log.WithField("user_id", userId).Warning("Dropping notification for slow client")
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go s.readLoop(connection, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case event := <-events:
			connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := connection.WriteJSON(event); err != nil {
				log.Debugf("Error writing notification: %v", err)
				return
			}
		case <-ticker.C:
			connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client messages and keeps the read deadline fresh so
// pongs are processed. closed is closed when the peer disconnects.
func (s *Streamer) readLoop(connection *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	connection.SetReadLimit(512)
	connection.SetReadDeadline(time.Now().Add(pongWait))
	connection.SetPongHandler(func(string) error {
		return connection.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			return
		}
	}
}
