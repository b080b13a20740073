package radio

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// streamHandler serves the continuous MP3 stream: each request subscribes a
// new broadcast.Session and relays chunks until the client disconnects.
func (s *Server) streamHandler(c *gin.Context) {
	if s.cfg.MaxClients > 0 && s.broadcaster.ActiveListeners() >= s.cfg.MaxClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "too many listeners"})
		return
	}

	session := s.broadcaster.AddListener()
	defer s.broadcaster.RemoveListener(session.ID)

	w := c.Writer
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("icy-name", s.cfg.StationName)
	w.Header().Set("icy-br", strings.TrimSuffix(s.cfg.Bitrate, "k"))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-session.Chunks:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			w.Flush()
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler upgrades to a websocket connection carrying the richer typed
// event stream (track changes, progress, raw chunks) via the EventBus.
func (s *Server) wsHandler(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	id := s.events.Subscribe(conn)
	defer s.events.Unsubscribe(id)

	// The read loop must keep running even though the client rarely sends
	// data frames: gorilla/websocket processes pong control frames only
	// while a ReadMessage call is in flight. The one data frame a client
	// does send is a bufferHeader seed: a text envelope naming the event,
	// immediately followed by the binary header bytes, mirroring the wire
	// shape writeEvent uses for server-originated bufferHeader events.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Type != "bufferHeader" {
			continue
		}

		_, chunk, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.events.BufferHeader(chunk)
	}
}
