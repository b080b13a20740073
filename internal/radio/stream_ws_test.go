package radio

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSHandlerForwardsInboundBufferHeaderToEventBus(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	sender, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer sender.Close()

	listener, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer listener.Close()

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"bufferHeader"}`)))
	require.NoError(t, sender.WriteMessage(websocket.BinaryMessage, []byte{0xFF, 0xFB, 0x90, 0x00}))

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sawHeaderEnvelope, sawHeaderChunk bool
	for i := 0; i < 4 && !(sawHeaderEnvelope && sawHeaderChunk); i++ {
		msgType, data, err := listener.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "bufferHeader") {
				sawHeaderEnvelope = true
			}
		case websocket.BinaryMessage:
			if len(data) == 4 && data[0] == 0xFF {
				sawHeaderChunk = true
			}
		}
	}

	require.True(t, sawHeaderEnvelope, "listener must receive the bufferHeader envelope")
	require.True(t, sawHeaderChunk, "listener must receive the rebroadcast header bytes")
}
