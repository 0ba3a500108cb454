package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/server/pkg/logger"
)

func newTestHub(t *testing.T) (*Server, string) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	hub := NewServer(log)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendSession(t *testing.T, conn *websocket.Conn, roomID, participant string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": MessageTypeSessionUpdate,
		"data": map[string]any{
			"room_id":     roomID,
			"participant": participant,
			"format":      "audio/webm",
		},
	}))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSessionGovernsSubsequentAudioFrames(t *testing.T) {
	_, url := newTestHub(t)
	conn := dial(t, url)

	sendSession(t, conn, "room-1", "alice")
	ack := readMessage(t, conn)
	assert.Equal(t, MessageTypeSessionAck, ack.Type)
	assert.Equal(t, "room-1", ack.Data["room_id"])

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	ack = readMessage(t, conn)
	assert.Equal(t, MessageTypeAudioAck, ack.Type)
	assert.Equal(t, "room-1", ack.Data["room_id"])
	assert.Equal(t, float64(3), ack.Data["bytes"])

	// A replacement session governs the chunks that follow it
	sendSession(t, conn, "room-9", "alice")
	ack = readMessage(t, conn)
	assert.Equal(t, MessageTypeSessionAck, ack.Type)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{4, 5}))
	ack = readMessage(t, conn)
	assert.Equal(t, MessageTypeAudioAck, ack.Type)
	assert.Equal(t, "room-9", ack.Data["room_id"])
	assert.Equal(t, float64(2), ack.Data["bytes"])
}

func TestAudioBeforeSessionIsRejected(t *testing.T) {
	_, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.NotEmpty(t, msg.Data["error"])
}

func TestSessionStateIsolatedPerConnection(t *testing.T) {
	hub, url := newTestHub(t)

	first := dial(t, url)
	second := dial(t, url)

	sendSession(t, first, "room-1", "alice")
	assert.Equal(t, MessageTypeSessionAck, readMessage(t, first).Type)
	sendSession(t, second, "room-2", "bob")
	assert.Equal(t, MessageTypeSessionAck, readMessage(t, second).Type)

	// Each connection's chunks are attributed to its own session
	require.NoError(t, first.WriteMessage(websocket.BinaryMessage, []byte{1}))
	ack := readMessage(t, first)
	assert.Equal(t, "room-1", ack.Data["room_id"])

	require.NoError(t, second.WriteMessage(websocket.BinaryMessage, []byte{1}))
	ack = readMessage(t, second)
	assert.Equal(t, "room-2", ack.Data["room_id"])

	// Room-scoped broadcasts reach only the matching connection
	hub.BroadcastTranscriptStored("room-1", "alice", 2)

	event := readMessage(t, first)
	assert.Equal(t, MessageTypeTranscriptStored, event.Type)
	assert.Equal(t, "room-1", event.Data["room_id"])
	assert.Equal(t, float64(2), event.Data["segments"])

	require.NoError(t, second.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err)
}
