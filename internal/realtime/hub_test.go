package realtime_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/internal/realtime"
	"github.com/ruggine/chatcore/internal/store"
	"github.com/ruggine/chatcore/internal/wire"
)

func newTestHub(t *testing.T) (*realtime.Hub, *store.Store) {
	t.Helper()
	st, err := store.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	hub := realtime.New(func(token string) (string, error) {
		if strings.HasPrefix(token, "user:") {
			return strings.TrimPrefix(token, "user:"), nil
		}
		return "", errInvalidToken
	}, st)
	return hub, st
}

type tokenErr string

func (e tokenErr) Error() string { return string(e) }

const errInvalidToken = tokenErr("invalid token")

func dialAndAuth(t *testing.T, wsURL, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(wire.AuthRequest{MessageType: "auth", SessionToken: token}))

	var resp wire.AuthResponse
	require.NoError(t, conn.ReadJSON(&resp))
	require.True(t, resp.Success, resp.Error)
	return conn
}

func TestAuthSuccessAndSendToUser(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn := dialAndAuth(t, wsURL, "user:alice")
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let registration complete

	err := hub.SendToUser("alice", wire.DataFrame{MessageType: wire.PrivateMessage, Content: "hi"})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wire.DataFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "hi", frame.Content)
}

func TestAuthFailureClosesConnection(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wire.AuthRequest{MessageType: "auth", SessionToken: "bad-token"}))

	var resp wire.AuthResponse
	require.NoError(t, conn.ReadJSON(&resp))
	require.False(t, resp.Success)
}

func TestSendToGroupFiltersByMembership(t *testing.T) {
	hub, st := newTestHub(t)
	require.NoError(t, st.CreateUser("alice", "alice", "h"))
	require.NoError(t, st.CreateUser("bob", "bob", "h"))
	require.NoError(t, st.CreateUser("carol", "carol", "h"))
	require.NoError(t, st.CreateGroup("g1", "book-club", "alice"))
	require.NoError(t, st.AddGroupMember("g1", "bob"))
	// carol is deliberately not a member.

	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	bobConn := dialAndAuth(t, wsURL, "user:bob")
	defer bobConn.Close()
	carolConn := dialAndAuth(t, wsURL, "user:carol")
	defer carolConn.Close()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.SendToGroup("g1", wire.DataFrame{MessageType: wire.GroupMessage, Content: "hey"}, "alice"))

	bobConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wire.DataFrame
	require.NoError(t, bobConn.ReadJSON(&frame))
	require.Equal(t, "hey", frame.Content)

	carolConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	err := carolConn.ReadJSON(&frame)
	require.Error(t, err) // carol is not a member, so she gets nothing
}

func TestSecondLoginDisplacesFirstConnection(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	first := dialAndAuth(t, wsURL, "user:alice")
	defer first.Close()
	second := dialAndAuth(t, wsURL, "user:alice")
	defer second.Close()

	time.Sleep(20 * time.Millisecond)

	first.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, _, err := first.ReadMessage()
	require.Error(t, err) // displaced: the server closed the first connection

	require.NoError(t, hub.SendToUser("alice", wire.DataFrame{MessageType: wire.Notification, Content: "still alive"}))
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wire.DataFrame
	require.NoError(t, second.ReadJSON(&frame))
	require.Equal(t, "still alive", frame.Content)
}
