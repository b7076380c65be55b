package protocol_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/internal/directory"
	"github.com/ruggine/chatcore/internal/friends"
	"github.com/ruggine/chatcore/internal/groups"
	"github.com/ruggine/chatcore/internal/messages"
	"github.com/ruggine/chatcore/internal/protocol"
	"github.com/ruggine/chatcore/internal/session"
	"github.com/ruggine/chatcore/internal/store"
	"github.com/ruggine/chatcore/internal/wire"
)

type discardPublisher struct{}

func (discardPublisher) Publish(string, string, wire.DataFrame) error { return nil }

func newTestDispatcher(t *testing.T) *protocol.Dispatcher {
	t.Helper()
	st, err := store.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	sessions := session.New(st, time.Hour)
	dir := directory.New(st)
	fg := friends.New(st)
	gs := groups.New(st)
	ms := messages.New(st, discardPublisher{}, messages.Config{MaxMessageLength: 4096})

	return protocol.New(sessions, dir, fg, gs, ms, nil, 4096)
}

func login(t *testing.T, d *protocol.Dispatcher, username, password string) string {
	t.Helper()
	reply := d.Dispatch(context.Background(), "/register "+username+" "+password, "127.0.0.1")
	require.Equal(t, "OK: Registered\n", reply)

	reply = d.Dispatch(context.Background(), "/login "+username+" "+password, "127.0.0.1")
	require.True(t, strings.HasPrefix(reply, "OK: Logged in SESSION:"))
	token := strings.TrimPrefix(strings.TrimSuffix(reply, "\n"), "OK: Logged in SESSION:")
	require.NotEmpty(t, token)
	return token
}

func TestDispatchEmptyLineIsIgnored(t *testing.T) {
	d := newTestDispatcher(t)
	require.Equal(t, "", d.Dispatch(context.Background(), "", "127.0.0.1"))
	require.Equal(t, "", d.Dispatch(context.Background(), "   \r\n", "127.0.0.1"))
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := newTestDispatcher(t)
	reply := d.Dispatch(context.Background(), "/nonsense a b", "127.0.0.1")
	require.Equal(t, "ERR: Unknown or invalid command\n", reply)
}

func TestDispatchWrongArgCount(t *testing.T) {
	d := newTestDispatcher(t)
	reply := d.Dispatch(context.Background(), "/login onlyone", "127.0.0.1")
	require.Equal(t, "ERR: Unknown or invalid command\n", reply)
}

func TestDispatchRegisterLoginValidateLogout(t *testing.T) {
	d := newTestDispatcher(t)
	token := login(t, d, "alice", "hunter22")

	reply := d.Dispatch(context.Background(), "/validate_session "+token, "127.0.0.1")
	require.Equal(t, "OK: alice\n", reply)

	reply = d.Dispatch(context.Background(), "/logout "+token, "127.0.0.1")
	require.Equal(t, "OK: Logged out\n", reply)

	reply = d.Dispatch(context.Background(), "/validate_session "+token, "127.0.0.1")
	require.Equal(t, "ERR: Invalid or expired session\n", reply)
}

func TestDispatchLoginRejectsBadCredentials(t *testing.T) {
	d := newTestDispatcher(t)
	login(t, d, "bob", "hunter22")

	reply := d.Dispatch(context.Background(), "/login bob wrongpass", "127.0.0.1")
	require.Equal(t, "ERR: Invalid username or password\n", reply)
}

func TestDispatchPrivateMessageRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	aliceToken := login(t, d, "alice", "hunter22")
	login(t, d, "bob", "hunter22")

	reply := d.Dispatch(context.Background(), "/send_private_message "+aliceToken+" bob hello there", "127.0.0.1")
	require.Equal(t, "OK: Message sent\n", reply)

	reply = d.Dispatch(context.Background(), "/get_private_messages "+aliceToken+" bob", "127.0.0.1")
	require.True(t, strings.HasPrefix(reply, "OK: Messages:\n"))
	require.Contains(t, reply, "alice: hello there")
}

func TestDispatchGroupLifecycleAndMembershipGate(t *testing.T) {
	d := newTestDispatcher(t)
	aliceToken := login(t, d, "alice", "hunter22")
	bobToken := login(t, d, "bob", "hunter22")

	reply := d.Dispatch(context.Background(), "/create_group "+aliceToken+" book-club", "127.0.0.1")
	require.True(t, strings.HasPrefix(reply, "OK: "))
	groupID := strings.TrimSuffix(strings.TrimPrefix(reply, "OK: "), "\n")

	reply = d.Dispatch(context.Background(), "/send_group_message "+bobToken+" "+groupID+" hi all", "127.0.0.1")
	require.Equal(t, "ERR: Not a group member\n", reply)

	reply = d.Dispatch(context.Background(), "/invite "+aliceToken+" "+groupID+" bob", "127.0.0.1")
	require.Equal(t, "OK: Invited\n", reply)

	reply = d.Dispatch(context.Background(), "/my_invites "+bobToken, "127.0.0.1")
	require.True(t, strings.HasPrefix(reply, "OK: "))
	inviteID := strings.SplitN(strings.TrimSuffix(strings.TrimPrefix(reply, "OK: "), "\n"), ":", 2)[0]

	reply = d.Dispatch(context.Background(), "/accept_invite "+bobToken+" "+inviteID, "127.0.0.1")
	require.Equal(t, "OK: Joined\n", reply)

	reply = d.Dispatch(context.Background(), "/send_group_message "+bobToken+" "+groupID+" hi all", "127.0.0.1")
	require.Equal(t, "OK: Message sent\n", reply)
}

func TestDispatchFriendRequestLifecycle(t *testing.T) {
	d := newTestDispatcher(t)
	aliceToken := login(t, d, "alice", "hunter22")
	bobToken := login(t, d, "bob", "hunter22")

	reply := d.Dispatch(context.Background(), "/send_friend_request "+aliceToken+" bob", "127.0.0.1")
	require.Equal(t, "OK: Request sent\n", reply)

	reply = d.Dispatch(context.Background(), "/received_friend_requests "+bobToken, "127.0.0.1")
	require.Contains(t, reply, "alice:")

	reply = d.Dispatch(context.Background(), "/accept_friend_request "+bobToken+" alice", "127.0.0.1")
	require.Equal(t, "OK: Accepted\n", reply)

	reply = d.Dispatch(context.Background(), "/list_friends "+aliceToken, "127.0.0.1")
	require.Equal(t, "OK: bob\n", reply)
}

func TestDispatchHelpListsCommands(t *testing.T) {
	d := newTestDispatcher(t)
	reply := d.Dispatch(context.Background(), "/help", "127.0.0.1")
	require.Contains(t, reply, "/register")
	require.Contains(t, reply, "/send_private_message")
}
