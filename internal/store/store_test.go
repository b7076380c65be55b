package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/internal/models"
	"github.com/ruggine/chatcore/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndLookupUser(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateUser("u1", "alice", "hash1"))

	exists, err := s.UsernameExists("alice")
	require.NoError(t, err)
	require.True(t, exists)

	u, hash, err := s.UserByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "hash1", hash)
}

func TestUserByUsernameNotFound(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.UserByUsername("nobody")
	require.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("u1", "alice", "hash1"))

	require.NoError(t, s.CreateSession("tok1", "u1", 3600))

	sess, err := s.SessionByToken("tok1")
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)

	require.NoError(t, s.DeleteSession("tok1", "u1"))

	_, err = s.SessionByToken("tok1")
	require.Error(t, err)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("u1", "alice", "hash1"))

	require.NoError(t, s.CreateSession("tok1", "u1", -10))
	require.NoError(t, s.CreateSession("tok2", "u1", 3600))

	n, err := s.DeleteExpiredSessions()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.SessionByToken("tok2")
	require.NoError(t, err)
}

func TestFriendRequestFlow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("u1", "alice", "h"))
	require.NoError(t, s.CreateUser("u2", "bob", "h"))

	require.NoError(t, s.CreateFriendRequest("u1", "u2", "hi"))

	pending, accepted, err := s.FriendRequestExists("u1", "u2")
	require.NoError(t, err)
	require.True(t, pending)
	require.False(t, accepted)

	req, err := s.PendingFriendRequestTo("u1", "u2")
	require.NoError(t, err)
	require.NoError(t, s.ResolveFriendRequest(req.ID, models.FriendAccepted))

	friends, err := s.ListFriends("u1")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, "u2", friends[0].ID)

	areFriends, err := s.AreFriends("u2", "u1")
	require.NoError(t, err)
	require.True(t, areFriends)
}

func TestGroupMembershipAndInvites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("u1", "alice", "h"))
	require.NoError(t, s.CreateUser("u2", "bob", "h"))

	require.NoError(t, s.CreateGroup("g1", "book-club", "u1"))

	isMember, err := s.IsGroupMember("g1", "u1")
	require.NoError(t, err)
	require.True(t, isMember)

	require.NoError(t, s.CreateGroupInvite("g1", "u1", "u2"))
	inv, err := s.PendingGroupInvite("g1", "u2")
	require.NoError(t, err)
	require.NoError(t, s.ResolveGroupInvite(inv.ID, models.InviteAccepted))
	require.NoError(t, s.AddGroupMember("g1", "u2"))

	ids, err := s.GroupMemberIDs("g1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, ids)

	groups, err := s.GroupsForUser("u2")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "g1", groups[0].ID)
}

func TestMessageOrderingAndDeletion(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("u1", "alice", "h"))

	_, err := s.InsertMessage("chat-a", "u1", "first")
	require.NoError(t, err)
	_, err = s.InsertMessage("chat-a", "u1", "second")
	require.NoError(t, err)

	msgs, err := s.Messages("chat-a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Payload)
	require.Equal(t, "second", msgs[1].Payload)

	n, err := s.DeleteMessages("chat-a")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	msgs, err = s.Messages("chat-a")
	require.NoError(t, err)
	require.Empty(t, msgs)
}
