package chatcrypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/pkg/chatcrypto"
)

func TestChatIDIsSymmetric(t *testing.T) {
	require.Equal(t, chatcrypto.ChatID("alice", "bob"), chatcrypto.ChatID("bob", "alice"))
	require.Equal(t, "private:alice-bob", chatcrypto.ChatID("alice", "bob"))
}

func TestGroupChatID(t *testing.T) {
	require.Equal(t, "group:g1", chatcrypto.GroupChatID("g1"))
}

func TestDeriveKeyIsOrderIndependent(t *testing.T) {
	master := []byte("0123456789abcdef0123456789abcdef")

	k1, err := chatcrypto.DeriveKey(master, []string{"alice", "bob"})
	require.NoError(t, err)
	k2, err := chatcrypto.DeriveKey(master, []string{"bob", "alice"})
	require.NoError(t, err)

	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestDeriveKeyDiffersPerChat(t *testing.T) {
	master := []byte("0123456789abcdef0123456789abcdef")

	k1, err := chatcrypto.DeriveKey(master, []string{"alice", "bob"})
	require.NoError(t, err)
	k2, err := chatcrypto.DeriveKey(master, []string{"alice", "carol"})
	require.NoError(t, err)

	require.NotEqual(t, k1, k2)
}

func TestSealOpenRoundTrip(t *testing.T) {
	master := []byte("0123456789abcdef0123456789abcdef")
	key, err := chatcrypto.DeriveKey(master, []string{"alice", "bob"})
	require.NoError(t, err)

	sealed, err := chatcrypto.Seal(key, "hello there")
	require.NoError(t, err)

	opened, err := chatcrypto.Open(key, sealed)
	require.NoError(t, err)
	require.Equal(t, "hello there", opened)
}

func TestOpenPassesThroughLegacyPlaintext(t *testing.T) {
	master := []byte("0123456789abcdef0123456789abcdef")
	key, err := chatcrypto.DeriveKey(master, []string{"alice", "bob"})
	require.NoError(t, err)

	opened, err := chatcrypto.Open(key, "plain old message")
	require.NoError(t, err)
	require.Equal(t, "plain old message", opened)
}
