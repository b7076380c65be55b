package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/pkg/password"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := password.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := password.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	hash, err := password.Hash("correct horse battery staple")
	require.NoError(t, err)

	ok, err := password.Verify("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	_, err := password.Verify("anything", "not-a-hash")
	require.ErrorIs(t, err, password.ErrMalformedHash)
}

func TestHashIsSalted(t *testing.T) {
	h1, err := password.Hash("same-password")
	require.NoError(t, err)
	h2, err := password.Hash("same-password")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
