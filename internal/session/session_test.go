package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/session"
	"github.com/ruggine/chatcore/internal/store"
)

func newManager(t *testing.T, ttl time.Duration) *session.Manager {
	t.Helper()
	st, err := store.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })
	return session.New(st, ttl)
}

func TestRegisterThenLogin(t *testing.T) {
	m := newManager(t, time.Hour)

	_, err := m.Register("alice", "pw123456")
	require.NoError(t, err)

	token, err := m.Login("alice", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Validate(token)
	require.NoError(t, err)
	require.NotEmpty(t, userID)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	m := newManager(t, time.Hour)

	_, err := m.Register("alice", "pw123456")
	require.NoError(t, err)

	_, err = m.Register("alice", "anotherpw")
	require.ErrorIs(t, err, apperr.ErrUsernameTaken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m := newManager(t, time.Hour)
	_, err := m.Register("alice", "pw123456")
	require.NoError(t, err)

	_, err = m.Login("alice", "wrongpassword")
	require.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	m := newManager(t, time.Hour)
	_, err := m.Register("alice", "pw123456")
	require.NoError(t, err)
	token, err := m.Login("alice", "pw123456")
	require.NoError(t, err)

	require.NoError(t, m.Logout(token))

	_, err = m.Validate(token)
	require.ErrorIs(t, err, apperr.ErrInvalidSession)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	m := newManager(t, time.Millisecond)
	_, err := m.Register("alice", "pw123456")
	require.NoError(t, err)
	token, err := m.Login("alice", "pw123456")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = m.Validate(token)
	require.ErrorIs(t, err, apperr.ErrInvalidSession)
}
