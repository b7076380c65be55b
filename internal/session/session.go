// Package session implements registration, login, token validation,
// logout and the background reaper, backed by the durable store.Store
// so sessions survive a process restart, grounded on original_source's
// hourly cleanup_expired_sessions loop in src/server/main.rs.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/store"
	"github.com/ruggine/chatcore/pkg/password"
	"github.com/ruggine/chatcore/pkg/usernamecheck"
)

// tokenBytes gives a session token at least 128 bits of entropy.
const tokenBytes = 32

// Manager is the SessionManager: it owns registration, login,
// validation, logout and session expiry.
type Manager struct {
	store *store.Store
	ttl   time.Duration

	reapMu sync.Mutex
	stopCh chan struct{}
}

// New builds a Manager backed by st, issuing sessions with lifetime ttl.
func New(st *store.Store, ttl time.Duration) *Manager {
	return &Manager{store: st, ttl: ttl}
}

// Register creates a new account. Returns apperr.ErrUsernameTaken if
// the handle is already registered.
func (m *Manager) Register(username, plaintextPassword string) (string, error) {
	if err := usernamecheck.Validate(username); err != nil {
		return "", apperr.ErrWeakCredential
	}
	if len(plaintextPassword) < 6 {
		return "", apperr.ErrWeakCredential
	}

	taken, err := m.store.UsernameExists(username)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.ErrUsernameTaken
	}

	hash, err := password.Hash(plaintextPassword)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	if err := m.store.CreateUser(id, username, hash); err != nil {
		return "", apperr.ErrUsernameTaken
	}
	return id, nil
}

// Login verifies credentials and issues a fresh session token.
func (m *Manager) Login(username, plaintextPassword string) (string, error) {
	user, hash, err := m.store.UserByUsername(username)
	if err != nil {
		return "", apperr.ErrInvalidCredential
	}

	ok, err := password.Verify(plaintextPassword, hash)
	if err != nil || !ok {
		return "", apperr.ErrInvalidCredential
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := m.store.CreateSession(token, user.ID, int64(m.ttl.Seconds())); err != nil {
		return "", err
	}
	if err := m.store.SetUserOnline(user.ID, true); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a session token to its owning user id, or
// apperr.ErrInvalidSession if the token is missing or expired.
func (m *Manager) Validate(token string) (string, error) {
	sess, err := m.store.SessionByToken(token)
	if err != nil {
		return "", apperr.ErrInvalidSession
	}
	return sess.UserID, nil
}

// Logout destroys a single session and, if the owning user has no
// other live sessions, clears their presence flag.
func (m *Manager) Logout(token string) error {
	sess, err := m.store.SessionByToken(token)
	if err != nil {
		return apperr.ErrInvalidSession
	}
	if err := m.store.DeleteSession(token, sess.UserID); err != nil {
		return err
	}
	return m.clearPresenceIfIdle(sess.UserID)
}

func (m *Manager) clearPresenceIfIdle(userID string) error {
	live, err := m.store.UserHasLiveSessions(userID)
	if err != nil {
		return err
	}
	if live {
		return nil
	}
	return m.store.SetUserOnline(userID, false)
}

// reap deletes every expired session and clears presence for any user
// left with zero live sessions. Concurrent invocations are serialized
// by reapMu so overlapping ticks never race each other.
func (m *Manager) reap() {
	m.reapMu.Lock()
	defer m.reapMu.Unlock()

	n, err := m.store.DeleteExpiredSessions()
	if err != nil {
		log.Printf("session: reap: delete expired sessions: %v", err)
		return
	}
	if n == 0 {
		return
	}
	if _, err := m.store.ClearStaleOnlineUsers(); err != nil {
		log.Printf("session: reap: clear stale presence: %v", err)
		return
	}
	log.Printf("session: reaper cleared %d expired session(s)", n)
}

// StartReaper launches the background reaper goroutine, ticking every
// interval until Stop is called. Calling it twice without an
// intervening Stop is a programming error.
func (m *Manager) StartReaper(interval time.Duration) {
	m.stopCh = make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.reap()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop cancels the reaper goroutine started by StartReaper.
func (m *Manager) Stop() {
	if m.stopCh != nil {
		close(m.stopCh)
	}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}
