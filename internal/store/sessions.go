package store

import (
	"database/sql"
	"errors"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
)

// CreateSession inserts a freshly minted login token into a durable
// table so the session survives a process restart and can be reaped
// on expiry.
func (s *Store) CreateSession(token, userID string, ttlSeconds int64) error {
	t := now()
	_, err := s.exec(`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, t, t+ttlSeconds)
	if err != nil {
		return err
	}
	return s.recordSessionEvent(userID, models.SessionEventLogin)
}

// SessionByToken returns the session row for token, or
// apperr.ErrInvalidSession if it does not exist or has expired.
func (s *Store) SessionByToken(token string) (models.Session, error) {
	var sess models.Session
	err := s.queryRow(`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, apperr.ErrInvalidSession
	}
	if err != nil {
		return models.Session{}, err
	}
	if sess.ExpiresAt <= now() {
		return models.Session{}, apperr.ErrInvalidSession
	}
	return sess, nil
}

// DeleteSession invalidates a single token, as on explicit logout.
func (s *Store) DeleteSession(token, userID string) error {
	if _, err := s.exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return err
	}
	return s.recordSessionEvent(userID, models.SessionEventLogout)
}

// DeleteExpiredSessions removes every session past its expiry,
// appends an "expired" SessionEvent for each affected user, and
// returns how many rows were reaped. Grounded on original_source's
// hourly cleanup_expired_sessions loop in server/main.rs.
func (s *Store) DeleteExpiredSessions() (int64, error) {
	t := now()

	rows, err := s.query(`SELECT DISTINCT user_id FROM sessions WHERE expires_at <= ?`, t)
	if err != nil {
		return 0, err
	}
	var expiredUsers []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return 0, err
		}
		expiredUsers = append(expiredUsers, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	res, err := s.exec(`DELETE FROM sessions WHERE expires_at <= ?`, t)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	for _, userID := range expiredUsers {
		if err := s.recordSessionEvent(userID, models.SessionEventExpired); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *Store) recordSessionEvent(userID string, eventType models.SessionEventType) error {
	_, err := s.exec(`INSERT INTO session_events (user_id, event_type, occurred_at) VALUES (?, ?, ?)`,
		userID, string(eventType), now())
	return err
}
