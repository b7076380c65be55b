package store

import (
	"database/sql"
	"errors"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
)

// CreateUser inserts the account row and its password hash in one
// transaction across the users / auth_credentials tables.
func (s *Store) CreateUser(id, username, passwordHash string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`INSERT INTO users (id, username, is_online, created_at) VALUES (?, ?, 0, ?)`),
		id, username, now()); err != nil {
		return err
	}
	if _, err := tx.Exec(s.rebind(`INSERT INTO auth_credentials (user_id, password_hash) VALUES (?, ?)`),
		id, passwordHash); err != nil {
		return err
	}
	return tx.Commit()
}

// UsernameExists reports whether username is already taken.
func (s *Store) UsernameExists(username string) (bool, error) {
	var n int
	err := s.queryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	return n > 0, err
}

// UserByUsername looks up a user by their unique handle, alongside
// their stored password hash for login verification.
func (s *Store) UserByUsername(username string) (models.User, string, error) {
	var u models.User
	var hash string
	var online int
	err := s.queryRow(`SELECT u.id, u.username, u.is_online, a.password_hash
		FROM users u JOIN auth_credentials a ON a.user_id = u.id
		WHERE u.username = ?`, username).Scan(&u.ID, &u.Username, &online, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", apperr.ErrUserNotFound
	}
	u.IsOnline = online != 0
	return u, hash, err
}

// UserByID loads a user by their primary key.
func (s *Store) UserByID(id string) (models.User, error) {
	var u models.User
	var online int
	err := s.queryRow(`SELECT id, username, is_online FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &online)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	u.IsOnline = online != 0
	return u, err
}

// SetUserOnline flips the presence flag, toggled by login and logout.
// The session reaper clears presence through ClearStaleOnlineUsers.
func (s *Store) SetUserOnline(userID string, online bool) error {
	v := 0
	if online {
		v = 1
	}
	_, err := s.exec(`UPDATE users SET is_online = ? WHERE id = ?`, v, userID)
	return err
}

// UserHasLiveSessions reports whether userID still holds at least one
// unexpired session, used to decide whether logout should also clear
// the presence flag.
func (s *Store) UserHasLiveSessions(userID string) (bool, error) {
	var n int
	err := s.queryRow(`SELECT COUNT(*) FROM sessions WHERE user_id = ? AND expires_at > ?`,
		userID, now()).Scan(&n)
	return n > 0, err
}

// ListAllUsers returns every registered account, used by the
// directory's list_all operation.
func (s *Store) ListAllUsers() ([]models.User, error) {
	rows, err := s.query(`SELECT id, username, is_online FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		var online int
		if err := rows.Scan(&u.ID, &u.Username, &online); err != nil {
			return nil, err
		}
		u.IsOnline = online != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListOnlineUsers returns every user with the presence flag set.
func (s *Store) ListOnlineUsers() ([]models.User, error) {
	rows, err := s.query(`SELECT id, username FROM users WHERE is_online = 1 ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u := models.User{IsOnline: true}
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ClearStaleOnlineUsers clears the presence flag for every user who
// has zero live sessions but is still flagged online, used by the
// reaper after it deletes expired sessions.
func (s *Store) ClearStaleOnlineUsers() (int64, error) {
	res, err := s.exec(`UPDATE users SET is_online = 0
		WHERE is_online = 1 AND id NOT IN (
			SELECT DISTINCT user_id FROM sessions WHERE expires_at > ?
		)`, now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
