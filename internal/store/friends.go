package store

import (
	"database/sql"
	"errors"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
)

// FriendRequestExists reports whether a pending request already links
// the two users in either direction, and whether they are already
// friends (an accepted row in either direction).
func (s *Store) FriendRequestExists(fromID, toID string) (pending, accepted bool, err error) {
	rows, err := s.query(`SELECT status FROM friend_requests
		WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)`,
		fromID, toID, toID, fromID)
	if err != nil {
		return false, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return false, false, err
		}
		switch models.FriendStatus(status) {
		case models.FriendPending:
			pending = true
		case models.FriendAccepted:
			accepted = true
		}
	}
	return pending, accepted, rows.Err()
}

// CreateFriendRequest inserts a pending proposal from fromID to toID.
func (s *Store) CreateFriendRequest(fromID, toID, message string) error {
	_, err := s.exec(`INSERT INTO friend_requests (from_user_id, to_user_id, message, status, created_at)
		VALUES (?, ?, ?, ?, ?)`, fromID, toID, message, string(models.FriendPending), now())
	return err
}

// PendingFriendRequestTo finds the pending request addressed to toID
// from fromID, used by accept/reject to locate the row being resolved.
func (s *Store) PendingFriendRequestTo(fromID, toID string) (models.FriendRequest, error) {
	var r models.FriendRequest
	err := s.queryRow(`SELECT id, from_user_id, to_user_id, message, status, created_at
		FROM friend_requests WHERE from_user_id = ? AND to_user_id = ? AND status = ?`,
		fromID, toID, string(models.FriendPending)).
		Scan(&r.ID, &r.FromUserID, &r.ToUserID, &r.Message, &r.Status, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, apperr.ErrNoSuchRequest
	}
	return r, err
}

// ResolveFriendRequest sets a pending request's final status.
func (s *Store) ResolveFriendRequest(id int64, status models.FriendStatus) error {
	_, err := s.exec(`UPDATE friend_requests SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// ReceivedFriendRequests lists the pending requests addressed to userID.
func (s *Store) ReceivedFriendRequests(userID string) ([]models.FriendRequest, error) {
	return s.listFriendRequests(`to_user_id = ? AND status = ?`, userID, string(models.FriendPending))
}

// SentFriendRequests lists the pending requests userID has sent.
func (s *Store) SentFriendRequests(userID string) ([]models.FriendRequest, error) {
	return s.listFriendRequests(`from_user_id = ? AND status = ?`, userID, string(models.FriendPending))
}

func (s *Store) listFriendRequests(where string, args ...any) ([]models.FriendRequest, error) {
	rows, err := s.query(`SELECT id, from_user_id, to_user_id, message, status, created_at
		FROM friend_requests WHERE `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.FromUserID, &r.ToUserID, &r.Message, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFriends returns the counterpart users (id and username) of every accepted
// friend request touching userID, in either direction.
func (s *Store) ListFriends(userID string) ([]models.User, error) {
	rows, err := s.query(`SELECT u.id, u.username FROM users u
		WHERE u.id IN (
			SELECT to_user_id FROM friend_requests WHERE from_user_id = ? AND status = ?
			UNION
			SELECT from_user_id FROM friend_requests WHERE to_user_id = ? AND status = ?
		) ORDER BY u.username`,
		userID, string(models.FriendAccepted), userID, string(models.FriendAccepted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AreFriends reports whether two users hold an accepted friendship.
func (s *Store) AreFriends(userA, userB string) (bool, error) {
	var n int
	err := s.queryRow(`SELECT COUNT(*) FROM friend_requests
		WHERE status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))`,
		string(models.FriendAccepted), userA, userB, userB, userA).Scan(&n)
	return n > 0, err
}
