package store

import (
	"database/sql"
	"errors"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
)

// CreateGroup inserts a new group and seats its creator as the first
// member in one transaction.
func (s *Store) CreateGroup(id, name, createdBy string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t := now()
	if _, err := tx.Exec(s.rebind(`INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`),
		id, name, createdBy, t); err != nil {
		return err
	}
	if _, err := tx.Exec(s.rebind(`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`),
		id, createdBy, t); err != nil {
		return err
	}
	return tx.Commit()
}

// GroupByID loads a group by its primary key.
func (s *Store) GroupByID(id string) (models.Group, error) {
	var g models.Group
	err := s.queryRow(`SELECT id, name, created_by, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, apperr.ErrGroupNotFound
	}
	return g, err
}

// IsGroupMember reports whether userID belongs to groupID.
func (s *Store) IsGroupMember(groupID, userID string) (bool, error) {
	var n int
	err := s.queryRow(`SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID).Scan(&n)
	return n > 0, err
}

// AddGroupMember seats userID in groupID.
func (s *Store) AddGroupMember(groupID, userID string) error {
	_, err := s.exec(`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`,
		groupID, userID, now())
	return err
}

// RemoveGroupMember removes userID from groupID's roster.
func (s *Store) RemoveGroupMember(groupID, userID string) error {
	_, err := s.exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	return err
}

// GroupMemberIDs lists every member's user ID, used by the realtime
// hub to filter group fan-out down to actual members.
func (s *Store) GroupMemberIDs(groupID string) ([]string, error) {
	rows, err := s.query(`SELECT user_id FROM group_members WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GroupsForUser lists every group userID belongs to.
func (s *Store) GroupsForUser(userID string) ([]models.Group, error) {
	rows, err := s.query(`SELECT g.id, g.name, g.created_by, g.created_at
		FROM groups g JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ? ORDER BY g.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateGroupInvite inserts a pending invite to join a group.
func (s *Store) CreateGroupInvite(groupID, fromUserID, toUserID string) error {
	_, err := s.exec(`INSERT INTO group_invites (group_id, from_user_id, to_user_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)`, groupID, fromUserID, toUserID, string(models.InvitePending), now())
	return err
}

// PendingGroupInvite locates the pending invite for a (group, invitee)
// pair, used by GroupService.Invite to refuse a second pending invite.
func (s *Store) PendingGroupInvite(groupID, toUserID string) (models.GroupInvite, error) {
	var inv models.GroupInvite
	err := s.queryRow(`SELECT id, group_id, from_user_id, to_user_id, status, created_at
		FROM group_invites WHERE group_id = ? AND to_user_id = ? AND status = ?`,
		groupID, toUserID, string(models.InvitePending)).
		Scan(&inv.ID, &inv.GroupID, &inv.FromUserID, &inv.ToUserID, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupInvite{}, apperr.ErrNoSuchRequest
	}
	return inv, err
}

// ResolveGroupInvite sets a pending invite's final status.
func (s *Store) ResolveGroupInvite(id int64, status models.InviteStatus) error {
	_, err := s.exec(`UPDATE group_invites SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// AcceptGroupInvite resolves inviteID to accepted and seats userID as
// a group member in a single transaction, so the invite status and
// the membership row never observably diverge.
func (s *Store) AcceptGroupInvite(inviteID int64, groupID, userID string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`UPDATE group_invites SET status = ? WHERE id = ?`),
		string(models.InviteAccepted), inviteID); err != nil {
		return err
	}
	if _, err := tx.Exec(s.rebind(`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`),
		groupID, userID, now()); err != nil {
		return err
	}
	return tx.Commit()
}

// MyGroupInvites lists the pending invites addressed to userID.
func (s *Store) MyGroupInvites(userID string) ([]models.GroupInvite, error) {
	rows, err := s.query(`SELECT id, group_id, from_user_id, to_user_id, status, created_at
		FROM group_invites WHERE to_user_id = ? AND status = ? ORDER BY created_at`,
		userID, string(models.InvitePending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GroupInvite
	for rows.Next() {
		var inv models.GroupInvite
		if err := rows.Scan(&inv.ID, &inv.GroupID, &inv.FromUserID, &inv.ToUserID, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
