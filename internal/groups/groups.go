// Package groups implements GroupService: creation, invite lifecycle,
// membership changes and membership queries, addressing groups by
// opaque ids rather than slugs.
package groups

import (
	"github.com/google/uuid"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
	"github.com/ruggine/chatcore/internal/store"
)

// Service is the GroupService: it owns group creation, invites and
// membership.
type Service struct {
	store *store.Store
}

// New builds a Service backed by st.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// CreateGroup atomically creates the group and seats owner as its
// founding member.
func (s *Service) CreateGroup(ownerID, name string) (string, error) {
	id := uuid.New().String()
	if err := s.store.CreateGroup(id, name, ownerID); err != nil {
		return "", err
	}
	return id, nil
}

// Invite proposes groupID membership to the user named
// inviteeUsername, on behalf of actorID, who must already belong to
// the group.
func (s *Service) Invite(actorID, groupID, inviteeUsername string) error {
	if _, err := s.store.GroupByID(groupID); err != nil {
		return err
	}
	isMember, err := s.store.IsGroupMember(groupID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotAMember
	}

	invitee, _, err := s.store.UserByUsername(inviteeUsername)
	if err != nil {
		return apperr.ErrUserNotFound
	}

	alreadyMember, err := s.store.IsGroupMember(groupID, invitee.ID)
	if err != nil {
		return err
	}
	if alreadyMember {
		return apperr.ErrAlreadyMember
	}

	if _, err := s.store.PendingGroupInvite(groupID, invitee.ID); err == nil {
		return apperr.ErrAlreadyPending
	}

	return s.store.CreateGroupInvite(groupID, actorID, invitee.ID)
}

// AcceptInvite resolves the invite so long as it targets actorID and
// is still pending, then transactionally seats actorID as a member.
func (s *Service) AcceptInvite(actorID string, inviteID int64) error {
	target, err := s.findPendingInvite(actorID, inviteID)
	if err != nil {
		return err
	}
	return s.store.AcceptGroupInvite(target.ID, target.GroupID, actorID)
}

// RejectInvite resolves the invite so long as it targets actorID and
// is still pending, without adding a membership row.
func (s *Service) RejectInvite(actorID string, inviteID int64) error {
	target, err := s.findPendingInvite(actorID, inviteID)
	if err != nil {
		return err
	}
	return s.store.ResolveGroupInvite(target.ID, models.InviteRejected)
}

func (s *Service) findPendingInvite(actorID string, inviteID int64) (*models.GroupInvite, error) {
	invites, err := s.store.MyGroupInvites(actorID)
	if err != nil {
		return nil, err
	}
	for i := range invites {
		if invites[i].ID == inviteID {
			return &invites[i], nil
		}
	}
	return nil, apperr.ErrNoSuchRequest
}

// MyInvites returns every pending invite addressed to actorID.
func (s *Service) MyInvites(actorID string) ([]models.GroupInvite, error) {
	return s.store.MyGroupInvites(actorID)
}

// MyGroups returns every group actorID belongs to.
func (s *Service) MyGroups(actorID string) ([]models.Group, error) {
	return s.store.GroupsForUser(actorID)
}

// Join seats actorID directly into groupID without an invite.
func (s *Service) Join(actorID, groupID string) error {
	if _, err := s.store.GroupByID(groupID); err != nil {
		return err
	}
	isMember, err := s.store.IsGroupMember(groupID, actorID)
	if err != nil {
		return err
	}
	if isMember {
		return apperr.ErrAlreadyMember
	}
	return s.store.AddGroupMember(groupID, actorID)
}

// Leave removes actorID from groupID's roster. A group left with no
// members is not deleted.
func (s *Service) Leave(actorID, groupID string) error {
	isMember, err := s.store.IsGroupMember(groupID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotAMember
	}
	return s.store.RemoveGroupMember(groupID, actorID)
}

// IsMember reports whether userID belongs to groupID.
func (s *Service) IsMember(groupID, userID string) (bool, error) {
	return s.store.IsGroupMember(groupID, userID)
}

// MemberIDs lists every member of groupID.
func (s *Service) MemberIDs(groupID string) ([]string, error) {
	return s.store.GroupMemberIDs(groupID)
}
