// Package friends implements FriendGraph: the friend-request
// lifecycle (pending -> accepted/rejected) and mutual-friendship
// enumeration, following the same check-then-insert membership
// pattern internal/groups uses, generalized from group rows to the
// symmetric friend_requests table.
package friends

import (
	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
	"github.com/ruggine/chatcore/internal/store"
)

// Graph is the FriendGraph: it owns the friend-request lifecycle.
type Graph struct {
	store *store.Store
}

// New builds a Graph backed by st.
func New(st *store.Store) *Graph {
	return &Graph{store: st}
}

// SendRequest proposes a friendship from fromUserID to the user named
// toUsername.
func (g *Graph) SendRequest(fromUserID, toUsername, message string) error {
	to, _, err := g.store.UserByUsername(toUsername)
	if err != nil {
		return apperr.ErrUserNotFound
	}
	if to.ID == fromUserID {
		return apperr.ErrSelfNotAllowed
	}

	pending, accepted, err := g.store.FriendRequestExists(fromUserID, to.ID)
	if err != nil {
		return err
	}
	if accepted {
		return apperr.ErrAlreadyFriends
	}
	if pending {
		return apperr.ErrAlreadyPending
	}

	return g.store.CreateFriendRequest(fromUserID, to.ID, message)
}

// Accept resolves the pending request sent by fromUsername to actor,
// marking it accepted.
func (g *Graph) Accept(actorID, fromUsername string) error {
	return g.resolve(actorID, fromUsername, models.FriendAccepted)
}

// Reject resolves the pending request sent by fromUsername to actor,
// marking it rejected.
func (g *Graph) Reject(actorID, fromUsername string) error {
	return g.resolve(actorID, fromUsername, models.FriendRejected)
}

func (g *Graph) resolve(actorID, fromUsername string, status models.FriendStatus) error {
	from, _, err := g.store.UserByUsername(fromUsername)
	if err != nil {
		return apperr.ErrUserNotFound
	}
	req, err := g.store.PendingFriendRequestTo(from.ID, actorID)
	if err != nil {
		return err
	}
	return g.store.ResolveFriendRequest(req.ID, status)
}

// ListFriends returns every user accepted into a mutual friendship
// with actorID.
func (g *Graph) ListFriends(actorID string) ([]models.User, error) {
	return g.store.ListFriends(actorID)
}

// ReceivedRequests lists pending requests addressed to actorID.
func (g *Graph) ReceivedRequests(actorID string) ([]models.FriendRequest, error) {
	return g.store.ReceivedFriendRequests(actorID)
}

// SentRequests lists pending requests actorID has sent.
func (g *Graph) SentRequests(actorID string) ([]models.FriendRequest, error) {
	return g.store.SentFriendRequests(actorID)
}

// AreFriends reports whether two users hold an accepted friendship.
func (g *Graph) AreFriends(userA, userB string) (bool, error) {
	return g.store.AreFriends(userA, userB)
}
