// Package directory implements UserDirectory: presence and user
// lookup over the shared store.Store.
package directory

import (
	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
	"github.com/ruggine/chatcore/internal/store"
)

// Directory answers presence and lookup queries over registered users.
type Directory struct {
	store *store.Store
}

// New builds a Directory backed by st.
func New(st *store.Store) *Directory {
	return &Directory{store: st}
}

// ListOnline returns every user currently flagged online.
func (d *Directory) ListOnline() ([]models.User, error) {
	return d.store.ListOnlineUsers()
}

// ListAll returns every registered user, optionally excluding self.
func (d *Directory) ListAll(excludeUserID string) ([]models.User, error) {
	all, err := d.store.ListAllUsers()
	if err != nil {
		return nil, err
	}
	if excludeUserID == "" {
		return all, nil
	}

	out := make([]models.User, 0, len(all))
	for _, u := range all {
		if u.ID != excludeUserID {
			out = append(out, u)
		}
	}
	return out, nil
}

// FindByUsername resolves a handle to its user record, or
// apperr.ErrUserNotFound if no such account exists.
func (d *Directory) FindByUsername(username string) (models.User, error) {
	u, _, err := d.store.UserByUsername(username)
	if err != nil {
		return models.User{}, apperr.ErrUserNotFound
	}
	return u, nil
}

// FindByID resolves a user id to its user record.
func (d *Directory) FindByID(id string) (models.User, error) {
	return d.store.UserByID(id)
}
