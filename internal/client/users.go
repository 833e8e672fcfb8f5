package client

import (
	"context"
	"sync"

	"chatpalace/internal/store"
)

// userAction is the closed set of mutations a UserCache accepts.
type userAction interface{ isUserAction() }

type setUsers struct{ users []store.User }
type addUser struct{ user store.User }
type removeUser struct{ id string }
type resetUsers struct{}

func (setUsers) isUserAction()   {}
func (addUser) isUserAction()    {}
func (removeUser) isUserAction() {}
func (resetUsers) isUserAction() {}

// UserCache is a request-driven cache of the user directory. State
// changes only through the action union; a failed fetch leaves it
// untouched.
type UserCache struct {
	mu     sync.RWMutex
	users  []store.User
	client *Client
}

func NewUserCache(c *Client) *UserCache {
	return &UserCache{client: c}
}

func (u *UserCache) apply(a userAction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch act := a.(type) {
	case setUsers:
		u.users = act.users
	case addUser:
		u.users = append(u.users, act.user)
	case removeUser:
		filtered := u.users[:0]
		for _, user := range u.users {
			if user.ID != act.id {
				filtered = append(filtered, user)
			}
		}
		u.users = filtered
	case resetUsers:
		u.users = nil
	}
}

// Fetch re-synchronizes the cache with the server. Last fetch wins.
func (u *UserCache) Fetch(ctx context.Context) error {
	users, err := u.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	u.apply(setUsers{users: users})
	return nil
}

// Register creates the account on the server and appends it to the
// cache on success.
func (u *UserCache) Register(ctx context.Context, username, profileImage, password, passwordRepeat string) (*store.User, error) {
	user, err := u.client.Register(ctx, username, profileImage, password, passwordRepeat)
	if err != nil {
		return nil, err
	}
	u.apply(addUser{user: *user})
	return user, nil
}

func (u *UserCache) Remove(id string) {
	u.apply(removeUser{id: id})
}

func (u *UserCache) Reset() {
	u.apply(resetUsers{})
}

// Snapshot returns a copy of the cached users in order.
func (u *UserCache) Snapshot() []store.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]store.User, len(u.users))
	copy(out, u.users)
	return out
}

// Get returns the cached user with the given ID, if present.
func (u *UserCache) Get(id string) (store.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, user := range u.users {
		if user.ID == id {
			return user, true
		}
	}
	return store.User{}, false
}

func (u *UserCache) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.users)
}
