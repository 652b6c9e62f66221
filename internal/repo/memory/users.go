package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/sprintsync/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) emailTakenLocked(email, exceptID string) bool {
	for _, u := range r.s.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = user.NormalizeEmail(u.Email)
	if r.emailTakenLocked(u.Email, "") {
		return user.User{}, user.ErrEmailTaken
	}

	r.s.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = user.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, skip, limit int) ([]user.User, int, error) {
	r.s.mu.RLock()
	all := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, u)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return page(all, skip, limit), len(all), nil
}

func (r *UsersRepo) Update(_ context.Context, id string, upd user.Update) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if upd.Email != nil {
		email := user.NormalizeEmail(*upd.Email)
		if r.emailTakenLocked(email, id) {
			return user.User{}, user.ErrEmailTaken
		}
		u.Email = email
	}
	if upd.IsAdmin != nil {
		u.IsAdmin = *upd.IsAdmin
	}
	if upd.Description != nil {
		u.Description = ptr(*upd.Description)
	}
	u.UpdatedAt = time.Now().UTC()

	r.s.users[id] = u
	return u, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

// Delete mirrors the foreign keys: owned projects, created tasks and
// memberships are removed, assigned tasks become unassigned.
func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.s.users, id)

	for pid, p := range r.s.projects {
		if p.OwnerID == id {
			r.s.deleteProjectLocked(pid)
		}
	}
	for k := range r.s.members {
		if k.userID == id {
			delete(r.s.members, k)
		}
	}
	for tid, t := range r.s.tasks {
		switch {
		case t.UserID == id:
			delete(r.s.tasks, tid)
		case t.IsAssignee(id):
			t.OwnerID = nil
			r.s.tasks[tid] = t
		}
	}
	return nil
}

func (r *UsersRepo) Stats(_ context.Context) (user.Stats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var st user.Stats
	for _, u := range r.s.users {
		st.TotalUsers++
		if u.IsAdmin {
			st.AdminUsers++
		}
	}
	st.RegularUsers = st.TotalUsers - st.AdminUsers
	return st, nil
}
