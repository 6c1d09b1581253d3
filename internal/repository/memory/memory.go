// Package memory provides mutex-guarded in-process repositories for
// development runs and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Store holds users, posts and contacts behind one lock. Each method is a
// single atomic document write, matching the per-document guarantees of the
// Postgres backend.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[uuid.UUID]*model.User
	posts    map[uuid.UUID]*model.Post
	contacts map[uuid.UUID]*model.Contact
	postSeq  int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:      time.Now,
		users:    map[uuid.UUID]*model.User{},
		posts:    map[uuid.UUID]*model.Post{},
		contacts: map[uuid.UUID]*model.Contact{},
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Users returns a UserRepository view of the store.
func (s *Store) Users() *Users { return &Users{s} }

// Posts returns a PostRepository view of the store.
func (s *Store) Posts() *Posts { return &Posts{s} }

// Contacts returns a ContactRepository view of the store.
func (s *Store) Contacts() *Contacts { return &Contacts{s} }

func notFound(entity string) error { return errs.New(errs.KindNotFound, entity+" not found") }

func copyUser(u *model.User) *model.User {
	c := *u
	c.PwdHash = slices.Clone(u.PwdHash)
	c.Salt = slices.Clone(u.Salt)
	if u.LastLoginAttempt != nil {
		t := *u.LastLoginAttempt
		c.LastLoginAttempt = &t
	}
	if u.LastActiveAt != nil {
		t := *u.LastActiveAt
		c.LastActiveAt = &t
	}
	return &c
}

func copyPost(p *model.Post) *model.Post {
	c := *p
	c.FileURLs = append([]string{}, p.FileURLs...)
	c.ViewLogs = slices.Clone(p.ViewLogs)
	return &c
}

// Users implements repository.UserRepository.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return errs.New(errs.KindAlreadyExists, "username or email already registered")
		}
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return copyUser(u), nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, notFound("user")
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return notFound("user")
	}
	next := copyUser(cur)
	next.IsActive = u.IsActive
	next.IsLoggedIn = u.IsLoggedIn
	next.FailedLoginAttempts = u.FailedLoginAttempts
	upd := copyUser(u)
	next.LastLoginAttempt = upd.LastLoginAttempt
	next.LastActiveAt = upd.LastActiveAt
	next.UpdatedAt = r.s.now()
	r.s.users[u.ID] = next
	return nil
}

func (r *Users) RecordFailure(_ context.Context, id uuid.UUID, at time.Time) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, false, notFound("user")
	}
	u.FailedLoginAttempts++
	u.IsActive = u.IsActive && u.FailedLoginAttempts < model.MaxFailedLogins
	t := at
	u.LastLoginAttempt = &t
	u.UpdatedAt = r.s.now()
	return u.FailedLoginAttempts, u.IsActive, nil
}

func (r *Users) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || !u.IsActive {
		return false, nil
	}
	attempt, active := at, at
	u.FailedLoginAttempts = 0
	u.IsLoggedIn = true
	u.LastLoginAttempt = &attempt
	u.LastActiveAt = &active
	u.UpdatedAt = r.s.now()
	return true, nil
}

func (r *Users) TouchActivity(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return notFound("user")
	}
	t := at
	u.LastActiveAt = &t
	return nil
}

func (r *Users) SetLoggedIn(_ context.Context, id uuid.UUID, loggedIn bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return notFound("user")
	}
	u.IsLoggedIn = loggedIn
	return nil
}

func (r *Users) SetIPAddress(_ context.Context, id uuid.UUID, ip string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return notFound("user")
	}
	u.IPAddress = ip
	return nil
}

func (r *Users) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return notFound("user")
	}
	delete(r.s.users, id)
	return nil
}

// Posts implements repository.PostRepository.
type Posts struct{ s *Store }

func (r *Posts) List(context.Context) ([]model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, *copyPost(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Create assigns the next number under the store lock, so concurrent
// creations never collide and numbers of deleted posts are not reused.
func (r *Posts) Create(_ context.Context, p *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.postSeq++
	now := r.s.now()
	p.Number = r.s.postSeq
	p.Views = 0
	p.ViewLogs = nil
	p.CreatedAt, p.UpdatedAt = now, now
	if p.FileURLs == nil {
		p.FileURLs = []string{}
	}
	r.s.posts[p.ID] = copyPost(p)
	return nil
}

func (r *Posts) Get(_ context.Context, id uuid.UUID) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, notFound("post")
	}
	return copyPost(p), nil
}

func (r *Posts) Update(_ context.Context, id uuid.UUID, in model.PostInput, at time.Time) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, notFound("post")
	}
	p.Title = in.Title
	p.Content = in.Content
	p.FileURLs = append([]string{}, in.FileURLs...)
	p.UpdatedAt = at
	return copyPost(p), nil
}

func (r *Posts) RecordView(_ context.Context, id uuid.UUID, entry model.ViewLog, keepAfter time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return notFound("post")
	}
	kept := make([]model.ViewLog, 0, len(p.ViewLogs)+1)
	for _, l := range p.ViewLogs {
		if l.Timestamp.After(keepAfter) {
			kept = append(kept, l)
		}
	}
	p.Views++
	p.ViewLogs = append(kept, entry)
	return nil
}

func (r *Posts) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return notFound("post")
	}
	delete(r.s.posts, id)
	return nil
}

// Contacts implements repository.ContactRepository.
type Contacts struct{ s *Store }

func (r *Contacts) List(context.Context) ([]model.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Contact, 0, len(r.s.contacts))
	for _, c := range r.s.contacts {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Contacts) Get(_ context.Context, id uuid.UUID) (*model.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, notFound("contact")
	}
	cp := *c
	return &cp, nil
}

func (r *Contacts) Create(_ context.Context, c *model.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.s.contacts[c.ID] = &cp
	return nil
}

func (r *Contacts) UpdateStatus(_ context.Context, id uuid.UUID, status model.ContactStatus) (*model.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, notFound("contact")
	}
	c.Status = status
	c.UpdatedAt = r.s.now()
	cp := *c
	return &cp, nil
}

func (r *Contacts) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[id]; !ok {
		return notFound("contact")
	}
	delete(r.s.contacts, id)
	return nil
}
