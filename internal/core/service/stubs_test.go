package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/safedev/accessgate/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory repositories with the same conditional-update semantics as the
// real stores.
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64

	findErr   error
	createErr error
	// beforeBind runs (unlocked) before BindHWID applies its condition.
	beforeBind func()
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.HWID != nil {
		h := *u.HWID
		clone.HWID = &h
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		clone.LastLogin = &t
	}
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	r.nextID++
	stored := cloneUser(user)
	stored.UID = r.nextID
	r.users[stored.UID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, uid int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *stubUserRepo) SetStatus(_ context.Context, uid int64, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (r *stubUserRepo) ResetHWID(_ context.Context, uid int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.HWID = nil
	return nil
}

func (r *stubUserRepo) BindHWID(_ context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	if r.beforeBind != nil {
		r.beforeBind()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok || u.HWID != nil || u.Status != domain.StatusActive {
		return false, nil
	}
	u.HWID = &hwid
	u.LastLogin = &at
	return true, nil
}

func (r *stubUserRepo) TouchLogin(_ context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok || u.HWID == nil || *u.HWID != hwid || u.Status != domain.StatusActive {
		return false, nil
	}
	u.LastLogin = &at
	return true, nil
}

type stubInviteRepo struct {
	mu      sync.Mutex
	invites map[string]*domain.Invite

	createErr error
	findErr   error
	// beforeMark runs under the lock just before the conditional flip.
	beforeMark func(inv *domain.Invite)
}

func newStubInviteRepo() *stubInviteRepo {
	return &stubInviteRepo{invites: make(map[string]*domain.Invite)}
}

func (r *stubInviteRepo) Create(_ context.Context, invite *domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.invites[invite.Code]; exists {
		return domain.ErrDuplicateInvite
	}
	clone := *invite
	r.invites[invite.Code] = &clone
	return nil
}

func (r *stubInviteRepo) FindByCode(_ context.Context, code string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	inv, ok := r.invites[code]
	if !ok {
		return nil, domain.ErrInvalidInviteCode
	}
	clone := *inv
	return &clone, nil
}

func (r *stubInviteRepo) MarkUsed(_ context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[code]
	if ok && r.beforeMark != nil {
		r.beforeMark(inv)
	}
	if !ok || inv.Used || inv.IsExpired(now) {
		return false, nil
	}
	inv.Used = true
	return true, nil
}

func (r *stubInviteRepo) Release(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invites[code]; ok {
		inv.Used = false
	}
	return nil
}

func (r *stubInviteRepo) List(_ context.Context) ([]*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Invite, 0, len(r.invites))
	for _, inv := range r.invites {
		clone := *inv
		out = append(out, &clone)
	}
	return out, nil
}

// fixedClock returns a clock pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
