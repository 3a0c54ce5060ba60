package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

type Users struct{ store *Store }

func NewUsers(store *Store) *Users { return &Users{store: store} }

var _ repository.UserRepository = (*Users)(nil)

// emailTaken reports whether another row, deleted or not, owns email.
func (u *Users) emailTaken(email string, except uuid.UUID) bool {
	for _, existing := range u.store.t.users {
		if existing.ID != except && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (u *Users) live(id uuid.UUID) (domain.User, bool) {
	user, ok := u.store.t.users[id]
	if !ok || user.DeletedAt != nil {
		return domain.User{}, false
	}
	return user, true
}

func (u *Users) Create(ctx context.Context, user *domain.User) error {
	u.store.wlock(ctx)
	defer u.store.wunlock(ctx)
	if u.emailTaken(user.Email, user.ID) {
		return repository.ErrUserAlreadyExists
	}
	u.store.t.users[user.ID] = *user
	return nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.store.rlock(ctx)
	defer u.store.runlock(ctx)
	for _, user := range u.store.t.users {
		if user.Email == email && user.DeletedAt == nil {
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *Users) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u.store.rlock(ctx)
	defer u.store.runlock(ctx)
	user, ok := u.live(id)
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (u *Users) UpdateProfile(ctx context.Context, user *domain.User) error {
	u.store.wlock(ctx)
	defer u.store.wunlock(ctx)
	current, ok := u.live(user.ID)
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.emailTaken(user.Email, user.ID) {
		return repository.ErrUserAlreadyExists
	}
	current.Name, current.Email = user.Name, user.Email
	current.Phone, current.Address, current.City = user.Phone, user.Address, user.City
	current.State, current.PostalCode, current.Country = user.State, user.PostalCode, user.Country
	u.store.t.users[user.ID] = current
	return nil
}

func (u *Users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return u.mutate(ctx, id, func(user *domain.User) { user.PasswordHash = passwordHash })
}

func (u *Users) RecordFailedLogin(ctx context.Context, id uuid.UUID, lockThreshold int) (int, bool, error) {
	var (
		attempts int
		locked   bool
	)
	err := u.mutate(ctx, id, func(user *domain.User) {
		user.FailedLoginAttempts++
		user.IsLocked = user.IsLocked || user.FailedLoginAttempts >= lockThreshold
		attempts, locked = user.FailedLoginAttempts, user.IsLocked
	})
	return attempts, locked, err
}

func (u *Users) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return u.mutate(ctx, id, func(user *domain.User) {
		user.FailedLoginAttempts = 0
		user.IsLocked = false
		user.LastLogin = &at
	})
}

func (u *Users) Unlock(ctx context.Context, id uuid.UUID) error {
	return u.mutate(ctx, id, func(user *domain.User) {
		user.FailedLoginAttempts = 0
		user.IsLocked = false
	})
}

func (u *Users) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return u.mutate(ctx, id, func(user *domain.User) { user.DeletedAt = u.store.deletedAt() })
}

func (u *Users) List(ctx context.Context, search string, p repository.Pagination) ([]*domain.User, int, error) {
	u.store.rlock(ctx)
	defer u.store.runlock(ctx)

	matched := []*domain.User{}
	for _, user := range u.store.t.users {
		if user.DeletedAt != nil {
			continue
		}
		if search != "" && !containsFold(user.Name, search) && !containsFold(user.Email, search) {
			continue
		}
		matched = append(matched, &user)
	}
	slices.SortFunc(matched, func(a, b *domain.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(matched, p.Page, p.Limit), len(matched), nil
}

func (u *Users) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.User)) error {
	u.store.wlock(ctx)
	defer u.store.wunlock(ctx)
	user, ok := u.live(id)
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&user)
	u.store.t.users[id] = user
	return nil
}

type RefreshTokens struct{ store *Store }

func NewRefreshTokens(store *Store) *RefreshTokens { return &RefreshTokens{store: store} }

var _ repository.RefreshTokenRepository = (*RefreshTokens)(nil)

func (r *RefreshTokens) Replace(ctx context.Context, token *domain.RefreshToken) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	r.revoke(token.UserID)
	r.store.t.tokens[token.ID] = *token
	return nil
}

func (r *RefreshTokens) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, token := range r.store.t.tokens {
		if token.UserID == userID && !token.Revoked {
			return &token, nil
		}
	}
	return nil, repository.ErrRefreshTokenNotFound
}

func (r *RefreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	r.revoke(userID)
	return nil
}

func (r *RefreshTokens) revoke(userID uuid.UUID) {
	for id, token := range r.store.t.tokens {
		if token.UserID == userID && !token.Revoked {
			token.Revoked = true
			r.store.t.tokens[id] = token
		}
	}
}
