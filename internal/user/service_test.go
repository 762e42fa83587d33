package user_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// --- Mock Store ---
type MockStore struct {
	mock.Mock
}

var _ user.Store = (*MockStore)(nil)

func (m *MockStore) Create(ctx context.Context, in *user.NewUser) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStore) GetByLogin(ctx context.Context, identifier string) (*user.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockStore) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, search string, limit, offset int) ([]*user.User, int, error) {
	args := m.Called(ctx, search, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*user.User), args.Int(1), args.Error(2)
}

func newUser(name string) *user.User {
	return &user.User{ID: uuid.New(), Username: name, Email: name + "@example.com", IsActive: true}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	in := &user.NewUser{Email: "alice@example.com", Username: "alice", PasswordHash: "hash"}

	t.Run("success", func(t *testing.T) {
		store := new(MockStore)
		store.On("EmailExists", ctx, in.Email).Return(false, nil)
		store.On("UsernameExists", ctx, in.Username).Return(false, nil)
		store.On("Create", ctx, in).Return(newUser("alice"), nil)

		u, err := user.NewService(store).Create(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		store.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		store := new(MockStore)
		store.On("EmailExists", ctx, in.Email).Return(true, nil)

		_, err := user.NewService(store).Create(ctx, in)

		assert.True(t, apperrors.IsConflict(err))
		assert.Contains(t, err.Error(), "already registered")
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		store := new(MockStore)
		store.On("EmailExists", ctx, in.Email).Return(false, nil)
		store.On("UsernameExists", ctx, in.Username).Return(true, nil)

		_, err := user.NewService(store).Create(ctx, in)

		assert.True(t, apperrors.IsConflict(err))
		assert.Contains(t, err.Error(), "already taken")
	})

	t.Run("unique violation race", func(t *testing.T) {
		store := new(MockStore)
		store.On("EmailExists", ctx, in.Email).Return(false, nil)
		store.On("UsernameExists", ctx, in.Username).Return(false, nil)
		store.On("Create", ctx, in).Return(nil, fmt.Errorf("%w: users_email_key", user.ErrDuplicate))

		_, err := user.NewService(store).Create(ctx, in)

		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	alice := newUser("alice")

	store := new(MockStore)
	store.On("GetByID", ctx, alice.ID).Return(alice, nil)
	missing := uuid.New()
	store.On("GetByID", ctx, missing).Return(nil, nil)
	broken := uuid.New()
	store.On("GetByID", ctx, broken).Return(nil, errors.New("db down"))
	svc := user.NewService(store)

	got, err := svc.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = svc.GetByID(ctx, missing)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetByID(ctx, broken)
	assert.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
}

func TestService_ActiveStatus(t *testing.T) {
	ctx := context.Background()
	alice := newUser("alice")
	bob := newUser("bob")
	bob.IsActive = false
	missing := uuid.New()
	broken := uuid.New()

	store := new(MockStore)
	store.On("GetByID", ctx, alice.ID).Return(alice, nil)
	store.On("GetByID", ctx, bob.ID).Return(bob, nil)
	store.On("GetByID", ctx, missing).Return(nil, nil)
	store.On("GetByID", ctx, broken).Return(nil, errors.New("db down"))
	svc := user.NewService(store)

	found, active, err := svc.ActiveStatus(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, active)

	found, active, err = svc.ActiveStatus(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, active)

	found, _, err = svc.ActiveStatus(ctx, missing)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = svc.ActiveStatus(ctx, broken)
	assert.Error(t, err)
}

func TestService_GetByIDs(t *testing.T) {
	ctx := context.Background()
	alice, bob := newUser("alice"), newUser("bob")
	ids := []uuid.UUID{alice.ID, bob.ID, uuid.New()}

	store := new(MockStore)
	store.On("GetByIDs", ctx, ids).Return([]*user.User{alice, bob}, nil)

	byID, err := user.NewService(store).GetByIDs(ctx, ids)

	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, bob, byID[bob.ID])
}

func TestService_ListClampsPaging(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("List", ctx, "ali", 100, 100).Return([]*user.User{newUser("alice")}, 101, nil)

	users, total, err := user.NewService(store).List(ctx, "ali", 2, 500)

	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 101, total)
	store.AssertExpectations(t)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 20},
		{-3, 5, 1, 5},
		{4, 100, 4, 100},
		{1, 101, 1, 100},
	}

	for _, tt := range tests {
		page, size := user.Paginate(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}
