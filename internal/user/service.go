package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence contract the service depends on.
// *Repository is the Postgres implementation.
type Store interface {
	Create(ctx context.Context, in *NewUser) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByLogin(ctx context.Context, identifier string) (*User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, search string, limit, offset int) ([]*User, int, error)
}

// Service handles user business logic
type Service struct {
	repo Store
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, in *NewUser) (*User, error) {
	taken, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &apperrors.ConflictError{Message: fmt.Sprintf("Email '%s' is already registered", in.Email)}
	}

	taken, err = s.repo.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &apperrors.ConflictError{Message: fmt.Sprintf("Username '%s' is already taken", in.Username)}
	}

	u, err := s.repo.Create(ctx, in)
	if errors.Is(err, ErrDuplicate) {
		// lost a race with a concurrent registration
		return nil, &apperrors.ConflictError{Message: "Email or username is already registered"}
	}
	return u, err
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &apperrors.NotFoundError{Resource: "User", ID: id.String()}
	}
	return u, nil
}

// ActiveStatus reports whether id names a user and whether that user is
// active. A missing user is not an error.
func (s *Service) ActiveStatus(ctx context.Context, id uuid.UUID) (found, active bool, err error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, false, err
	}
	if u == nil {
		return false, false, nil
	}
	return true, u.IsActive, nil
}

// GetByLogin looks a user up by email or username. A missing user is
// returned as nil without error.
func (s *Service) GetByLogin(ctx context.Context, identifier string) (*User, error) {
	return s.repo.GetByLogin(ctx, identifier)
}

// GetByIDs returns the known users among ids keyed by ID.
func (s *Service) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	users, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// Exists reports whether the user exists
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// List retrieves users with pagination and optional search
func (s *Service) List(ctx context.Context, search string, page, pageSize int) ([]*User, int, error) {
	page, pageSize = Paginate(page, pageSize)
	offset := (page - 1) * pageSize
	return s.repo.List(ctx, search, pageSize, offset)
}

// Paginate clamps page and page size to their allowed ranges.
func Paginate(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
