package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RegisterUser(ctx context.Context, u *User) error {
	if u.UID == "" {
		return fmt.Errorf("uid is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	existing, err := s.repo.GetByUID(ctx, u.UID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %s already registered", u.UID)
	}
	u.CreatedAt = time.Now().UnixMilli()
	return s.repo.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, uid string) (*User, error) {
	return s.repo.GetByUID(ctx, uid)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// ProfileFor builds the /me response for the calling identity. The stored
// account, when present, overrides the token's name and email; role always
// comes from the token since routes are gated on it.
func (s *Service) ProfileFor(ctx context.Context, ident auth.Identity) (*Profile, error) {
	p := &Profile{
		UID:         ident.UID,
		Email:       ident.Email,
		Name:        ident.Name,
		Role:        ident.Role,
		Permissions: auth.PermissionsFor(ident.Role),
	}
	stored, err := s.repo.GetByUID(ctx, ident.UID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if stored.Name != "" {
			p.Name = stored.Name
		}
		if stored.Email != "" {
			p.Email = stored.Email
		}
	}
	return p, nil
}
