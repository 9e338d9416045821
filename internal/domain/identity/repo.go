package identity

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUID(ctx context.Context, uid string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
