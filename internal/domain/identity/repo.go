package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error)
}

type GroupRepository interface {
	Create(ctx context.Context, g *RoleGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*RoleGroup, error)
	GetByName(ctx context.Context, name string) (*RoleGroup, error)
	List(ctx context.Context, limit, offset int) ([]*RoleGroup, int, error)
	AssignUser(ctx context.Context, userID, groupID uuid.UUID) error
	RemoveUser(ctx context.Context, userID, groupID uuid.UUID) error
	GroupsForUser(ctx context.Context, userID uuid.UUID) ([]*RoleGroup, error)
}
