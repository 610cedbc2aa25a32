// Package users provides the user directory: credential records looked up
// by email or id, with a single mutable refresh-token fingerprint per row.
package users

import (
	"context"

	"github.com/penlight/penlight/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdateRefreshTokenHash overwrites the stored fingerprint; pass nil to
	// clear it. At most one fingerprint exists per user at any time.
	UpdateRefreshTokenHash(ctx context.Context, id string, hash *string) error

	// UpdateAvatarID overwrites the avatar reference; pass nil to clear it.
	UpdateAvatarID(ctx context.Context, id string, avatarID *string) error
}
