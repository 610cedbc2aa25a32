// Package files stores metadata for objects kept on public object
// storage, such as user avatars.
package files

import (
	"context"

	"github.com/penlight/penlight/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.PublicFile) (*models.PublicFile, error)
	GetByID(ctx context.Context, id string) (*models.PublicFile, error)
	Delete(ctx context.Context, id string) error
}
