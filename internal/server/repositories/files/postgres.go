package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/dbx"
	"github.com/penlight/penlight/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.PublicFile) (*models.PublicFile, error) {

	query :=
		`INSERT INTO public_files (storage_key, url)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, file.StorageKey, file.URL).Scan(&file.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PublicFile, error) {
	query :=
		`SELECT id, storage_key, url FROM public_files
		 WHERE id = $1
		 `

	file := &models.PublicFile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&file.ID, &file.StorageKey, &file.URL)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM public_files
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
