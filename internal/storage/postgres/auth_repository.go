package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

type authKeyRepository struct {
	db *sql.DB
}

// NewAuthKeyRepository создаёт PostgreSQL-реализацию AuthKeyRepository.
func NewAuthKeyRepository(store *Store) domain.AuthKeyRepository {
	return &authKeyRepository{db: store.DB()}
}

// ValidateKey сверяет пару username/key с таблицей authentication_keys.
func (r *authKeyRepository) ValidateKey(username, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM authentication_keys
			WHERE username = $1
			  AND key = $2
		)
	`, username, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("select authentication key: %w", err)
	}

	return exists, nil
}

var _ domain.AuthKeyRepository = (*authKeyRepository)(nil)
