package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// authKeyRepositoryInMemory хранит пары username/key, заданные конфигурацией.
// Используется, когда сервис работает без PostgreSQL.
type authKeyRepositoryInMemory struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewAuthKeyRepository возвращает in-memory проверку ключей доступа.
func NewAuthKeyRepository(keys map[string]string) domain.AuthKeyRepository {
	copied := make(map[string]string, len(keys))
	for user, key := range keys {
		copied[user] = key
	}
	return &authKeyRepositoryInMemory{keys: copied}
}

// ValidateKey сверяет пару username/key со статической таблицей.
func (r *authKeyRepositoryInMemory) ValidateKey(username, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.keys[username]
	return ok && stored == key, nil
}

var _ domain.AuthKeyRepository = (*authKeyRepositoryInMemory)(nil)
