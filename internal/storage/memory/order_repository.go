package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

type storedOrder struct {
	record   domain.OrderRecord
	position int
}

// orderRepositoryInMemory — простая in-memory реализация OrderRepository
// для локальной разработки и тестов.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[domain.OrderNumber]storedOrder
}

// NewOrderRepository возвращает in-memory хранилище заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[domain.OrderNumber]storedOrder),
	}
}

// Insert сохраняет запись, если номер ещё не занят. Повторная вставка — no-op,
// как ON CONFLICT DO NOTHING у postgres-реализации.
func (r *orderRepositoryInMemory) Insert(rec domain.OrderRecord, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[rec.OrderNumber]; exists {
		return nil
	}
	r.items[rec.OrderNumber] = storedOrder{record: rec, position: position}
	return nil
}

// Delete удаляет запись; отсутствие записи — не ошибка.
func (r *orderRepositoryInMemory) Delete(n domain.OrderNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, n)
	return nil
}

// UpdateDisplayName перезаписывает отображаемое имя, если запись существует.
func (r *orderRepositoryInMemory) UpdateDisplayName(n domain.OrderNumber, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[n]
	if !ok {
		return nil
	}
	stored.record.DisplayName = &name
	r.items[n] = stored
	return nil
}

// UpdatePositions записывает новый порядок обслуживания.
func (r *orderRepositoryInMemory) UpdatePositions(positions map[domain.OrderNumber]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for n, pos := range positions {
		if stored, ok := r.items[n]; ok {
			stored.position = pos
			r.items[n] = stored
		}
	}
	return nil
}

// SelectAll возвращает записи, отсортированные по сохранённой позиции.
func (r *orderRepositoryInMemory) SelectAll() ([]domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := make([]storedOrder, 0, len(r.items))
	for _, item := range r.items {
		stored = append(stored, item)
	}

	sort.Slice(stored, func(i, j int) bool {
		if stored[i].position != stored[j].position {
			return stored[i].position < stored[j].position
		}
		return stored[i].record.OrderNumber < stored[j].record.OrderNumber
	})

	result := make([]domain.OrderRecord, 0, len(stored))
	for _, item := range stored {
		result = append(result, item.record)
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
