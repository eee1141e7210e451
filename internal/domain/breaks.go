package domain

// Breaks — упорядоченная очередь ожидающих заказов. Порядок записей —
// буквальный порядок обслуживания: индекс 0 обслуживается следующим.
// Номера заказов в очереди уникальны.
//
// Тип не потокобезопасен: блокировки и публикация снапшотов — забота
// владельца (internal/queue).
type Breaks struct {
	ordered []OrderRecord
}

// NewBreaks создаёт пустую очередь.
func NewBreaks() *Breaks {
	return &Breaks{}
}

// FromOrdered создаёт очередь из заранее отсортированного среза
// (например, из выборки хранилища при старте).
func FromOrdered(records []OrderRecord) *Breaks {
	b := &Breaks{ordered: make([]OrderRecord, len(records))}
	copy(b.ordered, records)
	return b
}

// Len возвращает количество записей в очереди.
func (b *Breaks) Len() int {
	return len(b.ordered)
}

func (b *Breaks) indexOf(n OrderNumber) int {
	for i := range b.ordered {
		if b.ordered[i].OrderNumber == n {
			return i
		}
	}
	return -1
}

// Contains сообщает, есть ли заказ с таким номером в очереди.
func (b *Breaks) Contains(n OrderNumber) bool {
	return b.indexOf(n) >= 0
}

// Append добавляет запись в конец очереди (порядок обслуживания = порядок
// поступления). Возвращает ErrDuplicateOrder, если номер уже присутствует.
func (b *Breaks) Append(rec OrderRecord) error {
	if b.Contains(rec.OrderNumber) {
		return ErrDuplicateOrder
	}
	b.ordered = append(b.ordered, rec)
	return nil
}

// Remove удаляет запись по номеру заказа.
func (b *Breaks) Remove(n OrderNumber) error {
	idx := b.indexOf(n)
	if idx < 0 {
		return ErrOrderNotFound
	}
	b.ordered = append(b.ordered[:idx], b.ordered[idx+1:]...)
	return nil
}

// MoveUp меняет запись местами с предшественником. На первой позиции —
// ErrBoundary, очередь не меняется.
func (b *Breaks) MoveUp(n OrderNumber) error {
	idx := b.indexOf(n)
	if idx < 0 {
		return ErrOrderNotFound
	}
	if idx == 0 {
		return ErrBoundary
	}
	b.ordered[idx], b.ordered[idx-1] = b.ordered[idx-1], b.ordered[idx]
	return nil
}

// MoveDown меняет запись местами с последователем. На последней позиции —
// ErrBoundary, очередь не меняется.
func (b *Breaks) MoveDown(n OrderNumber) error {
	idx := b.indexOf(n)
	if idx < 0 {
		return ErrOrderNotFound
	}
	if idx == len(b.ordered)-1 {
		return ErrBoundary
	}
	b.ordered[idx], b.ordered[idx+1] = b.ordered[idx+1], b.ordered[idx]
	return nil
}

// Rename заменяет отображаемое имя записи, не трогая документ заказа.
func (b *Breaks) Rename(n OrderNumber, name string) error {
	idx := b.indexOf(n)
	if idx < 0 {
		return ErrOrderNotFound
	}
	b.ordered[idx].DisplayName = &name
	return nil
}

// Snapshot возвращает неизменяемую полную копию очереди на текущий момент.
// Копируется только срез записей; документы заказов после создания не
// мутируются, поэтому их можно разделять между снапшотами.
func (b *Breaks) Snapshot() QueueSnapshot {
	out := make([]OrderRecord, len(b.ordered))
	copy(out, b.ordered)
	return out
}

// QueueSnapshot — копия очереди в порядке обслуживания, передаваемая
// подписчикам. Никогда не мутируется после создания.
type QueueSnapshot []OrderRecord
