// Package broadcast раздаёт снапшоты очереди всем подключённым подписчикам
// по принципу last-value-wins: отстающий подписчик пропускает промежуточные
// состояния и всегда догоняет последнее, издатель никогда не ждёт
// медленного потребителя.
package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// Broadcaster — одиночная ячейка «текущее значение» плюс список ожидающих
// подписчиков. Не очередь и не журнал: истории нет, хранится только
// последний опубликованный снапшот.
type Broadcaster struct {
	mu       sync.Mutex
	current  domain.QueueSnapshot
	hasValue bool
	subs     map[string]chan domain.QueueSnapshot
	closed   bool
}

// New создаёт broadcaster без начального значения: первый Publish задаст его.
func New() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]chan domain.QueueSnapshot),
	}
}

// Publish заменяет текущее значение и будит всех подписчиков. Никогда не
// блокируется: если подписчик ещё не забрал предыдущий снапшот, тот
// выбрасывается и заменяется новым.
func (b *Broadcaster) Publish(snap domain.QueueSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.current = snap
	b.hasValue = true

	for _, ch := range b.subs {
		replace(ch, snap)
	}
}

// replace кладёт снапшот в односложный канал подписчика, вытесняя
// невостребованное значение. Вызывается только под мьютексом broadcaster,
// поэтому между drain и send никто другой не пишет.
func replace(ch chan domain.QueueSnapshot, snap domain.QueueSnapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Subscribe регистрирует нового подписчика. Последний опубликованный снапшот
// доставляется сразу, не дожидаясь следующей мутации, затем приходит каждое
// более новое значение в порядке публикации.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.QueueSnapshot, 1)
	if b.hasValue {
		ch <- b.current
	}

	sub := &Subscription{
		id: uuid.NewString(),
		ch: ch,
		b:  b,
	}
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub.id] = ch
	return sub
}

// Subscribers возвращает число активных подписчиков (для метрик).
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close отключает всех подписчиков. Дальнейшие Publish игнорируются.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// Subscription — ручка одного подписчика. Отмена освобождает ресурсы сразу;
// личность подписчика broadcaster не отслеживает, только живость.
type Subscription struct {
	id   string
	ch   chan domain.QueueSnapshot
	b    *Broadcaster
	once sync.Once
}

// ID возвращает идентификатор подписки (попадает в логи SSE-подключений).
func (s *Subscription) ID() string {
	return s.id
}

// Updates — канал снапшотов. Закрывается при Cancel или Close broadcaster.
func (s *Subscription) Updates() <-chan domain.QueueSnapshot {
	return s.ch
}

// Cancel снимает подписку. Повторные вызовы безопасны.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		if _, ok := s.b.subs[s.id]; ok {
			delete(s.b.subs, s.id)
			close(s.ch)
		}
	})
}
