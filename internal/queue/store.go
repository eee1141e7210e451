// Package queue содержит Queue Store — единственного владельца и мутатора
// очереди breaks. Все мутации сериализуются одним мьютексом; снапшот
// вычисляется и публикуется внутри критической секции, иначе два
// конкурентных писателя могут опубликовать снапшоты в обратном порядке и
// оставить у broadcaster'а устаревшее значение. Publish не блокируется,
// поэтому медленный подписчик пишущих не задерживает.
package queue

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/broadcast"
	"github.com/vladislavdragonenkov/breaks/internal/domain"
	"github.com/vladislavdragonenkov/breaks/internal/metrics"
)

// EventSink получает уведомления о жизненном цикле заказов (best-effort,
// ошибки не возвращаются и не влияют на мутацию). Реализация — Kafka
// producer или no-op.
type EventSink interface {
	OrderReceived(rec domain.OrderRecord)
	OrderCompleted(n domain.OrderNumber)
	OrderRenamed(n domain.OrderNumber, name string)
	QueueReordered(n domain.OrderNumber)
}

// NopEvents — заглушка EventSink, когда Kafka не настроена.
type NopEvents struct{}

func (NopEvents) OrderReceived(domain.OrderRecord)        {}
func (NopEvents) OrderCompleted(domain.OrderNumber)       {}
func (NopEvents) OrderRenamed(domain.OrderNumber, string) {}
func (NopEvents) QueueReordered(domain.OrderNumber)       {}

var _ EventSink = NopEvents{}

// Store — авторитетная очередь в памяти плюс write-behind запись в хранилище.
type Store struct {
	mu      sync.Mutex
	breaks  *domain.Breaks
	repo    domain.OrderRepository
	bc      *broadcast.Broadcaster
	events  EventSink
	metrics *metrics.QueueMetrics
	logger  *log.Entry
}

// New создаёт Queue Store поверх пустой очереди.
func New(repo domain.OrderRepository, bc *broadcast.Broadcaster, events EventSink, qm *metrics.QueueMetrics, logger *log.Entry) *Store {
	if events == nil {
		events = NopEvents{}
	}
	return &Store{
		breaks:  domain.NewBreaks(),
		repo:    repo,
		bc:      bc,
		events:  events,
		metrics: qm,
		logger:  logger,
	}
}

// Load наполняет очередь из хранилища (порядок — сохранённый порядок
// обслуживания) и публикует первый снапшот, чтобы подписчики получили
// состояние сразу после подключения.
func (s *Store) Load() error {
	records, err := s.repo.SelectAll()
	if err != nil {
		return fmt.Errorf("seed queue from storage: %w", err)
	}

	s.mu.Lock()
	s.breaks = domain.FromOrdered(records)
	snap := s.breaks.Snapshot()
	s.publish(snap)
	s.mu.Unlock()

	s.metrics.SetQueueDepth(len(snap))
	s.logger.WithField("orders", len(snap)).Info("очередь восстановлена из хранилища")
	return nil
}

// Append добавляет новый заказ в конец очереди.
//
// Повторная доставка того же номера — ErrDuplicateOrder (no-op). При ошибке
// записи в хранилище мутация не фиксируется в памяти и возвращается
// ErrPersistenceFailure: для создания заказа расхождение памяти и базы
// недопустимо, клиенту должно быть видно, что заказ не принят.
func (s *Store) Append(payload domain.OrderPayload) error {
	rec := domain.NewOrderRecord(payload)

	s.mu.Lock()
	started := time.Now()

	if s.breaks.Contains(rec.OrderNumber) {
		s.mu.Unlock()
		s.metrics.RecordMutationError("duplicate")
		return domain.ErrDuplicateOrder
	}

	// Сначала хранилище: если вставка не удалась, память ещё не тронута
	// и откатывать нечего.
	if err := s.repo.Insert(rec, s.breaks.Len()); err != nil {
		s.mu.Unlock()
		s.metrics.RecordMutationError("persistence")
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}

	if err := s.breaks.Append(rec); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.breaks.Snapshot()
	s.metrics.RecordMutationDuration(time.Since(started))
	s.publish(snap)
	s.mu.Unlock()

	s.metrics.RecordMutation("append", len(snap))
	s.events.OrderReceived(rec)
	return nil
}

// Remove навсегда удаляет заказ из очереди (оператор отметил его выполненным).
//
// Удаление асимметрично append: если запись в хранилище не удалась, изменение
// в памяти сохраняется, а расхождение только логируется — оператору уже
// сказано «готово», живое представление важнее строгой долговечности.
func (s *Store) Remove(n domain.OrderNumber) error {
	s.mu.Lock()
	started := time.Now()

	if err := s.breaks.Remove(n); err != nil {
		s.mu.Unlock()
		s.metrics.RecordMutationError("not_found")
		return err
	}
	snap := s.breaks.Snapshot()
	s.metrics.RecordMutationDuration(time.Since(started))
	s.publish(snap)
	s.mu.Unlock()

	if err := s.repo.Delete(n); err != nil {
		s.metrics.RecordPersistenceDiscrepancy()
		s.logger.WithError(err).WithField("order", n).
			Error("заказ удалён из очереди, но не из хранилища")
	}
	// Перезапись позиций уплотняет нумерацию после удаления: без неё
	// следующая вставка получила бы позицию, занятую выжившей строкой.
	s.persistPositions(snap)

	s.metrics.RecordMutation("remove", len(snap))
	s.events.OrderCompleted(n)
	return nil
}

// MoveUp поднимает заказ на одну позицию. На первой позиции — ErrBoundary.
func (s *Store) MoveUp(n domain.OrderNumber) error {
	return s.move(n, "move_up", (*domain.Breaks).MoveUp)
}

// MoveDown опускает заказ на одну позицию. На последней позиции — ErrBoundary.
func (s *Store) MoveDown(n domain.OrderNumber) error {
	return s.move(n, "move_down", (*domain.Breaks).MoveDown)
}

func (s *Store) move(n domain.OrderNumber, op string, mv func(*domain.Breaks, domain.OrderNumber) error) error {
	s.mu.Lock()
	started := time.Now()

	if err := mv(s.breaks, n); err != nil {
		s.mu.Unlock()
		switch err {
		case domain.ErrOrderNotFound:
			s.metrics.RecordMutationError("not_found")
		case domain.ErrBoundary:
			s.metrics.RecordMutationError("boundary")
		}
		return err
	}
	snap := s.breaks.Snapshot()
	s.metrics.RecordMutationDuration(time.Since(started))
	s.publish(snap)
	s.mu.Unlock()

	s.persistPositions(snap)
	s.metrics.RecordMutation(op, len(snap))
	s.events.QueueReordered(n)
	return nil
}

// persistPositions записывает новый порядок обслуживания write-behind;
// ошибка не фатальна, порядок в памяти остаётся источником истины.
func (s *Store) persistPositions(snap domain.QueueSnapshot) {
	positions := make(map[domain.OrderNumber]int, len(snap))
	for i, rec := range snap {
		positions[rec.OrderNumber] = i
	}
	if err := s.repo.UpdatePositions(positions); err != nil {
		s.metrics.RecordPersistenceDiscrepancy()
		s.logger.WithError(err).Error("не удалось сохранить порядок очереди")
	}
}

// Rename заменяет отображаемое имя. Имя косметично: ошибка записи в
// хранилище не откатывает изменение в памяти, только логируется.
func (s *Store) Rename(n domain.OrderNumber, name string) error {
	s.mu.Lock()
	started := time.Now()

	if err := s.breaks.Rename(n, name); err != nil {
		s.mu.Unlock()
		s.metrics.RecordMutationError("not_found")
		return err
	}
	snap := s.breaks.Snapshot()
	s.metrics.RecordMutationDuration(time.Since(started))
	s.publish(snap)
	s.mu.Unlock()

	if err := s.repo.UpdateDisplayName(n, name); err != nil {
		s.metrics.RecordPersistenceDiscrepancy()
		s.logger.WithError(err).WithField("order", n).
			Error("имя обновлено в очереди, но не в хранилище")
	}

	s.metrics.RecordMutation("rename", len(snap))
	s.events.OrderRenamed(n, name)
	return nil
}

// Snapshot возвращает копию последнего зафиксированного состояния. Блокировка
// удерживается только на время копирования среза, частично применённая
// мутация наблюдаться не может.
func (s *Store) Snapshot() domain.QueueSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaks.Snapshot()
}

func (s *Store) publish(snap domain.QueueSnapshot) {
	s.bc.Publish(snap)
	s.metrics.RecordSnapshotPublished()
}
