package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// EventType определяет тип события очереди
type EventType string

const (
	EventTypeOrderReceived  EventType = "order.received"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderRenamed   EventType = "order.renamed"
	EventTypeQueueReordered EventType = "queue.reordered"
)

// Topics для Kafka
const (
	TopicOrderEvents = "breaks.order.events"
)

// OrderEvent представляет событие жизненного цикла заказа в очереди.
// Поток событий дополняет push-канал снапшотов: снапшоты говорят "что
// сейчас", события говорят "что произошло".
type OrderEvent struct {
	EventType   EventType          `json:"event_type"`
	OrderNumber domain.OrderNumber `json:"order_number"`
	DisplayName *string            `json:"display_name,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, number domain.OrderNumber, displayName *string) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderNumber: number,
		DisplayName: displayName,
		Timestamp:   time.Now(),
	}
}
