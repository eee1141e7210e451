// Package kafka публикует события жизненного цикла заказов для внешних
// потребителей (аналитика, уведомления). Подписка дашбордов идёт через
// push-канал снапшотов, Kafka — необязательное дополнение.
package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

// Producer представляет Kafka producer для публикации событий
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true // Включаем идемпотентность
	config.Net.MaxOpenRequests = 1    // Для идемпотентности

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}, nil
}

// OrderReceived публикует событие о новом заказе в очереди.
func (p *Producer) OrderReceived(rec domain.OrderRecord) {
	p.publish(NewOrderEvent(EventTypeOrderReceived, rec.OrderNumber, rec.DisplayName))
}

// OrderCompleted публикует событие о выполненном заказе.
func (p *Producer) OrderCompleted(n domain.OrderNumber) {
	p.publish(NewOrderEvent(EventTypeOrderCompleted, n, nil))
}

// OrderRenamed публикует событие о смене отображаемого имени.
func (p *Producer) OrderRenamed(n domain.OrderNumber, name string) {
	p.publish(NewOrderEvent(EventTypeOrderRenamed, n, &name))
}

// QueueReordered публикует событие о перестановке заказа в очереди.
func (p *Producer) QueueReordered(n domain.OrderNumber) {
	p.publish(NewOrderEvent(EventTypeQueueReordered, n, nil))
}

// publish отправляет событие best-effort: неудача логируется, но не
// останавливает мутацию очереди, событийный поток вторичен.
func (p *Producer) publish(event *OrderEvent) {
	key := strconv.FormatInt(int64(event.OrderNumber), 10)

	eventData, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal event")
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:     TopicOrderEvents,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": TopicOrderEvents,
			"key":   key,
		}).Error("failed to send message to kafka")
		return
	}

	p.logger.WithFields(log.Fields{
		"topic":      TopicOrderEvents,
		"key":        key,
		"event_type": event.EventType,
		"partition":  partition,
		"offset":     offset,
	}).Debug("message sent to kafka")
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
