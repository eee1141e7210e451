package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

func newTestProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	return &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}, mockProducer
}

func TestProducer_OrderReceived(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	name := "viewer_42"
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event OrderEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.EventType != EventTypeOrderReceived {
			t.Errorf("event_type = %s, ожидали %s", event.EventType, EventTypeOrderReceived)
		}
		if event.OrderNumber != 17 {
			t.Errorf("order_number = %d, ожидали 17", event.OrderNumber)
		}
		if event.DisplayName == nil || *event.DisplayName != name {
			t.Errorf("display_name = %v, ожидали %q", event.DisplayName, name)
		}
		return nil
	})

	producer.OrderReceived(domain.OrderRecord{OrderNumber: 17, DisplayName: &name})

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_LifecycleEvents(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	mockProducer.ExpectSendMessageAndSucceed()
	mockProducer.ExpectSendMessageAndSucceed()
	mockProducer.ExpectSendMessageAndSucceed()

	producer.OrderCompleted(5)
	producer.OrderRenamed(6, "new_name")
	producer.QueueReordered(7)

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_SendFailureDoesNotPanic(t *testing.T) {
	producer, mockProducer := newTestProducer(t)

	// Отправка best-effort: ошибка брокера логируется и не всплывает.
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.OrderCompleted(5)

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
