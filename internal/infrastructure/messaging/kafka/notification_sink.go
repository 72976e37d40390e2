package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

const clientID = "courier-service"

// NewSyncProducer connects a producer that waits for broker acknowledgement.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// NotificationSink publishes rendered notifications to a topic, keyed by AWB
// so one shipment's notifications land on one partition.
type NotificationSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewNotificationSink(producer sarama.SyncProducer, topic string) *NotificationSink {
	return &NotificationSink{producer: producer, topic: topic}
}

func (s *NotificationSink) Notify(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(n.AWB),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("template"), Value: []byte(n.Template)},
		},
	})
	if err != nil {
		return fmt.Errorf("send notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *NotificationSink) Close() error {
	return s.producer.Close()
}
