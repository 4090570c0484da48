// Package publisher fans recorded movements out to a Kafka topic after they
// have been written to the event store.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/skywatch/internal/models"
)

const (
	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "skywatch_movements"
	flushTimeoutMs     = 5000
)

// Publisher announces events that are already durable in the store.
type Publisher interface {
	Publish(ctx context.Context, events []models.MovementEvent) error
	Close()
}

// producer is the subset of *kafka.Producer used here.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// Kafka publishes each event as a JSON message keyed by its signature, so
// consumers can deduplicate on the key.
type Kafka struct {
	producer producer
	topic    string
	logger   logrus.FieldLogger
	done     chan struct{}
}

// NewKafka creates a producer for broker and starts the delivery report loop.
func NewKafka(broker, topic string, logger logrus.FieldLogger) (*Kafka, error) {
	if broker == "" {
		broker = DefaultKafkaBroker
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	logger.WithField("broker", broker).Info("Kafka producer initialized")
	return newKafka(p, topic, logger), nil
}

func newKafka(p producer, topic string, logger logrus.FieldLogger) *Kafka {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	k := &Kafka{producer: p, topic: topic, logger: logger.WithField("topic", topic), done: make(chan struct{})}
	go k.deliveryReports()
	return k
}

// deliveryReports logs failed deliveries until the events channel closes.
func (k *Kafka) deliveryReports() {
	defer close(k.done)
	for e := range k.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				k.logger.WithError(ev.TopicPartition.Error).WithField("key", string(ev.Key)).Error("message delivery failed")
			}
		case kafka.Error:
			k.logger.WithError(ev).Warn("kafka error")
		}
	}
}

// Publish enqueues every event and flushes before returning.
func (k *Kafka) Publish(ctx context.Context, events []models.MovementEvent) error {
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.Signature, err)
		}
		err = k.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
			Key:            []byte(e.Signature),
			Value:          value,
			Headers:        []kafka.Header{{Key: "movement_type", Value: []byte(e.Type)}},
		}, nil)
		if err != nil {
			return fmt.Errorf("produce %s: %w", e.Signature, err)
		}
	}
	if remaining := k.producer.Flush(flushTimeoutMs); remaining > 0 {
		return fmt.Errorf("%d messages still queued after flush", remaining)
	}
	return nil
}

// Close flushes and closes the producer.
func (k *Kafka) Close() {
	k.producer.Flush(flushTimeoutMs)
	k.producer.Close()
	<-k.done
	k.logger.Info("Kafka producer closed")
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, []models.MovementEvent) error { return nil }
func (Nop) Close()                                                {}
