package notify

import (
	"context"
	"encoding/json"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/chat-order-service/internal/obs"
)

// KafkaSink mirrors broadcast events onto a Kafka topic so external
// dashboards can consume them. The writer runs in async mode so that
// Broadcast returns immediately; publish failures are logged from the
// completion callback and dropped. The pipeline never fails on
// notification delivery.
type KafkaSink struct {
	writer *kafkaGo.Writer
}

// NewKafkaSink builds a sink writing to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafkaGo.Writer{
			Addr:     kafkaGo.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkaGo.LeastBytes{},
			Async:    true,
			Completion: func(messages []kafkaGo.Message, err error) {
				if err != nil {
					obs.Logger.Error("kafka_publish_failed", "messages", len(messages), "error", err)
				}
			},
		},
	}
}

func (k *KafkaSink) Broadcast(event string, payload any) {
	body, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		obs.Logger.Error("kafka_marshal_failed", "event", event, "error", err)
		return
	}
	// Async writer: this enqueues onto the writer's internal batch and
	// returns without waiting for delivery.
	if err := k.writer.WriteMessages(context.Background(), kafkaGo.Message{
		Key:   []byte(event),
		Value: body,
	}); err != nil {
		obs.Logger.Error("kafka_enqueue_failed", "event", event, "error", err)
	}
}

// Close flushes pending batches and releases the underlying writer.
func (k *KafkaSink) Close() error { return k.writer.Close() }
