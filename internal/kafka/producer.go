package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Lifecycle topics consumed by kitchen displays and reporting.
const (
	TopicOrderCreated = "canteen.order.created"
	TopicOrderPaid    = "canteen.order.paid"
	TopicOrderServed  = "canteen.order.served"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Publish(topic string, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
