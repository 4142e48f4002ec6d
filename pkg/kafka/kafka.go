// Package kafka wraps the segmentio client with the small producer/consumer
// surface the task queue needs.
package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes messages to arbitrary topics on one broker set.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for the given brokers. Topics are chosen
// per message, so one producer serves every queue.
func NewProducer(brokers []string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w}
}

// Publish sends one message to the given topic.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer listens for messages on one topic as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
		MaxWait:  2 * time.Second,
	})
	return &Consumer{reader: r}
}

// StartListening continuously reads messages and processes them.
func (c *Consumer) StartListening(ctx context.Context, handleFunc func(kafka.Message)) error {
	log.Printf("kafka consumer started topic=%s", c.reader.Config().Topic)
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		handleFunc(m)
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
