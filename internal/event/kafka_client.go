package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const eventHeader = "event"

type KafkaClient struct {
	writer *kafka.Writer

	// The reader joins the consumer group on creation, so it is only built
	// once something reads.
	readerOnce   sync.Once
	readerConfig kafka.ReaderConfig
	reader       *kafka.Reader
}

func NewKafkaClient(host string, port string, topic string, group string) (*KafkaClient, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	address := net.JoinHostPort(host, port)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(address),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}

	return &KafkaClient{
		writer: writer,
		readerConfig: kafka.ReaderConfig{
			Brokers:  []string{address},
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 10e6,
		},
	}, nil
}

// WriteMessage publishes message as JSON with the event name in a header.
func (c *KafkaClient) WriteMessage(ctx context.Context, event string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event),
		Value: data,
		Headers: []kafka.Header{
			{Key: eventHeader, Value: []byte(event)},
		},
	})
}

// Message is a fetched event. It stays uncommitted until passed to
// CommitMessages.
type Message struct {
	Event string
	Data  []byte

	message kafka.Message
}

func (m *Message) Offset() int64 {
	return m.message.Offset
}

func (c *KafkaClient) consumer() *kafka.Reader {
	c.readerOnce.Do(func() {
		c.reader = kafka.NewReader(c.readerConfig)
	})
	return c.reader
}

// FetchMessage blocks until the next message of the consumer group arrives.
// The offset is not committed. A message without an event header comes back
// with an empty Event.
func (c *KafkaClient) FetchMessage(ctx context.Context) (*Message, error) {
	message, err := c.consumer().FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	result := &Message{Data: message.Value, message: message}
	for _, header := range message.Headers {
		if header.Key == eventHeader {
			result.Event = string(header.Value)
			break
		}
	}
	return result, nil
}

// CommitMessages marks messages as processed for the consumer group.
func (c *KafkaClient) CommitMessages(ctx context.Context, messages ...*Message) error {
	raw := make([]kafka.Message, 0, len(messages))
	for _, message := range messages {
		raw = append(raw, message.message)
	}
	return c.consumer().CommitMessages(ctx, raw...)
}

func (c *KafkaClient) Close() error {
	err := c.writer.Close()
	c.readerOnce.Do(func() {})
	if c.reader != nil {
		err = errors.Join(err, c.reader.Close())
	}
	return err
}
