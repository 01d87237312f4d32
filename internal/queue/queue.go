// Package queue carries ingestion jobs over RabbitMQ. Each work queue has a
// "_retry" sibling that dead-letters back after a delay and a "_dlq" that
// holds messages which exhausted their retries.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/config"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	IngestQueue = "ingest_queue"
	DeleteQueue = "delete_queue"

	retrySuffix = "_retry"
	dlqSuffix   = "_dlq"

	// RetryDelay is how long a failed message waits in the retry queue.
	RetryDelay = 10 * time.Second
	// MaxRetries is the number of redeliveries before a message is dead-lettered.
	MaxRetries = 10

	retriesHeader = "x-retries"
	errorHeader   = "x-last-error"
)

var ErrNotConfigured = errors.New("rabbitmq host is not configured")

func RetryQueue(name string) string { return name + retrySuffix }
func DeadLetterQueue(name string) string { return name + dlqSuffix }

// Dial connects to the broker described by cfg.
func Dial(cfg config.RabbitConfig) (*amqp091.Connection, error) {
	u := cfg.URL()
	if u == "" {
		return nil, ErrNotConfigured
	}
	conn, err := amqp091.Dial(u)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq at %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return conn, nil
}

// declarer is the part of *amqp091.Channel used to declare queues.
type declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// SetupQueues declares each queue with its retry and dead-letter siblings.
func SetupQueues(ch declarer, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}
		dlq := DeadLetterQueue(name)
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlq, err)
		}
		retry := RetryQueue(name)
		_, err := ch.QueueDeclare(retry, true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(RetryDelay.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("declare %s: %w", retry, err)
		}
		logger.Debug("[Queue] Declared", "queue", name, "retry", retry, "dlq", dlq)
	}
	return nil
}

// Publisher is the part of *amqp091.Channel used to publish.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publish sends a persistent JSON message to queueName on the default
// exchange.
func Publish(ctx context.Context, ch Publisher, queueName string, body []byte) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
