package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one message body.
type HandlerFunc func(ctx context.Context, body []byte) error

// Channel is the part of *amqp091.Channel a Consumer uses.
type Channel interface {
	Publisher
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
}

// Consumer handles messages from one queue, one at a time.
type Consumer struct {
	ch     Channel
	queue  string
	handle HandlerFunc

	// After runs once per message with the handler's result.
	After func(err error, took time.Duration)
}

func NewConsumer(ch Channel, queueName string, handle HandlerFunc) *Consumer {
	return &Consumer{ch: ch, queue: queueName, handle: handle}
}

// Run consumes until ctx is done or the delivery channel closes. Prefetch
// is one so a long document never holds back other workers' messages.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.queue, c.queue+"_consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	logger.Info("[Queue] Listening for messages", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", c.queue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", c.queue)
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", c.queue, "retries", Retries(msg.Headers))

	err := c.handle(ctx, msg.Body)
	if err != nil {
		logger.Error("[Queue] Error processing message", "queue", c.queue, "err", err)
		// Use a fresh context so a shutdown mid-message still requeues it.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		HandleFailure(pubCtx, c.ch, msg, c.queue, err)
		cancel()
	} else {
		if ackErr := msg.Ack(false); ackErr != nil {
			logger.Error("[Queue] Failed to ack message", "err", ackErr)
		}
		logger.Info("[Queue] Message processed successfully", "queue", c.queue)
	}

	took := time.Since(start)
	logger.Info("[Queue] Processing time", "duration", formatDuration(took))
	if c.After != nil {
		c.After(err, took)
	}
}

// formatDuration renders d as hh:mm:ss.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
