package queue

import (
	"context"
	"errors"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks a failure that retrying cannot fix, such as a
// malformed message. Such messages go straight to the dead-letter queue.
var ErrPermanent = errors.New("permanent failure")

// Retries reads the redelivery count from message headers.
func Retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}

func copyHeaders(h amqp091.Table) amqp091.Table {
	out := amqp091.Table{}
	for k, v := range h {
		out[k] = v
	}
	return out
}

// HandleFailure moves a failed delivery to the retry queue, or to the
// dead-letter queue once MaxRetries is reached or the failure is permanent.
// The original delivery is acked only after the copy is published; if
// publishing fails it is nacked for immediate redelivery.
func HandleFailure(ctx context.Context, pub Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := Retries(msg.Headers)
	headers := copyHeaders(msg.Headers)
	if cause != nil {
		headers[errorHeader] = cause.Error()
	}

	target := RetryQueue(queueName)
	if retries >= MaxRetries || errors.Is(cause, ErrPermanent) {
		target = DeadLetterQueue(queueName)
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries, "err", cause)
	} else {
		headers[retriesHeader] = int32(retries + 1)
		logger.Info("[Queue] Scheduling retry", "queue", target, "attempt", retries+1, "delay", RetryDelay)
	}

	err := pub.PublishWithContext(ctx, "", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to publish failed message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
