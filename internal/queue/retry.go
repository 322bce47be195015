package queue

import (
	"errors"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a job is retried before it goes to the DLQ.
const MaxRetries = 10

const retriesHeader = "x-retries"

// RetryCount reads the x-retries header. Brokers and clients hand it back as
// different integer types.
func RetryCount(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// HandleFailure republishes a failed delivery to the retry queue or, after
// MaxRetries or for an ErrInvalidJob, to the DLQ, and acks the original. If
// republishing fails the delivery is requeued.
func HandleFailure(ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := RetryCount(msg.Headers)
	if errors.Is(cause, ErrInvalidJob) {
		retries = MaxRetries
	}

	target := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if retries >= MaxRetries {
		target = queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", target)
	} else {
		headers[retriesHeader] = int32(retries + 1)
	}

	pubErr := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to republish message", "queue", target, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
