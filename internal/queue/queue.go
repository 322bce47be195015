// Package queue carries jobs over RabbitMQ. Every job queue has a _retry
// queue that dead-letters back after ten seconds and a _dlq for jobs that
// keep failing.
package queue

import (
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/config"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ImportQueue      = "import_queue"
	MergeQueue       = "merge_queue"
	ValidateQueue    = "validate_queue"
	MineQueue        = "mine_queue"
	CombinationQueue = "combination_queue"
	MatchQueue       = "match_queue"
)

// Queues lists every job queue.
var Queues = []string{ImportQueue, MergeQueue, ValidateQueue, MineQueue, CombinationQueue, MatchQueue}

const retryTTL = int32(10000)

func Init(cfg config.RabbitMQ) *amqp091.Connection {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// Declarer is the part of a channel SetupQueues needs.
type Declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

func SetupQueues(ch Declarer, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return err
		}

		_, err = ch.QueueDeclare(name+"_dlq", true, false, false, false, nil)
		if err != nil {
			return err
		}

		_, err = ch.QueueDeclare(
			name+"_retry",
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             retryTTL,
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Publisher is the part of a channel used to publish.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	return ch.Publish("", queueName, false, false, publishing)
}
