package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"ai-interviewer/service"
)

const taskQueueName = "interview_tasks"

// RabbitMQ is the queue-backed task dispatcher. Publishing satisfies
// service.Dispatcher; a worker consumes the queue and routes tasks back into
// the service layer.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		taskQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &RabbitMQ{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// Dispatch publishes a task to the queue.
func (r *RabbitMQ) Dispatch(ctx context.Context, task service.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(
		pubCtx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// ConsumeTasks registers a consumer and feeds decoded tasks to the handler on
// a background goroutine.
func (r *RabbitMQ) ConsumeTasks(handler func(service.Task)) error {
	msgs, err := r.channel.Consume(
		r.queue.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var task service.Task
			if err := json.Unmarshal(d.Body, &task); err != nil {
				r.logger.Error("invalid task format", zap.Error(err))
				continue
			}
			handler(task)
		}
	}()
	return nil
}

func (r *RabbitMQ) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}
