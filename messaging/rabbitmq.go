package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avast/retry-go"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
	dialAttempts   = 5
)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.RWMutex
	done    chan struct{}
}

// NewRabbitMQ dials the broker, declares the issues exchange and the status
// history queue with its dead-letter queue, and keeps the connection alive.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		url:  url,
		done: make(chan struct{}),
	}

	err := retry.Do(
		rmq.connect,
		retry.Attempts(dialAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("rabbitmq: dial attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	go rmq.handleReconnect()

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	var err error

	r.conn, err = amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(r.channel); err != nil {
		r.channel.Close()
		r.conn.Close()
		return err
	}

	log.Println("rabbitmq: connected")
	return nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	_, err := ch.QueueDeclare(
		StatusHistoryDLQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl": int64(86400000), // 24h
		},
	)
	if err != nil {
		return fmt.Errorf("dlq declare %s: %w", StatusHistoryDLQ, err)
	}
	if err := ch.QueueBind(StatusHistoryDLQ, statusHistoryDLQRouteName, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("dlq bind %s: %w", StatusHistoryDLQ, err)
	}

	_, err = ch.QueueDeclare(
		StatusHistoryQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": statusHistoryDLQRouteName,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(StatusHistoryQueue, RoutingKeyStatusUpdated, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue with key %s: %w", RoutingKeyStatusUpdated, err)
	}
	return nil
}

func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()

		select {
		case <-r.done:
			return
		case err := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
			if err != nil {
				log.Printf("rabbitmq: connection lost: %v. Reconnecting...", err)
			}

			r.mu.Lock()
			for {
				select {
				case <-r.done:
					r.mu.Unlock()
					return
				default:
				}
				if err := r.connect(); err != nil {
					log.Printf("rabbitmq: reconnect failed: %v. Retrying in %v...", err, reconnectDelay)
					time.Sleep(reconnectDelay)
					continue
				}
				break
			}
			r.mu.Unlock()
		}
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, event IssueEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return fmt.Errorf("channel not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    time.UnixMilli(event.Timestamp),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Consume registers a manual-ack consumer on queue.
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return nil, fmt.Errorf("channel not available")
	}

	if err := r.channel.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := r.channel.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}

	log.Println("rabbitmq: connection closed")
}
