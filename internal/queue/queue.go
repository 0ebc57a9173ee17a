package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel the export pipeline uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client owns the connection used by the export API (publisher) and the
// export worker (consumer). Both share one channel.
type Client struct {
	conn *amqp.Connection
	ch   channel
}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// durableQueue declares name bound to exchange under routingKey.
func (c *Client) durableQueue(name, exchange, routingKey string, args amqp.Table) error {
	if _, err := c.ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return err
	}
	return c.ch.QueueBind(name, routingKey, exchange, false, nil)
}

// publishJSON sends a persistent message so queued exports survive a broker
// restart.
func (c *Client) publishJSON(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// Prefetch bounds unacknowledged deliveries per consumer. Report generation
// is CPU heavy, so workers take one job at a time by default.
func (c *Client) Prefetch(count int) error {
	if count <= 0 {
		count = 1
	}
	return c.ch.Qos(count, 0, false)
}
