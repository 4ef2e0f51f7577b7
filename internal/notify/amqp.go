package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/tableside/order-service/internal/order"
)

// exchange is the durable topic exchange order events are published to.
// Consumers bind with patterns like "order.*" or "order.cancelled".
const exchange = "orders.events"

const publishTimeout = 5 * time.Second

var _ order.Notifier = (*AMQPPublisher)(nil)

// AMQPPublisher publishes order events to RabbitMQ. The connection is lazily
// re-established when it drops; a publish attempt reconnects at most once.
type AMQPPublisher struct {
	url string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, errors.Wrap(err, "connect to broker")
	}
	return p, nil
}

// connect dials the broker, opens a channel and declares the topology.
// Caller must hold p.mu or be the constructor.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return errors.Wrapf(err, "declare exchange %s", exchange)
	}
	p.conn = conn
	p.channel = ch
	return nil
}

// Publish implements order.Notifier. Events are persistent so a broker
// restart does not drop queued notifications.
func (p *AMQPPublisher) Publish(ctx context.Context, e order.Event) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return errors.Wrap(err, "reconnect")
		}
	}

	err := p.channel.PublishWithContext(ctx,
		exchange,
		routingKey(e),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt,
			Body:         encodeEvent(e),
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publish %s", routingKey(e))
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
