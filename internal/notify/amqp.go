package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
)

const (
	publishQueueSize = 256
	publishTimeout   = 5 * time.Second
)

// amqpChannel is the subset of *amqp.Channel the publisher uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher mirrors every change onto a topic exchange, routed by event id.
// Publishing happens off the request path; changes are dropped when the
// buffer is full.
type AMQPPublisher struct {
	log      logger.Logger
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	queue    chan models.Change
}

// NewAMQPPublisher dials url and declares a durable topic exchange
func NewAMQPPublisher(log logger.Logger, url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ", "error", err)
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.Error("Failed to open RabbitMQ channel", "error", err)
		return nil, err
	}

	p, err := newAMQPPublisherWithChannel(log, ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisherWithChannel(log logger.Logger, ch amqpChannel, exchange string) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		log.Error("Failed to declare exchange", "exchange", exchange, "error", err)
		return nil, err
	}

	log.Info("RabbitMQ change feed initialized", "exchange", exchange)
	return &AMQPPublisher{
		log:      log,
		channel:  ch,
		exchange: exchange,
		queue:    make(chan models.Change, publishQueueSize),
	}, nil
}

// BroadcastChange implements services.Broadcaster
func (p *AMQPPublisher) BroadcastChange(change models.Change) {
	select {
	case p.queue <- change:
	default:
		p.log.Warn("Change feed buffer full, dropping change", "event_id", change.EventID, "version", change.Version)
	}
}

// Run publishes queued changes until ctx is cancelled
func (p *AMQPPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-p.queue:
			if err := p.publish(ctx, change); err != nil {
				p.log.Error("Failed to publish change", "event_id", change.EventID, "error", err)
			}
		}
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, change models.Change) error {
	body, err := json.Marshal(change)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		"pb."+change.EventID+"."+change.Kind,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
			Type:        change.Kind,
		},
	)
	if err == nil {
		p.log.Debug("Change published", "exchange", p.exchange, "event_id", change.EventID, "version", change.Version)
	}
	return err
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.log.Info("RabbitMQ connection closed")
}
