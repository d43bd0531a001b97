package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/metrics"
	"github.com/iliyamo/hotel-backoffice/internal/queue"
)

// EventPublisher hands order events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}

// RabbitPublisher publishes each event on a fresh connection to the
// guest_orders.events queue.  Messages are marked persistent.
type RabbitPublisher struct {
	URL         string
	DialTimeout time.Duration // TCP connect and AMQP handshake
	Log         logrus.FieldLogger
}

func NewRabbitPublisher(url string, log logrus.FieldLogger) *RabbitPublisher {
	return &RabbitPublisher{URL: url, DialTimeout: publishTimeout, Log: log}
}

// dialTimeout is DialTimeout, shortened to what is left of ctx.
func (p *RabbitPublisher) dialTimeout(ctx context.Context) time.Duration {
	d := p.DialTimeout
	if d <= 0 {
		d = publishTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	return d
}

// Publish never panics; any error is logged, counted and returned so the
// caller can ignore it.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.OrderEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		metrics.EventPublishFailures.Inc()
		p.Log.WithFields(logrus.Fields{
			"event":    ev.Type,
			"order_id": ev.OrderID,
		}).WithError(err).Warn("rabbitmq: publish failed")
	}
	return err
}

func (p *RabbitPublisher) publish(ctx context.Context, ev queue.OrderEvent) error {
	timeout := p.dialTimeout(ctx)
	if timeout <= 0 {
		return errors.Wrap(context.DeadlineExceeded, "dial")
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.OrdersQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		return errors.Wrap(err, "queue declare")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	return errors.Wrap(ch.PublishWithContext(ctx, "", queue.OrdersQueueName, false, false, pub), "publish")
}

// NopPublisher drops events; used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.OrderEvent) error { return nil }
