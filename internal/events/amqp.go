// Package events publishes booking lifecycle events to RabbitMQ so that
// notification and reporting consumers can follow bookings without
// reading the primary database.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/tix-checkout/internal/service/ports"
)

const DefaultExchange = "tixcheckout.bookings"

var ErrClosed = errors.New("publisher closed")

// Publisher keeps one connection and channel open and redials lazily after
// the broker drops them. Messages go to a durable topic exchange with the
// event type as routing key.
type Publisher struct {
	url      string
	exchange string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewPublisher(url, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}

	return &Publisher{url: url, exchange: exchange}
}

// Connect dials the broker and declares the exchange. Publish calls it on
// demand; calling it at startup surfaces a bad URL early.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.channel()
	return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	const op = "events.Publisher.channel"

	if p.closed {
		return nil, ErrClosed
	}

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("%s: dial:%w", op, err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: channel:%w", op, err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: exchange declare:%w", op, err)
	}

	p.ch = ch

	return ch, nil
}

func (p *Publisher) Publish(ctx context.Context, ev ports.BookingEvent) error {
	const op = "events.Publisher.Publish"

	msg, err := message(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := ch.PublishWithContext(ctx,
		p.exchange,      // exchange
		string(ev.Type), // routing key
		false,           // mandatory
		false,           // immediate
		msg,
	); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}

	return errors.Join(errs...)
}

func message(ev ports.BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}

	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%s:%s", ev.BookingID, ev.Type),
		Timestamp:    ts.UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}, nil
}
