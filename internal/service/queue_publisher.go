// Package service holds application services shared by handlers that are
// not tied to a single table: audit publishing lives here.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/koemail-admin/internal/queue"
)

const (
	defaultDialTimeout = 2 * time.Second
	// redialBackoff is how long a failed dial suppresses further attempts.
	redialBackoff = 10 * time.Second
)

// ErrBrokerUnavailable is returned while a recent dial failure is backing off.
var ErrBrokerUnavailable = errors.New("audit broker unavailable")

// Publisher sends audit events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

// AMQPPublisher publishes to queue.AuditQueue over a lazily opened,
// reused channel. A failed publish drops the channel so the next call
// reconnects. Dials are bounded by the publish context and never run
// under the lock.
type AMQPPublisher struct {
	url         string
	dialTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	dialing   bool
	failUntil time.Time
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, dialTimeout: defaultDialTimeout, backoff: redialBackoff, now: time.Now}
}

func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.dialing || p.now().Before(p.failUntil) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.resetLocked()
	p.dialing = true
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.failUntil = p.now().Add(p.backoff)
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return nil, nil, context.DeadlineExceeded
	}
	// DefaultDial bounds both the TCP connect and the AMQP handshake.
	conn, err := amqp.DialConfig(p.url, amqp.Config{Locale: "en_US", Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.AuditQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",               // default exchange
		queue.AuditQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.resetLocked()
		}
		p.mu.Unlock()
	}
	return err
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := errors.Join(p.ch.Close(), p.conn.Close())
	p.conn, p.ch = nil, nil
	return err
}
