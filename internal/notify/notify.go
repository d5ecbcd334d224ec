// AngelaMos | 2026
// notify.go

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/singleflight"
)

const KindSupplierOrder = "supplier.order_requested"

// Message is an outbound email job. Data may carry secrets such as
// confirmation links and must never be logged.
type Message struct {
	Kind      string            `json:"kind"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// LogDispatcher stands in for a broker in development. It records that a
// message was sent without its payload.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.logger.Info("notification dispatched",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

const (
	defaultDialTimeout = 5 * time.Second
	brokerHeartbeat    = 10 * time.Second
)

// AMQPDispatcher publishes persistent JSON messages to a durable queue on
// the default exchange. The connection is opened lazily and reopened
// after the broker drops it. Concurrent callers share one dial and each
// stops waiting when its own context ends.
type AMQPDispatcher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *slog.Logger

	dials singleflight.Group

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

type Option func(*AMQPDispatcher)

// WithDialTimeout bounds the TCP connect and AMQP handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(a *AMQPDispatcher) {
		a.dialTimeout = d
	}
}

func NewAMQPDispatcher(
	url, queue string,
	logger *slog.Logger,
	opts ...Option,
) *AMQPDispatcher {
	d := &AMQPDispatcher{
		url:         url,
		queue:       queue,
		dialTimeout: defaultDialTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := d.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",
		d.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.CreatedAt,
			Type:         msg.Kind,
			Body:         body,
		},
	)
	if err != nil {
		d.discard(ch)
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}

	return nil
}

// Ping opens the broker connection if it is not already open.
func (d *AMQPDispatcher) Ping(ctx context.Context) error {
	_, err := d.channel(ctx)
	return err
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn, d.ch = nil, nil
	return err
}

func (d *AMQPDispatcher) current() *amqp.Channel {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch
	}
	return nil
}

func (d *AMQPDispatcher) channel(ctx context.Context) (*amqp.Channel, error) {
	if ch := d.current(); ch != nil {
		return ch, nil
	}

	result := d.dials.DoChan("dial", func() (any, error) {
		if ch := d.current(); ch != nil {
			return ch, nil
		}
		return d.open()
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("dial broker: %w", ctx.Err())
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*amqp.Channel), nil
	}
}

// open dials without holding mu and installs the new channel.
func (d *AMQPDispatcher) open() (*amqp.Channel, error) {
	conn, err := amqp.DialConfig(d.url, amqp.Config{
		Heartbeat: brokerHeartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(d.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // cleanup on channel failure
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close() //nolint:errcheck // cleanup on declare failure
		return nil, fmt.Errorf("declare queue %s: %w", d.queue, err)
	}

	d.mu.Lock()
	old := d.conn
	d.conn, d.ch = conn, ch
	d.mu.Unlock()

	if old != nil && !old.IsClosed() {
		_ = old.Close() //nolint:errcheck // replacing a broken connection
	}

	d.logger.Info("broker channel opened", "queue", d.queue)
	return ch, nil
}

// discard drops ch after a failed publish unless it was already replaced.
func (d *AMQPDispatcher) discard(ch *amqp.Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != ch {
		return
	}
	if d.conn != nil && !d.conn.IsClosed() {
		_ = d.conn.Close() //nolint:errcheck // replacing a broken connection
	}
	d.conn, d.ch = nil, nil
}
