package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fincycle/internal/core"
	applog "fincycle/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second

	// maxDeliveries bounds redeliveries of a failing message when the broker
	// reports x-delivery-count (quorum queues).
	maxDeliveries   = 10
	maxRequeueDelay = 10 * time.Second
)

// requeueDelay is how long a failed message is held before it is requeued.
var requeueDelay = func(deliveries int64) time.Duration {
	d := 500 * time.Millisecond << min(deliveries, 8)
	return min(d, maxRequeueDelay)
}

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn = conn
	c.channel = channel
	return nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on the direct exchange.
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// reset drops the current connection so the next call redials.
func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// PublishSync publishes a sync trigger for ev. It implements the ledger's
// sync publisher.
func (c *Client) PublishSync(ctx context.Context, ev core.SyncEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return core.Upstream("publish sync message", errors.New("circuit breaker is open"))
	}

	body, err := NewSyncMessage(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.connect(); err != nil {
		c.recordFailure()
		return core.Upstream("publish sync message", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.currentChannel().PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.reset()
		}
		return core.Upstream("publish sync message", err)
	}
	c.recordSuccess()

	subject := ev.Subject()
	slog.InfoContext(ctx, "Published sync message", applog.FieldComponent, applog.ComponentAMQP,
		"table", ev.Table,
		"type", ev.Type,
		"source_id", subject.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Handler processes one sync message. A returned error requeues the message
// after a backoff, until maxDeliveries is reached.
type Handler func(ctx context.Context, msg *SyncMessage) error

// ConsumeSync consumes sync messages until ctx is done, reconnecting with
// exponential backoff when the broker connection drops.
func (c *Client) ConsumeSync(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", applog.FieldComponent, applog.ComponentAMQP, "reason", ctx.Err())
			return ctx.Err()
		}
		c.reset()
		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "Consumer disconnected, reconnecting", applog.FieldComponent, applog.ComponentAMQP, "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler, connected func()) error {
	if err := c.connect(); err != nil {
		return err
	}
	msgs, err := c.currentChannel().Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	slog.InfoContext(ctx, "Started consuming sync messages", applog.FieldComponent, applog.ComponentAMQP, "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			dispatch(ctx, delivery.Body, deliveryCount(delivery), delivery, handler)
		}
	}
}

// acknowledger is the ack surface of amqp091.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// deliveryCount returns how many times the message was delivered before.
// Classic queues only flag a redelivery, which counts as one.
func deliveryCount(d amqp091.Delivery) int64 {
	switch v := d.Headers["x-delivery-count"].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	if d.Redelivered {
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, body []byte, deliveries int64, ack acknowledger, handler Handler) {
	msg, err := SyncMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed sync message", applog.FieldComponent, applog.ComponentAMQP, "error", err)
		if err := ack.Nack(false, false); err != nil {
			slog.ErrorContext(ctx, "Failed to nack message", applog.FieldComponent, applog.ComponentAMQP, "error", err)
		}
		return
	}

	subject := msg.Event.Subject()
	if err := handler(ctx, msg); err != nil {
		requeue := deliveries < maxDeliveries
		slog.ErrorContext(ctx, "Failed to handle sync message", applog.FieldComponent, applog.ComponentAMQP,
			"error", err,
			"table", msg.Event.Table,
			"source_id", subject.ID,
			"deliveries", deliveries,
			"requeue", requeue)
		if requeue {
			select {
			case <-ctx.Done():
			case <-time.After(requeueDelay(deliveries)):
			}
		}
		if err := ack.Nack(false, requeue); err != nil {
			slog.ErrorContext(ctx, "Failed to nack message", applog.FieldComponent, applog.ComponentAMQP, "error", err)
		}
		return
	}
	if err := ack.Ack(false); err != nil {
		slog.ErrorContext(ctx, "Failed to ack message", applog.FieldComponent, applog.ComponentAMQP, "error", err)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
