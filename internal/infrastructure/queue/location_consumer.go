package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

const (
	defaultReconnectDelay = 5 * time.Second
	consumerPrefetch      = 32
)

type outcome int

const (
	ack outcome = iota
	reject
	retry
)

// LocationConsumer feeds rider pings from a RabbitMQ queue into the location
// ingestor. Messages are acked only after the sample is stored.
type LocationConsumer struct {
	url            string
	queue          string
	ingest         ports.LocationService
	reconnectDelay time.Duration
	log            zerolog.Logger
}

func NewLocationConsumer(url, queue string, ingest ports.LocationService, log zerolog.Logger) *LocationConsumer {
	return &LocationConsumer{
		url:            url,
		queue:          queue,
		ingest:         ingest,
		reconnectDelay: defaultReconnectDelay,
		log:            log.With().Str("queue", queue).Logger(),
	}
}

// Run consumes until ctx is cancelled, reconnecting after broker failures.
func (c *LocationConsumer) Run(ctx context.Context) {
	for {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("rabbitmq consumer disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *LocationConsumer) consumeOnce(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.log.Info().Msg("rabbitmq consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("connection closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.settle(d, c.handle(ctx, d.Body))
		}
	}
}

func (c *LocationConsumer) handle(ctx context.Context, body []byte) outcome {
	var raw domain.RawLocationSample
	if err := json.Unmarshal(body, &raw); err != nil {
		c.log.Warn().Err(err).Msg("undecodable location message")
		return reject
	}

	_, err := c.ingest.Ingest(ctx, raw)
	switch {
	case err == nil:
		return ack
	case errors.Is(err, domain.ErrInvalidSample), errors.Is(err, domain.ErrInvalidCoordinate):
		c.log.Warn().Err(err).Str("rider_id", raw.RiderID).Msg("location message rejected")
		return reject
	default:
		c.log.Error().Err(err).Str("rider_id", raw.RiderID).Msg("location message will be retried")
		return retry
	}
}

func (c *LocationConsumer) settle(d amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = d.Ack(false)
	case reject:
		err = d.Nack(false, false)
	case retry:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.log.Error().Err(err).Msg("settle delivery")
	}
}
