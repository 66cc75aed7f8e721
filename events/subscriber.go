package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTag = "licoreria-pos"

// Subscriber binds an exclusive queue to the fanout exchange the Sales API
// publishes its cues on. Each gateway process sees every cue.
type Subscriber struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	dispatch *Dispatcher
	log      *zap.Logger
}

func Dial(url, exchange string, d *Dispatcher, log *zap.Logger) (*Subscriber, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Subscriber{conn: conn, ch: ch, exchange: exchange, dispatch: d, log: log}, nil
}

// Start declares the queue and consumes on a goroutine until ctx is done or
// the channel closes.
func (s *Subscriber) Start(ctx context.Context) error {
	q, err := s.ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := s.ch.QueueBind(q.Name, "", s.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := s.ch.Consume(q.Name, consumerTag, false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	go s.consume(ctx, msgs)
	return nil
}

func (s *Subscriber) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopping push cue consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				s.log.Warn("push cue channel closed")
				return
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg amqp.Delivery) {
	name, ok := nameFromMessage(msg.RoutingKey, msg.Body)
	if !ok {
		s.log.Debug("unknown push cue", zap.String("routing_key", msg.RoutingKey))
		_ = msg.Ack(false)
		return
	}
	if err := s.dispatch.Dispatch(ctx, name); err != nil {
		// a refetch failure is not worth redelivering; the next cue refetches anyway
		s.log.Warn("push cue handling failed", zap.String("event", string(name)), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

func (s *Subscriber) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}
