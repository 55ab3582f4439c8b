package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/signlearn/gesture-session/summary"
)

var ErrNotConnected = errors.New("not connected to AMQP server")

type AMQPConfig struct {
	URL   string
	Queue string
}

// AMQPSink publishes summaries as persistent JSON messages on a durable queue.
type AMQPSink struct {
	logger  *logrus.Logger
	config  AMQPConfig
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPSink(logger *logrus.Logger, config AMQPConfig) *AMQPSink {
	return &AMQPSink{logger: logger, config: config}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		return nil
	}
	if s.config.URL == "" || s.config.Queue == "" {
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.Dial(s.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if _, err := ch.QueueDeclare(s.config.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", s.config.Queue, err)
	}

	s.conn, s.channel = conn, ch
	s.logger.WithField("queue", s.config.Queue).Info("Connected to AMQP server")
	return nil
}

func (s *AMQPSink) Send(ctx context.Context, sum summary.Summary) error {
	msg, err := publishing(sum)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return ErrNotConnected
	}
	if err := s.channel.Publish("", s.config.Queue, false, false, msg); err != nil {
		return fmt.Errorf("publish summary %s: %w", sum.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"summary_id": sum.ID,
		"queue":      s.config.Queue,
	}).Debug("Published session summary")
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.channel != nil {
		errs = append(errs, s.channel.Close())
		s.channel = nil
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	return errors.Join(errs...)
}

func publishing(sum summary.Summary) (amqp.Publishing, error) {
	body, err := json.Marshal(sum)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal summary to JSON: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    sum.ID,
		Type:         "session.summary",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}, nil
}
