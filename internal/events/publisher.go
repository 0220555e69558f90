package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ingressos-web/internal/logger"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Exchange names, one fanout exchange per outcome.
// PaymentCreated covers payments awaiting settlement, such as a Pix QR code
// or a boleto that was issued but not paid yet.
const (
	PaymentCreated  = "checkout.payment_created"
	PaymentApproved = "checkout.payment_approved"
	PaymentFailed   = "checkout.payment_failed"
	TransferFailed  = "checkout.transfer_failed"
)

var exchanges = []string{PaymentCreated, PaymentApproved, PaymentFailed, TransferFailed}

// Event is the JSON body published for a checkout outcome. Share tokens
// only travel as fingerprints.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id,omitempty"`
	BillingType  string    `json:"billing_type"`
	Amount       string    `json:"amount"`
	PaymentID    string    `json:"payment_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ShareTokenFP string    `json:"share_token_fp,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   amqpChannel
}

// Dial connects to RabbitMQ and declares the outcome exchanges.
func Dial(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newAMQPPublisher(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel) (*AMQPPublisher, error) {
	for _, name := range exchanges {
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// *amqp.Channel is not safe for concurrent publishers.
	p.mu.Lock()
	err = p.ch.Publish(ev.Type, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	p.mu.Unlock()

	if err != nil {
		logger.FromCtx(ctx).Error("failed to publish checkout event",
			zap.String("exchange", ev.Type),
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	logger.FromCtx(ctx).Debug("checkout event published",
		zap.String("exchange", ev.Type),
		zap.String("event_id", ev.ID),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Nop drops every event. Used when RABBITMQ_URL is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
