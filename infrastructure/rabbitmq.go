package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"postulaciones/domain"
)

// LedgerMessage is a verification attempt travelling through the queue.
type LedgerMessage struct {
	Code             string    `json:"codigoCertificado"`
	QueryPayload     string    `json:"datosQR"`
	ResolvedSnapshot *string   `json:"datosVerificados"`
	VerifiedAt       time.Time `json:"fechaVerificacion"`
	SourceAddress    string    `json:"ipVerificacion"`
	Channel          string    `json:"canal"`
}

func NewLedgerMessage(v domain.Verification) LedgerMessage {
	return LedgerMessage{
		Code:             v.Code,
		QueryPayload:     v.QueryPayload,
		ResolvedSnapshot: v.ResolvedSnapshot,
		VerifiedAt:       v.VerifiedAt.UTC(),
		SourceAddress:    v.SourceAddress,
		Channel:          v.Channel,
	}
}

func (m LedgerMessage) Verification() domain.Verification {
	return domain.Verification{
		Code:             m.Code,
		QueryPayload:     m.QueryPayload,
		ResolvedSnapshot: m.ResolvedSnapshot,
		VerifiedAt:       m.VerifiedAt.UTC(),
		SourceAddress:    m.SourceAddress,
		Channel:          m.Channel,
	}
}

// RabbitMQ publishes ledger entries to a durable queue and consumes them in
// the ledger worker.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	mu      sync.Mutex
	log     zerolog.Logger
}

func NewRabbitMQ(url, queueName string, log zerolog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}

	q, err := ch.QueueDeclare(
		queueName, // queue name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to declare queue")
	}

	log.Info().Str("queue", q.Name).Msg("connected to RabbitMQ and declared queue")
	return &RabbitMQ{conn: conn, channel: ch, queue: q, log: log}, nil
}

// Append publishes the entry. It satisfies domain.LedgerSink so the API can
// hand ledger writes to the worker.
func (r *RabbitMQ) Append(ctx context.Context, entry *domain.Verification) error {
	body, err := json.Marshal(NewLedgerMessage(*entry))
	if err != nil {
		return errors.Wrap(err, "rabbitmq.Append: encode")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    entry.VerifiedAt,
			Body:         body,
		},
	)
	return errors.Wrap(err, "rabbitmq.Append: publish")
}

// ConsumeLedger stores every queued entry with sink until ctx is done.
// Entries that fail to store are requeued once, then dropped.
func (r *RabbitMQ) ConsumeLedger(ctx context.Context, sink domain.LedgerSink, onResult func(ok bool)) error {
	if err := r.channel.Qos(16, 0, false); err != nil {
		return errors.Wrap(err, "failed to set prefetch")
	}
	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		r.queue.Name,
		"ledger-worker",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "failed to register consumer")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("ledger delivery channel closed")
			}
			stored := r.handleDelivery(ctx, d, sink)
			if onResult != nil {
				onResult(stored)
			}
		}
	}
}

func (r *RabbitMQ) handleDelivery(ctx context.Context, d amqp.Delivery, sink domain.LedgerSink) bool {
	var msg LedgerMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		r.log.Warn().Err(err).Msg("invalid ledger message format")
		_ = d.Nack(false, false)
		return false
	}

	entry := msg.Verification()
	if err := sink.Append(ctx, &entry); err != nil {
		r.log.Error().Err(err).Str("code", msg.Code).Bool("redelivered", d.Redelivered).Msg("failed to store ledger entry")
		_ = d.Nack(false, !d.Redelivered)
		return false
	}
	_ = d.Ack(false)
	return true
}

func (r *RabbitMQ) Close() error {
	if r == nil {
		return nil
	}
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
