// Package consumer reads training events from Kafka and keeps readiness read models warm.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// ErrSkip marks a message the handler can never process. The processor commits it.
var ErrSkip = errors.New("message skipped")

// Message is the decoded representation of a Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	TenantID      string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFetchBackoff sets the pause after a failed fetch or handler attempt.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       logrus.FieldLogger
	fetchBackoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:       logrus.StandardLogger().WithField("component", "consumer"),
		fetchBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.WithError(err).Warn("fetch failed")
			if waitErr := p.pause(ctx); waitErr != nil {
				return waitErr
			}
			continue
		}

		log := p.logger.WithFields(logrus.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset})

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			log.WithError(decodeErr).Warn("decode failed, committing malformed message")
			observe(Message{Topic: msg.Topic, EventType: "unknown"}, outcomeUndecodable, time.Now())
			// Commit malformed messages to avoid poison-pill loops.
			p.commit(ctx, log, msg)
			continue
		}

		log = log.WithFields(logrus.Fields{"event_type": event.EventType, "tenant_id": event.TenantID})
		if err := p.deliver(ctx, log, msg, event); err != nil {
			return err
		}
	}
}

// deliver hands the event to the handler until it succeeds or is skipped. Failed messages are
// retried in place; a group reader never re-delivers an offset it has already fetched.
func (p *Processor) deliver(ctx context.Context, log logrus.FieldLogger, msg kafka.Message, event Message) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		handleErr := p.handler.Handle(ctx, event)
		switch {
		case handleErr == nil:
			if p.commit(ctx, log, msg) {
				observe(event, outcomeProcessed, time.Now())
			}
			return nil
		case errors.Is(handleErr, ErrSkip):
			log.WithError(handleErr).Info("handler skipped message")
			observe(event, outcomeSkipped, time.Now())
			p.commit(ctx, log, msg)
			return nil
		}

		log.WithError(handleErr).WithField("attempt", attempt).Error("handler failed, retrying")
		observe(event, outcomeFailed, time.Now())
		if waitErr := p.pause(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (p *Processor) commit(ctx context.Context, log logrus.FieldLogger, msg kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("commit failed")
		return false
	}
	return true
}

func (p *Processor) pause(ctx context.Context) error {
	if p.fetchBackoff <= 0 {
		return nil
	}
	timer := time.NewTimer(p.fetchBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(msg.Value))
	}
	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("unknown wire format magic byte: %d", msg.Value[0])
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	tenantID, _ := headerValue(msg, "tenant_id")
	schemaSubject, _ := headerValue(msg, "schema_subject")

	schemaID := int(binary.BigEndian.Uint32(msg.Value[1:5]))
	payload := json.RawMessage(append([]byte(nil), msg.Value[5:]...))

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		TenantID:      string(tenantID),
		SchemaSubject: string(schemaSubject),
		SchemaID:      schemaID,
		Payload:       payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
