package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
)

// ProducerOption configures a KafkaProducer.
type ProducerOption func(*KafkaProducer)

// WithBatchTimeout bounds how long a writer waits to fill a batch. The dispatcher already
// batches, so the default is short.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(p *KafkaProducer) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// KafkaProducer publishes training events, holding one writer per topic.
type KafkaProducer struct {
	brokers      []string
	batchTimeout time.Duration

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer. Writers are created on first use of a topic.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		brokers:      brokers,
		batchTimeout: 50 * time.Millisecond,
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages publishes msgs to topic and records the publish latency.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	started := time.Now()
	err := p.writer(topic).WriteMessages(ctx, msgs...)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	publishDuration.WithLabelValues(topic, outcome).Observe(time.Since(started).Seconds())
	return err
}

func (p *KafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	// Keys are tenant:user, so the hash balancer keeps one user's events on one partition and in
	// order for the readiness consumer.
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: p.batchTimeout,
	}
	p.writers[topic] = w
	return w
}

// Close releases all writers and reports every close failure.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for topic, w := range p.writers {
		err = multierr.Append(err, w.Close())
		delete(p.writers, topic)
	}
	return err
}
