package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
)

type topicWrite struct {
	topic    string
	messages []kafka.Message
}

type stubProducer struct {
	mu     sync.Mutex
	writes []topicWrite
	err    error
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, topicWrite{topic: topic, messages: msgs})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	calls int
	err   error
}

func (s *stubRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.id, s.err
}

func testMessage(eventType string, id int64) Message {
	return Message{
		EventID:       id,
		TenantID:      "tenant-1",
		AggregateType: "workout",
		AggregateID:   "agg-1",
		EventType:     eventType,
		Topic:         events.TrainingTopic,
		SchemaSubject: events.SchemaSubject(eventType),
		PartitionKey:  "tenant-1:user-1",
		Payload:       []byte(`{"user_id":"user-1"}`),
	}
}

func newTestDispatcher(producer messageWriter, registry schemaRegistrar) *Dispatcher {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(nil, producer, registry, time.Second, 10, WithDispatcherLogger(logger))
	d.now = func() time.Time { return time.Date(2025, time.October, 27, 20, 0, 0, 0, time.UTC) }
	return d
}

func TestDeliverFramesAndGroupsByTopic(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := newTestDispatcher(producer, registry)

	err := d.deliver(context.Background(), []Message{
		testMessage(events.TypeWorkoutLogged, 1),
		testMessage(events.TypeWorkoutLogged, 2),
		testMessage(events.TypeRestDayLogged, 3),
	})
	require.NoError(t, err)

	require.Len(t, producer.writes, 1)
	write := producer.writes[0]
	require.Equal(t, events.TrainingTopic, write.topic)
	require.Len(t, write.messages, 3)

	first := write.messages[0]
	require.Equal(t, []byte("tenant-1:user-1"), first.Key)
	require.Equal(t, byte(0), first.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(first.Value[1:5]))
	require.JSONEq(t, `{"user_id":"user-1"}`, string(first.Value[5:]))

	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, events.TypeWorkoutLogged, headers["event_type"])
	require.Equal(t, "tenant-1", headers["tenant_id"])
	require.Equal(t, events.SchemaSubject(events.TypeWorkoutLogged), headers["schema_subject"])

	// one registry lookup per subject
	require.Equal(t, 2, registry.calls)
}

func TestDeliverFailures(t *testing.T) {
	d := newTestDispatcher(&stubProducer{}, &stubRegistry{id: 1})
	err := d.deliver(context.Background(), []Message{testMessage("activity.created", 1)})
	require.ErrorContains(t, err, "no schema metadata")

	registryErr := errors.New("registry down")
	d = newTestDispatcher(&stubProducer{}, &stubRegistry{err: registryErr})
	err = d.deliver(context.Background(), []Message{testMessage(events.TypeHikeLogged, 1)})
	require.ErrorIs(t, err, registryErr)

	writeErr := errors.New("kafka write failed")
	d = newTestDispatcher(&stubProducer{err: writeErr}, &stubRegistry{id: 1})
	err = d.deliver(context.Background(), []Message{testMessage(events.TypeHikeLogged, 1)})
	require.ErrorIs(t, err, writeErr)
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte("{}"))
	require.Equal(t, []byte{0, 0, 0, 1, 2, '{', '}'}, frame)
}

func TestBackoffDelay(t *testing.T) {
	require.Equal(t, time.Minute, backoffDelay(time.Minute, 1))
	require.Equal(t, 4*time.Minute, backoffDelay(time.Minute, 3))
	require.Equal(t, time.Minute, backoffDelay(time.Minute, 0))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 8))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 64))
}

func TestNewDLQReplayerDefaults(t *testing.T) {
	r := NewDLQReplayer(nil, 0, 0, nil)
	require.Equal(t, 5, r.maxRetries)
	require.Equal(t, time.Minute, r.baseDelay)
	require.Equal(t, logrus.StandardLogger(), r.logger)
}

func TestKafkaProducerReusesWriterPerTopic(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"}, WithBatchTimeout(5*time.Millisecond))

	first := producer.writer(events.TrainingTopic)
	require.Same(t, first, producer.writer(events.TrainingTopic))
	require.NotSame(t, first, producer.writer("training_events_replay"))
	require.Equal(t, 5*time.Millisecond, first.BatchTimeout)
	require.IsType(t, &kafka.Hash{}, first.Balancer)

	require.NoError(t, producer.Close())
	require.Empty(t, producer.writers)
}
