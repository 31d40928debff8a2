package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a consumed message.
const (
	outcomeProcessed   = "processed"
	outcomeSkipped     = "skipped"
	outcomeFailed      = "handler_error"
	outcomeUndecodable = "decode_error"
)

var (
	messageCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readiness_service",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Training events read from Kafka, by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	recomputeDelay = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "readiness_service",
		Subsystem: "consumer",
		Name:      "recompute_delay_seconds",
		Help:      "Time from a training event being written to Kafka until readiness was recomputed for it.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"event_type"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "readiness_service",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent processed training event per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messageCounter, recomputeDelay, lastMessageGauge)
}

func observe(msg Message, outcome string, now time.Time) {
	messageCounter.WithLabelValues(msg.Topic, msg.EventType, outcome).Inc()
	if outcome != outcomeProcessed || msg.Timestamp.IsZero() {
		return
	}
	lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	if delay := now.Sub(msg.Timestamp); delay >= 0 {
		recomputeDelay.WithLabelValues(msg.EventType).Observe(delay.Seconds())
	}
}
