package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "fern-events", testLogger())

	err := producer.Publish(context.Background(), &Event{
		EventType:  "candidate.created",
		EntityID:   "c-1",
		EntityType: "candidate",
		Data:       json.RawMessage(`{"candidate_name":"Ram Lal"}`),
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "fern-events", msg.Topic)
	assert.Equal(t, "c-1", string(msg.Key))
	assert.Equal(t, "candidate.created", header(msg, "event_type"))
	assert.Equal(t, "candidate", header(msg, "entity_type"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "candidate.created", decoded.EventType)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestProducer_PublishError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	producer := NewProducerWithWriter(writer, "fern-events", testLogger())

	err := producer.Publish(context.Background(), &Event{EventType: "employee.registered", EntityID: "e-1"})
	assert.EqualError(t, err, "broker down")
}

func TestProducer_PublishBatch(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "fern-events", testLogger())

	require.NoError(t, producer.PublishBatch(context.Background(), nil))
	assert.Empty(t, writer.messages)

	err := producer.PublishBatch(context.Background(), []*Event{
		{EventType: "candidate.history_recomputed", EntityID: "a"},
		{EventType: "candidate.history_recomputed", EntityID: "b"},
	})
	require.NoError(t, err)
	assert.Len(t, writer.messages, 2)
}
