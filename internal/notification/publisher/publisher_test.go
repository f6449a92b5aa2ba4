package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"licensing/internal/notification"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func sampleEvent() notification.Event {
	return notification.Event{
		ID:          uuid.New(),
		Type:        notification.EventLicenseIssued,
		AggregateID: "candidate-1",
		Payload:     json.RawMessage(`{"number":"DL-ID-2025-00000001"}`),
		CreatedAt:   time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublish(t *testing.T) {
	t.Run("records are keyed by aggregate", func(t *testing.T) {
		p := &fakeProducer{}
		k := NewKafka(p, "licensing.notifications")
		e := sampleEvent()

		require.NoError(t, k.Publish(context.Background(), []notification.Event{e}))
		require.Len(t, p.records, 1)
		rec := p.records[0]
		assert.Equal(t, "licensing.notifications", rec.Topic)
		assert.Equal(t, []byte("candidate-1"), rec.Key)
		assert.JSONEq(t, `{"number":"DL-ID-2025-00000001"}`, string(rec.Value))
		assert.Equal(t, "license_issued", string(rec.Headers[1].Value))
	})

	t.Run("broker errors are returned", func(t *testing.T) {
		p := &fakeProducer{err: errors.New("not leader")}
		err := NewKafka(p, "t").Publish(context.Background(), []notification.Event{sampleEvent()})
		assert.ErrorContains(t, err, "not leader")
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		p := &fakeProducer{}
		require.NoError(t, NewKafka(p, "t").Publish(context.Background(), nil))
		assert.Empty(t, p.records)
	})
}

func TestLogPublish(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, l.Publish(context.Background(), []notification.Event{sampleEvent()}))
	assert.Contains(t, buf.String(), `"event_type":"license_issued"`)
}
