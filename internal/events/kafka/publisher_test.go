package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), "42", map[string]any{"transaction_id": 42})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "42", string(w.msgs[0].Key))
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.EqualValues(t, 42, got["transaction_id"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishReturnsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Publisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), "1", struct{}{})
	assert.ErrorIs(t, err, boom)
}

func TestPublishRejectsUnmarshalableEvent(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{}}

	err := p.Publish(context.Background(), "1", make(chan int))
	assert.Error(t, err)
}
