package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadMsg struct {
	Reason string `json:"reason"`
}

func TestDecodeJSON(t *testing.T) {
	msg, err := DecodeJSON[reloadMsg]([]byte(`{"reason":"new documents"}`))
	require.NoError(t, err)
	assert.Equal(t, "new documents", msg.Reason)

	_, err = DecodeJSON[reloadMsg]([]byte(`{`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestEncodeSkipsUnencodableEvents(t *testing.T) {
	msgs, errs := encode([]Event{
		{Key: "q1", Value: reloadMsg{Reason: "ok"}},
		{Key: "bad", Value: make(chan int)},
		{Key: "q2", Value: map[string]int{"hits": 3}},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "q1", string(msgs[0].Key))
	assert.JSONEq(t, `{"reason":"ok"}`, string(msgs[0].Value))
	assert.Equal(t, "q2", string(msgs[1].Key))

	require.Error(t, errs.ErrorOrNil())
	assert.Len(t, errs.Errors, 1)
	assert.Contains(t, errs.Error(), `key "bad"`)
}

func TestDispatchCountsOutcomes(t *testing.T) {
	c := &Consumer{
		handler: func(_ context.Context, key, _ []byte) error {
			if string(key) == "poison" {
				return errors.New("cannot handle")
			}
			return nil
		},
		logger: slog.Default(),
	}
	c.dispatch(context.Background(), kafkago.Message{Key: []byte("ok")})
	c.dispatch(context.Background(), kafkago.Message{Key: []byte("poison")})
	c.dispatch(context.Background(), kafkago.Message{Key: []byte("ok")})
	assert.Equal(t, ConsumerStats{Processed: 2, Failed: 1}, c.Stats())
}
