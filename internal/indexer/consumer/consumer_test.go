package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
)

type fakeReloader struct {
	live  *index.Corpus
	calls int
	err   error
}

func (f *fakeReloader) Corpus() *index.Corpus { return f.live }

func (f *fakeReloader) Reload(ctx context.Context) (*index.Corpus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, err := index.Build([]index.RawDocument{{Name: "a.txt", Text: "cat"}})
	if err == nil {
		f.live = c
	}
	return c, err
}

func TestHandleMessage(t *testing.T) {
	r := &fakeReloader{}
	h := HandleMessage(r)

	require.NoError(t, h(context.Background(), []byte("reload"), []byte(`{"reason":"new files","requested_by":"cli"}`)))
	assert.Equal(t, 1, r.calls)

	assert.ErrorContains(t, h(context.Background(), nil, []byte(`not json`)), "decoding kafka message")
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("source unavailable")
	err := h(context.Background(), nil, []byte(`{"reason":"retry"}`))
	assert.ErrorContains(t, err, "source unavailable")
}

func TestHandleMessageSkipsSatisfiedRequests(t *testing.T) {
	r := &fakeReloader{}
	h := HandleMessage(r)
	require.NoError(t, h(context.Background(), nil, []byte(`{"reason":"first"}`)))
	require.Equal(t, 1, r.calls)

	stale := r.live.BuiltAt.Add(-time.Minute).Format(time.RFC3339Nano)
	require.NoError(t, h(context.Background(), nil, []byte(`{"reason":"burst","requested_at":"`+stale+`"}`)))
	assert.Equal(t, 1, r.calls)

	fresh := r.live.BuiltAt.Add(time.Minute).Format(time.RFC3339Nano)
	require.NoError(t, h(context.Background(), nil, []byte(`{"reason":"later","requested_at":"`+fresh+`"}`)))
	assert.Equal(t, 2, r.calls)
}
