package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an eino embedding component returning scripted responses.
type fakeClient struct {
	mu       sync.Mutex
	calls    [][]string
	failures int
	err      error
	dims     []int
}

func (f *fakeClient) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		dim := 3
		if len(f.dims) > 0 {
			dim = f.dims[0]
			f.dims = f.dims[1:]
		}
		v := make([]float64, dim)
		v[0] = float64(len(texts[i]))
		v[dim-1] = 1
		out[i] = v
	}
	return out, nil
}

func TestRemoteEmbedder_BatchesAndNormalizes(t *testing.T) {
	client := &fakeClient{}
	e := NewRemoteEmbedder(client, RemoteConfig{BatchSize: 2})

	out, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, client.calls, 2)
	assert.Equal(t, []string{"ccc"}, client.calls[1])
	assert.Equal(t, 3, e.Dimensions())
	for _, v := range out {
		assert.InDelta(t, 1.0, cosine(v, v), 1e-5)
	}
	// "ccc" has the largest first component.
	assert.Greater(t, out[2][0], out[0][0])
}

func TestRemoteEmbedder_RetriesTransientFailures(t *testing.T) {
	client := &fakeClient{failures: 2, err: errors.New("503 service unavailable")}
	e := NewRemoteEmbedder(client, RemoteConfig{MaxRetries: 2, RetryBaseDelay: time.Millisecond})

	v, err := e.Embed(context.Background(), "rent")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Len(t, client.calls, 3)
}

func TestRemoteEmbedder_GivesUpAfterMaxRetries(t *testing.T) {
	client := &fakeClient{failures: 5, err: errors.New("boom")}
	e := NewRemoteEmbedder(client, RemoteConfig{MaxRetries: 1, RetryBaseDelay: time.Millisecond})

	_, err := e.Embed(context.Background(), "rent")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrEmbeddingFailure)
	assert.Len(t, client.calls, 2)
}

func TestRemoteEmbedder_DimensionChange(t *testing.T) {
	client := &fakeClient{dims: []int{3, 4}}
	e := NewRemoteEmbedder(client, RemoteConfig{})
	_, err := e.Embed(context.Background(), "a")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "b")
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
}

func TestRemoteEmbedder_EmptyText(t *testing.T) {
	client := &fakeClient{}
	e := NewRemoteEmbedder(client, RemoteConfig{})
	_, err := e.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, errs.ErrEmbeddingFailure)
	assert.Empty(t, client.calls)
}

// slowClient blocks until the request context ends.
type slowClient struct{}

func (slowClient) EmbedStrings(ctx context.Context, _ []string, _ ...einoembed.Option) ([][]float64, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("request aborted: %w", ctx.Err())
}

func TestRemoteEmbedder_Timeout(t *testing.T) {
	e := NewRemoteEmbedder(slowClient{}, RemoteConfig{Timeout: 10 * time.Millisecond})
	_, err := e.Embed(context.Background(), "rent")
	assert.ErrorIs(t, err, errs.ErrTimeout)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(200*time.Millisecond, 0))
	assert.Equal(t, 800*time.Millisecond, retryDelay(200*time.Millisecond, 2))
	assert.Equal(t, 5*time.Second, retryDelay(200*time.Millisecond, 10))
}
