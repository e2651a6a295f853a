package extractor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/service/extractor"
)

var _ interfaces.FeatureExtractor = (*extractor.Client)(nil)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPost)
		gt.Value(t, r.Header.Get("Content-Type")).Equal("image/png")
		body, err := io.ReadAll(r.Body)
		gt.NoError(t, err).Required()
		gt.Value(t, body).Equal(pngHeader)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.6, 0.8}})
	}))
	defer srv.Close()

	c, err := extractor.New(srv.URL)
	gt.NoError(t, err).Required()

	emb, err := c.Embed(context.Background(), pngHeader)
	gt.NoError(t, err).Required()
	gt.Value(t, emb).Equal([]float32{0.6, 0.8})
}

func TestEmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
		},
		{
			name: "empty embedding",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"embedding":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, err := extractor.New(srv.URL)
			gt.NoError(t, err).Required()
			_, err = c.Embed(context.Background(), pngHeader)
			gt.Error(t, err)
		})
	}
}

func TestEmbedRejectsEmptyImage(t *testing.T) {
	c, err := extractor.New("http://127.0.0.1:0")
	gt.NoError(t, err).Required()
	_, err = c.Embed(context.Background(), nil)
	gt.Error(t, err)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := extractor.New("")
	gt.Error(t, err)
}

func TestEmbedRetriesThrottled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[1,0]}`))
	}))
	defer srv.Close()

	c, err := extractor.New(srv.URL)
	gt.NoError(t, err).Required()

	start := time.Now()
	emb, err := c.Embed(context.Background(), pngHeader)
	gt.NoError(t, err).Required()
	gt.Value(t, emb).Equal([]float32{1, 0})
	gt.Value(t, calls.Load()).Equal(int32(2))
	gt.Bool(t, time.Since(start) >= time.Second).True()
}

func TestEmbedGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := extractor.New(srv.URL, extractor.WithMaxRetries(0))
	gt.NoError(t, err).Required()

	_, err = c.Embed(context.Background(), pngHeader)
	gt.Error(t, err)
	gt.Value(t, calls.Load()).Equal(int32(1))
}

func TestEmbedTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := extractor.New(srv.URL, extractor.WithTimeout(50*time.Millisecond))
	gt.NoError(t, err).Required()

	_, err = c.Embed(context.Background(), pngHeader)
	gt.Error(t, err)
}

func TestEmbedHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1]}`))
	}))
	defer srv.Close()

	c, err := extractor.New(srv.URL, extractor.WithRateLimit(0.001, 1))
	gt.NoError(t, err).Required()

	// first request takes the burst token
	_, err = c.Embed(context.Background(), pngHeader)
	gt.NoError(t, err).Required()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Embed(ctx, pngHeader)
	gt.Error(t, err)
}
