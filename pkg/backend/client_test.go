package backend_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/pkg/backend"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...backend.Option) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.New(backend.Config{BaseURL: srv.URL + "/"}, opts...)
}

func TestChat(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Cookie"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is the capital of France?", req["query"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer":"Paris","sources":[{"source":"doc1.txt","id":"7"},{"id":12},{"page":3}]}`)
	})

	answer, err := client.Chat(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "Paris", answer.Text)
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, "doc1.txt (ID: 7)", answer.Sources[0].Label())
	assert.Equal(t, "Document #12", answer.Sources[1].Label())
	assert.Equal(t, "Document #2", answer.Sources[2].Label())
}

func TestChatMissingFields(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	answer, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestChatHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantReason  string
		wantDetail  bool
	}{
		{
			name:        "structured message",
			status:      http.StatusServiceUnavailable,
			body:        `{"error":"LLM service unavailable","message":"LM Studio is not running"}`,
			wantMessage: "LM Studio is not running",
			wantReason:  "LLM service unavailable",
			wantDetail:  true,
		},
		{
			name:   "bad gateway without body",
			status: http.StatusBadGateway,
		},
		{
			name:   "html body",
			status: http.StatusInternalServerError,
			body:   "<html><body>oops</body></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.Chat(context.Background(), "q")
			require.Error(t, err)

			var httpErr *backend.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.wantMessage, httpErr.Message())
			assert.Equal(t, tt.wantReason, httpErr.Reason())
			assert.Equal(t, tt.wantDetail, httpErr.Detail != nil)
		})
	}
}

func TestChatNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := backend.New(backend.Config{BaseURL: url})
	_, err := client.Chat(context.Background(), "q")

	var netErr *backend.NetworkError
	require.True(t, errors.As(err, &netErr))
}

func TestChatTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, "q")

	var netErr *backend.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestChatTimeoutWhileReadingBody(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"answer":`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, "q")

	var netErr *backend.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLoadDocument(t *testing.T) {
	content := []byte("{\"text\":\"hello\"}\n{\"text\":\"world\"}\n")

	var progress bytes.Buffer
	var reportedTotal int64

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/load_documents", r.URL.Path)

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "docs.jsonl", header.Filename)
		assert.Equal(t, content, got)

		io.WriteString(w, `{"status":"ok"}`)
	}, backend.WithUploadProgress(func(file models.PendingUpload, total int64) io.Writer {
		reportedTotal = total
		return &progress
	}))

	err := client.LoadDocument(context.Background(), models.PendingUpload{Name: "docs.jsonl", Content: content})
	require.NoError(t, err)

	assert.Positive(t, reportedTotal)
	assert.EqualValues(t, reportedTotal, progress.Len())
}

func TestLoadDocumentRejected(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"Only .jsonl files are supported"}`)
	})

	err := client.LoadDocument(context.Background(), models.PendingUpload{Name: "a.txt", Content: []byte("x")})

	var httpErr *backend.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "Only .jsonl files are supported", httpErr.Reason())
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"answer":"ok"}`)
	}))
	defer srv.Close()

	client := backend.New(backend.Config{BaseURL: srv.URL, Logger: zap.New(core)}, backend.WithRequestLogging())
	_, err := client.Chat(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("HTTP outbound request").Len())
	assert.Equal(t, 1, logs.FilterMessage("HTTP inbound response").Len())
}
