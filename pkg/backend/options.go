package backend

import (
	"io"
	"net/http"

	"github.com/xhad/ragchat/internal/models"
	"go.uber.org/zap"
)

type Option func(*Client)

type TransportFunc func(http.RoundTripper) http.RoundTripper

// ProgressFunc returns a writer that receives every byte of an upload body
// as it is sent. A nil writer disables progress for that upload.
type ProgressFunc func(file models.PendingUpload, total int64) io.Writer

func WithTransport(transport TransportFunc) Option {
	return func(c *Client) {
		rt := c.httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		clone := *c.httpClient
		clone.Transport = transport(rt)
		c.httpClient = &clone
	}
}

func WithUploadProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

type logTransport struct {
	transport http.RoundTripper
	logger    *zap.Logger
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.logger.Debug("HTTP outbound request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int64("content_length", req.ContentLength),
	)

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		t.logger.Debug("HTTP outbound request failed", zap.Error(err))
		return nil, err
	}

	t.logger.Debug("HTTP inbound response",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

// WithRequestLogging logs method, URL and status of every request at debug
// level.
func WithRequestLogging() Option {
	return func(c *Client) {
		logger := c.logger
		WithTransport(func(rt http.RoundTripper) http.RoundTripper {
			return &logTransport{transport: rt, logger: logger}
		})(c)
	}
}
