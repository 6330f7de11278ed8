// Package backend is the HTTP client for the RAG backend's chat and
// document-loading endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/xhad/ragchat/internal/models"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL      string
	ChatEndpoint string
	LoadEndpoint string
	Logger       *zap.Logger
}

// Client talks to the backend. It carries no cookie jar and sends no
// credentials.
type Client struct {
	baseURL      string
	chatEndpoint string
	loadEndpoint string
	httpClient   *http.Client
	logger       *zap.Logger
	progress     ProgressFunc
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		chatEndpoint: cfg.ChatEndpoint,
		loadEndpoint: cfg.LoadEndpoint,
		httpClient:   &http.Client{Transport: http.DefaultTransport},
		logger:       cfg.Logger,
	}
	if c.chatEndpoint == "" {
		c.chatEndpoint = "/chat"
	}
	if c.loadEndpoint == "" {
		c.loadEndpoint = "/load_documents"
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Answer  string         `json:"answer"`
	Sources []sourceRecord `json:"sources"`
}

type sourceRecord struct {
	Source flexString `json:"source"`
	ID     flexString `json:"id"`
}

// flexString accepts a JSON string, number or bool and keeps its text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(raw)
	return nil
}

// Chat sends the query to the chat endpoint. Missing answer text is returned
// as an empty string; callers decide on the fallback.
func (c *Client) Chat(ctx context.Context, query string) (*models.Answer, error) {
	payload, err := json.Marshal(chatRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.chatEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	answer := &models.Answer{
		Text:    resp.Answer,
		Sources: make([]models.Citation, 0, len(resp.Sources)),
	}
	for i, src := range resp.Sources {
		answer.Sources = append(answer.Sources, models.Citation{
			Source:   string(src.Source),
			ID:       string(src.ID),
			Position: i,
		})
	}

	c.logger.Debug("chat answered",
		zap.Int("answer_length", len(answer.Text)),
		zap.Int("source_count", len(answer.Sources)),
	)
	return answer, nil
}

// LoadDocument uploads the file as multipart field "file" to the document
// loading endpoint.
func (c *Client) LoadDocument(ctx context.Context, file models.PendingUpload) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	size := int64(body.Len())
	var reader io.Reader = body
	if c.progress != nil {
		if w := c.progress(file, size); w != nil {
			reader = io.TeeReader(body, w)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loadEndpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	if _, err := c.do(req); err != nil {
		return err
	}

	c.logger.Info("document loaded",
		zap.String("filename", file.Name),
		zap.Int64("size", file.Size()),
	)
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	// a body cut off mid-read is a transport failure, the same as no response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend returned error status",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
		)
		return nil, newHTTPError(resp.StatusCode, body)
	}
	return body, nil
}
