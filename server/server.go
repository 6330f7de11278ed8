// Package server exposes one chat controller per WebSocket connection so a
// browser page can drive the conversation. The backend URL is derived from
// the host the page was served from.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/chat"
	"github.com/xhad/ragchat/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	TypeQuery      = "query"
	TypeSelectFile = "select_file"
	TypeUpload     = "upload"
	TypeState      = "state"
	TypeError      = "error"
)

// Message is one WebSocket frame. Data holds the base64 file bytes of a
// select_file frame and the controller snapshot of a state frame.
type Message struct {
	Type     string          `json:"type"`
	Content  string          `json:"content,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// BackendFactory builds the backend client for a connection.
type BackendFactory func(baseURL string) types.Backend

type WSServer struct {
	config     config.Config
	logger     *zap.Logger
	newBackend BackendFactory
	upgrader   websocket.Upgrader
}

func NewWSServer(cfg config.Config, logger *zap.Logger, newBackend BackendFactory) *WSServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSServer{
		config:     cfg,
		logger:     logger,
		newBackend: newBackend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe runs until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting WebSocket server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *WSServer) backendURL(r *http.Request) string {
	if s.config.Backend.URL != "" {
		return s.config.Backend.URL
	}
	return s.config.Backend.URLForHost(r.Host)
}

type session struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	controller *chat.Controller
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	baseURL := s.backendURL(r)
	controller := chat.New(s.newBackend(baseURL),
		chat.WithTimeout(s.config.Backend.Timeout),
		chat.WithLogger(s.logger),
	)

	sess := &session{
		conn:       conn,
		controller: controller,
		limiter:    rate.NewLimiter(rate.Limit(s.config.Server.RateLimit), s.config.Server.Burst),
		logger:     s.logger.With(zap.String("session_id", controller.SessionID())),
	}
	sess.logger.Info("session opened", zap.String("backend", baseURL), zap.String("remote", r.RemoteAddr))

	controller.Subscribe(sess.sendState)
	sess.sendState(controller.State())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			sess.logger.Info("session closed", zap.Error(err))
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("invalid message")
			continue
		}

		if !sess.limiter.Allow() {
			sess.sendError("rate limit exceeded, slow down")
			continue
		}

		go sess.handleMessage(msg)
	}
}

func (sess *session) handleMessage(msg Message) {
	var err error

	switch msg.Type {
	case TypeQuery:
		err = sess.controller.SubmitQuery(context.Background(), msg.Content)
	case TypeSelectFile:
		if msg.Filename == "" {
			err = errors.New("filename is required")
			break
		}
		var content []byte
		if len(msg.Data) == 0 {
			err = errors.New("data is required")
			break
		}
		if jsonErr := json.Unmarshal(msg.Data, &content); jsonErr != nil {
			err = errors.New("data must be base64 encoded file content")
			break
		}
		sess.controller.SelectFile(msg.Filename, content)
	case TypeUpload:
		err = sess.controller.UploadStaged(context.Background())
	default:
		err = errors.New("unknown message type: " + msg.Type)
	}

	if err != nil {
		sess.sendError(err.Error())
	}
}

func (sess *session) sendState(state chat.State) {
	data, err := json.Marshal(state)
	if err != nil {
		sess.logger.Error("error encoding state", zap.Error(err))
		return
	}
	sess.send(Message{Type: TypeState, Data: data})
}

func (sess *session) sendError(content string) {
	sess.send(Message{Type: TypeError, Content: content})
}

func (sess *session) send(msg Message) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	if err := sess.conn.WriteJSON(msg); err != nil {
		sess.logger.Debug("error sending message", zap.String("type", msg.Type), zap.Error(err))
	}
}
