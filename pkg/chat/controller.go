// Package chat holds the conversation state machine: the ordered turn list,
// the query cycle and the staged-upload cycle.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"go.uber.org/zap"
)

const DefaultTimeout = 60 * time.Second

var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrBusy          = errors.New("a request of this kind is already in flight")
	ErrNothingStaged = errors.New("no file staged for upload")
)

// State is an immutable snapshot of the controller, handed to subscribers.
type State struct {
	SessionID    string              `json:"session_id"`
	Turns        []models.Turn       `json:"turns"`
	Loading      bool                `json:"loading"`
	UploadStatus models.UploadStatus `json:"upload_status"`
	StagedFile   string              `json:"staged_file,omitempty"`
	// Version increases with every snapshot handed to subscribers.
	Version uint64 `json:"version"`
}

type Option func(*Controller)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

type Controller struct {
	backend   types.Backend
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
	sessionID string

	// notifyMu keeps subscriber deliveries in snapshot order.
	notifyMu sync.Mutex

	mu           sync.Mutex
	version      uint64
	turns        []models.Turn
	loading      bool
	uploadStatus models.UploadStatus
	staged       *models.PendingUpload
	stagedGen    uint64
	seq          uint64
	subscribers  []func(State)
}

func New(backend types.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:      backend,
		logger:       zap.NewNop(),
		timeout:      DefaultTimeout,
		now:          time.Now,
		sessionID:    uuid.NewString(),
		uploadStatus: models.UploadIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("session_id", c.sessionID))
	return c
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

// Subscribe registers fn to be called with a fresh snapshot after every
// state change. Deliveries are serialized and arrive in version order; fn
// must not submit queries or uploads itself.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// SubmitQuery appends the user turn, asks the backend and appends exactly one
// assistant or system turn with the outcome. It blocks until the request
// resolves or the timeout expires.
func (c *Controller) SubmitQuery(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.seq++
	seq := c.seq
	c.appendLocked(models.Turn{RequestSeq: seq, Author: models.AuthorUser, Text: text})
	c.loading = true
	c.mu.Unlock()
	c.notify()

	log := c.logger.With(zap.Uint64("seq", seq))
	log.Info("query submitted", zap.Int("length", len(text)))

	reply := c.ask(ctx, log, seq, text)

	c.mu.Lock()
	c.appendLocked(reply)
	c.loading = false
	c.mu.Unlock()
	c.notify()

	return nil
}

func (c *Controller) ask(ctx context.Context, log *zap.Logger, seq uint64, text string) models.Turn {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	answer, err := c.backend.Chat(ctx, text)
	if err != nil {
		log.Warn("query failed", zap.Error(err))
		return models.Turn{RequestSeq: seq, Author: models.AuthorSystem, Text: queryFailureText(err)}
	}

	log.Info("query answered",
		zap.Duration("elapsed", c.now().Sub(start)),
		zap.Int("source_count", len(answer.Sources)),
	)

	reply := models.Turn{
		RequestSeq: seq,
		Author:     models.AuthorAssistant,
		Text:       answer.Text,
		Sources:    answer.Sources,
	}
	if reply.Text == "" {
		reply.Text = NoAnswerText
	}
	if reply.Sources == nil {
		reply.Sources = []models.Citation{}
	}
	return reply
}

// appendLocked must be called with c.mu held.
func (c *Controller) appendLocked(turn models.Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = c.now()
	}
	c.turns = append(c.turns, turn)
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.version++
	state := c.snapshotLocked()
	subscribers := make([]func(State), len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}

func (c *Controller) snapshotLocked() State {
	state := State{
		SessionID:    c.sessionID,
		Turns:        append([]models.Turn(nil), c.turns...),
		Loading:      c.loading,
		UploadStatus: c.uploadStatus,
		Version:      c.version,
	}
	if c.staged != nil {
		state.StagedFile = c.staged.Name
	}
	return state
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Turns() []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Turn(nil), c.turns...)
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
