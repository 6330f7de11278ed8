package types

import (
	"context"

	"github.com/xhad/ragchat/internal/models"
)

// Backend is the RAG service the conversation talks to.
type Backend interface {
	Chat(ctx context.Context, query string) (*models.Answer, error)
	LoadDocument(ctx context.Context, file models.PendingUpload) error
}
