package chat

import (
	"context"
	"fmt"

	"github.com/xhad/ragchat/internal/models"
	"go.uber.org/zap"
)

// SelectFile stages a file for upload, replacing any file already staged.
// No type checks are made here; the backend decides what it accepts.
func (c *Controller) SelectFile(name string, content []byte) {
	c.mu.Lock()
	c.staged = &models.PendingUpload{Name: name, Content: content}
	c.stagedGen++
	if c.uploadStatus != models.UploadUploading {
		c.uploadStatus = models.UploadIdle
	}
	c.mu.Unlock()

	c.logger.Info("file staged", zap.String("filename", name), zap.Int("size", len(content)))
	c.notify()
}

// UploadStaged sends the staged file to the backend. On success the file is
// cleared and a notice is appended; on failure the file stays staged so the
// user can retry.
func (c *Controller) UploadStaged(ctx context.Context) error {
	c.mu.Lock()
	if c.staged == nil {
		c.mu.Unlock()
		return ErrNothingStaged
	}
	if c.uploadStatus == models.UploadUploading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.seq++
	seq := c.seq
	file := *c.staged
	gen := c.stagedGen
	c.uploadStatus = models.UploadUploading
	c.mu.Unlock()
	c.notify()

	log := c.logger.With(zap.Uint64("seq", seq), zap.String("filename", file.Name))
	log.Info("upload started", zap.Int64("size", file.Size()))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.backend.LoadDocument(ctx, file)
	cancel()

	c.mu.Lock()
	if err != nil {
		log.Warn("upload failed", zap.Error(err))
		c.uploadStatus = models.UploadIdle
		c.appendLocked(models.Turn{RequestSeq: seq, Author: models.AuthorSystem, Text: uploadFailureText(err)})
	} else {
		log.Info("upload succeeded")
		c.uploadStatus = models.UploadSucceeded
		// a file selected while this one was in flight stays staged
		if c.stagedGen == gen {
			c.staged = nil
		}
		c.appendLocked(models.Turn{
			RequestSeq: seq,
			Author:     models.AuthorSystem,
			Text:       fmt.Sprintf(UploadSuccessFormat, file.Name),
		})
	}
	c.mu.Unlock()
	c.notify()

	return nil
}

func (c *Controller) StagedFile() (models.PendingUpload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == nil {
		return models.PendingUpload{}, false
	}
	return *c.staged, true
}

func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadStatus == models.UploadUploading
}

func (c *Controller) UploadSucceeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadStatus == models.UploadSucceeded
}
