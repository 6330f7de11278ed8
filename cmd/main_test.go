package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/pkg/chat"
	cfgPkg "github.com/xhad/ragchat/pkg/config"
	"github.com/xhad/ragchat/pkg/render"
)

type nopBackend struct{}

func (nopBackend) Chat(ctx context.Context, query string) (*models.Answer, error) {
	return &models.Answer{}, nil
}

func (nopBackend) LoadDocument(ctx context.Context, file models.PendingUpload) error {
	return nil
}

func TestStageFile(t *testing.T) {
	dir := t.TempDir()
	config := &cfgPkg.Config{UI: cfgPkg.UIConfig{AcceptExtension: ".jsonl"}}

	tests := []struct {
		name     string
		file     string
		wantNote bool
	}{
		{name: "expected extension", file: "docs.jsonl"},
		{name: "other extension is still staged", file: "notes.txt", wantNote: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(`{"text":"x"}`), 0644))

			var out bytes.Buffer
			controller := chat.New(nopBackend{})
			stageFile(config, render.New(&out, false), controller, path)

			file, ok := controller.StagedFile()
			require.True(t, ok)
			assert.Equal(t, tt.file, file.Name)
			assert.Equal(t, tt.wantNote, bytes.Contains(out.Bytes(), []byte("Note:")))
		})
	}
}

func TestStageMissingFile(t *testing.T) {
	var out bytes.Buffer
	controller := chat.New(nopBackend{})

	stageFile(&cfgPkg.Config{}, render.New(&out, false), controller, filepath.Join(t.TempDir(), "missing.jsonl"))

	_, ok := controller.StagedFile()
	assert.False(t, ok)
}

func TestUploadProgressDisabled(t *testing.T) {
	w := uploadProgress(false)(models.PendingUpload{Name: "a.jsonl"}, 10)
	assert.Nil(t, w)
}

func TestShowHistoryMarksTurnsShown(t *testing.T) {
	var buf bytes.Buffer
	renderer := render.New(&buf, false)
	tracker := render.NewTracker(renderer)

	turns := []models.Turn{
		{Author: models.AuthorUser, Text: "hi"},
		{Author: models.AuthorAssistant, Text: "hello"},
	}
	showHistory(renderer, tracker, turns)
	assert.Equal(t, "You: hi\nAssistant: hello\n", buf.String())

	buf.Reset()
	turns = append(turns,
		models.Turn{Author: models.AuthorUser, Text: "again"},
		models.Turn{Author: models.AuthorAssistant, Text: "hello again"},
	)
	assert.Equal(t, 1, tracker.Render(turns))
	assert.Equal(t, "Assistant: hello again\n", buf.String())
}
