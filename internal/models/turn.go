package models

import (
	"fmt"
	"time"
)

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
	AuthorSystem    Author = "system"
)

// Citation is a backend-supplied reference to a document backing an answer.
type Citation struct {
	Source   string `json:"source,omitempty"`
	ID       string `json:"id,omitempty"`
	Position int    `json:"position"`
}

// Label returns the display name of the citation.
func (c Citation) Label() string {
	switch {
	case c.Source != "" && c.ID != "":
		return fmt.Sprintf("%s (ID: %s)", c.Source, c.ID)
	case c.Source != "":
		return c.Source
	case c.ID != "":
		return "Document #" + c.ID
	default:
		return fmt.Sprintf("Document #%d", c.Position)
	}
}

type Turn struct {
	RequestSeq uint64     `json:"request_seq"`
	Author     Author     `json:"author"`
	Text       string     `json:"text"`
	Sources    []Citation `json:"sources,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Answer is the successful result of a chat request.
type Answer struct {
	Text    string
	Sources []Citation
}

type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadSucceeded UploadStatus = "succeeded"
)

// PendingUpload is a single file staged in memory until it is uploaded.
type PendingUpload struct {
	Name    string
	Content []byte
}

func (p PendingUpload) Size() int64 {
	return int64(len(p.Content))
}
