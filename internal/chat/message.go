// Package chat implements the shared message log: an ordered,
// heterogeneous sequence of text and file messages with attachment
// lifecycle coupling.
package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/mehdiakbarifar/chavosh/internal/util"
)

type Kind string

const (
	KindText Kind = "text"
	KindFile Kind = "file"
)

const maxAuthorLen = 120

// Message is a single log entry. Exactly one of HTML (text) or File
// (file) is populated, keyed by Kind. Messages are never mutated after
// append.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Kind      Kind      `json:"type"`
	HTML      string    `json:"html,omitempty"`
	File      *FileInfo `json:"file,omitempty"`
	CreatedAt time.Time `json:"date"`
}

// FileInfo describes the attachment owned by a file message. Ref is the
// opaque storage reference; URL the public retrieval path.
type FileInfo struct {
	Ref      string `json:"storageRef"`
	URL      string `json:"url"`
	Name     string `json:"originalName"`
	Size     int64  `json:"sizeBytes"`
	MimeType string `json:"mimeType,omitempty"`
}

// NewID builds a message id from the millisecond clock plus a random
// suffix, so ids rise with insertion order and never collide even under
// rapid succession.
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + util.Suffix(4)
}

func trimAuthor(author string) string {
	author = strings.TrimSpace(author)
	if runes := []rune(author); len(runes) > maxAuthorLen {
		author = string(runes[:maxAuthorLen])
	}
	return author
}
