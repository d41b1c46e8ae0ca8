package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mehdiakbarifar/chavosh/internal/attach"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrNoFile       = errors.New("no file")
	ErrNotFound     = errors.New("message not found")
)

// Log is the shared in-memory message sequence. Mutations are serialized
// by a mutex; reads copy under the lock so pollers always observe a
// consistent snapshot. Attachment deletion runs outside the critical
// section and is best-effort throughout.
type Log struct {
	mu          sync.Mutex
	attachments attach.Store
	messages    []Message
}

func NewLog(attachments attach.Store) *Log {
	return &Log{attachments: attachments}
}

// PostText appends a text message. html wins over plain when both are
// supplied; bare newlines in plain become line-break markup. Content is
// sanitized before storage and the message is rejected when nothing
// survives.
func (l *Log) PostText(author, html, plain string) (Message, error) {
	content := html
	if strings.TrimSpace(content) == "" {
		content = nl2br(plain)
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyMessage
	}
	sanitized := SanitizeHTML(content)
	if sanitized == "" {
		return Message{}, ErrEmptyMessage
	}

	now := time.Now()
	msg := Message{
		ID:        NewID(now),
		Author:    trimAuthor(author),
		Kind:      KindText,
		HTML:      sanitized,
		CreatedAt: now,
	}
	l.append(msg)
	return msg, nil
}

// PostFile appends a file message. The attachment must already be stored:
// the reference has to be valid at the moment the message becomes
// visible.
func (l *Log) PostFile(author string, file FileInfo) (Message, error) {
	if file.Ref == "" {
		return Message{}, ErrNoFile
	}
	now := time.Now()
	msg := Message{
		ID:        NewID(now),
		Author:    trimAuthor(author),
		Kind:      KindFile,
		File:      &file,
		CreatedAt: now,
	}
	l.append(msg)
	return msg, nil
}

// List returns a point-in-time snapshot in insertion order.
func (l *Log) List() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.messages...)
}

// DeleteOne removes the message with the given id. A file message's
// attachment is removed best-effort; a failed removal never blocks the
// deletion itself.
func (l *Log) DeleteOne(ctx context.Context, id string) error {
	l.mu.Lock()
	idx := -1
	for i, msg := range l.messages {
		if msg.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		l.mu.Unlock()
		return ErrNotFound
	}
	removed := l.messages[idx]
	l.messages = append(l.messages[:idx], l.messages[idx+1:]...)
	l.mu.Unlock()

	if removed.Kind == KindFile && removed.File != nil {
		l.removeAttachment(ctx, removed.File.Ref)
	}
	return nil
}

// DeleteAll clears the log unconditionally after attempting to remove
// every referenced attachment. Idempotent; attachment failures are logged
// and swallowed.
func (l *Log) DeleteAll(ctx context.Context) {
	l.mu.Lock()
	var refs []string
	for _, msg := range l.messages {
		if msg.Kind == KindFile && msg.File != nil {
			refs = append(refs, msg.File.Ref)
		}
	}
	l.messages = nil
	l.mu.Unlock()

	for _, ref := range refs {
		l.removeAttachment(ctx, ref)
	}
}

// Append adds an already-built message verbatim. Used for messages that
// arrive pre-normalized, such as decoded legacy bodies.
func (l *Log) Append(msg Message) {
	l.append(msg)
}

func (l *Log) append(msg Message) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

func (l *Log) removeAttachment(ctx context.Context, ref string) {
	if err := l.attachments.Remove(ctx, ref); err != nil {
		log.Printf("chat: attachment cleanup failed for %s: %v", ref, err)
	}
}
