package chat

import (
	"encoding/json"
	"errors"
	"html"
	"strings"
	"time"
)

var errUnknownShape = errors.New("unrecognized message shape")

// DecodeLegacy normalizes message shapes emitted by producers that
// predate the canonical form: a bare JSON string, or an object carrying
// text/date without author or type. Plain text is HTML-escaped before it
// becomes markup. Kept separate from the write path; new producers must
// emit the canonical shape.
func DecodeLegacy(raw []byte) (Message, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return legacyText(text, time.Time{})
	}

	var obj struct {
		Author string `json:"author"`
		Type   string `json:"type"`
		Text   string `json:"text"`
		Date   string `json:"date"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Message{}, errUnknownShape
	}
	if obj.Author != "" || obj.Type != "" {
		// Not legacy; the canonical decoder owns this shape.
		return Message{}, errUnknownShape
	}
	when, _ := time.Parse(time.RFC3339, obj.Date)
	return legacyText(obj.Text, when)
}

func legacyText(text string, when time.Time) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}
	if when.IsZero() {
		when = time.Now()
	}
	return Message{
		ID:        NewID(when),
		Author:    "Unknown",
		Kind:      KindText,
		HTML:      nl2br(html.EscapeString(text)),
		CreatedAt: when,
	}, nil
}
