package chat

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Message is a single chat entry. The id is assigned on append and survives
// edits; the author never changes.
type Message struct {
	ID     string `json:"messageId"`
	Text   string `json:"message"`
	Author User   `json:"user"`
}

// Ledger is the ordered, mutable collection of live chat messages. Insertion
// order is canonical: snapshots and broadcasts always see messages in the
// order they were appended. All operations are safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	messages []Message
	log      *slog.Logger
}

// NewLedger creates an empty message ledger.
func NewLedger(log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{log: log}
}

// Append stores a new message at the tail of the ledger and returns it with
// its freshly assigned id. Blank text is rejected.
func (l *Ledger) Append(text string, author User) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("append: empty message: %w", ErrValidation)
	}

	msg := Message{
		ID:     uuid.NewString(),
		Text:   text,
		Author: author,
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	total := len(l.messages)
	l.mu.Unlock()

	l.log.Debug("message appended", "messageId", msg.ID, "author", author.Name, "total", total)
	return msg, nil
}

// Edit replaces the text of the message with the given id, keeping its id,
// author, and position. Unknown ids leave the ledger untouched.
func (l *Ledger) Edit(id, newText string) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(l.messages, func(m Message) bool { return m.ID == id })
	if !ok {
		return Message{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}

	l.messages[idx].Text = newText
	return l.messages[idx], nil
}

// Delete removes the message with the given id, preserving the relative order
// of the remaining messages.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(l.messages, func(m Message) bool { return m.ID == id })
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	l.messages = append(l.messages[:idx], l.messages[idx+1:]...)
	return nil
}

// Snapshot returns a point-in-time copy of the ledger in insertion order.
// The caller owns the returned slice; later mutations are not reflected.
func (l *Ledger) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]Message, len(l.messages))
	copy(snapshot, l.messages)
	return snapshot
}

// Len reports the number of live messages.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
