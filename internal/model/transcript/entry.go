package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Author identifies who produced a transcript entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Entry is one append-only transcript line. Failed marks a synthetic entry
// generated locally for a request that never produced a backend reply.
type Entry struct {
	ID     string    `json:"id"`
	Author Author    `json:"author"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
	Failed bool      `json:"failed,omitempty"`
}

// Log is an append-only conversation transcript. Entries are never edited or
// reordered once appended.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog returns an empty transcript.
func NewLog() *Log {
	return &Log{entries: make([]Entry, 0, 16)}
}

// AppendUser records a user-authored entry stamped with the current time.
func (l *Log) AppendUser(text string) Entry {
	return l.append(Entry{Author: AuthorUser, Text: text, SentAt: time.Now().UTC()})
}

// AppendAssistant records a backend reply with the backend's timestamp.
func (l *Log) AppendAssistant(text string, at time.Time) Entry {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return l.append(Entry{Author: AuthorAssistant, Text: text, SentAt: at})
}

// AppendFailure records a synthetic assistant entry for a failed dispatch.
func (l *Log) AppendFailure(notice string) Entry {
	return l.append(Entry{Author: AuthorAssistant, Text: notice, SentAt: time.Now().UTC(), Failed: true})
}

func (l *Log) append(e Entry) Entry {
	e.ID = uuid.NewString()
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e
}

// Entries returns a copy of the transcript in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := make([]Entry, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
