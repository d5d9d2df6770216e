package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ekorkmaz/voxboard/internal/model/transcript"
)

var (
	// ErrBusy means a prior submission is still outstanding.
	ErrBusy = errors.New("a message is already being sent")
	// ErrEmptyMessage means the trimmed input was empty; nothing was sent.
	ErrEmptyMessage = errors.New("message is empty")
)

// Reply is an assistant response settled by the backend.
type Reply struct {
	Text string
	At   time.Time
}

// Sender dispatches one chat message to the backend.
type Sender interface {
	Send(ctx context.Context, message string) (Reply, error)
}

// SendFunc adapts a function to the Sender interface.
type SendFunc func(ctx context.Context, message string) (Reply, error)

// Send implements Sender.
func (f SendFunc) Send(ctx context.Context, message string) (Reply, error) {
	return f(ctx, message)
}

// Sequencer appends user/assistant pairs to an ordered transcript. Each
// submission appends the user entry optimistically, then settles with
// exactly one assistant entry or one synthetic failure entry. Concurrent
// duplicate submits are rejected.
type Sequencer struct {
	sender Sender
	log    *transcript.Log

	mu      sync.Mutex
	sending bool
}

// NewSequencer builds a sequencer with its own transcript.
func NewSequencer(sender Sender) *Sequencer {
	return &Sequencer{sender: sender, log: transcript.NewLog()}
}

// Entries returns the transcript in append order.
func (s *Sequencer) Entries() []transcript.Entry {
	return s.log.Entries()
}

// Sending reports whether a submission is outstanding.
func (s *Sequencer) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Submit dispatches one message and blocks until it settles, returning the
// terminal assistant (or synthetic failure) entry. The user entry is
// appended before the backend call; failures never remove it.
func (s *Sequencer) Submit(ctx context.Context, text string) (transcript.Entry, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return transcript.Entry{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return transcript.Entry{}, ErrBusy
	}
	s.sending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	s.log.AppendUser(trimmed)

	reply, err := s.sender.Send(ctx, trimmed)
	if err != nil {
		return s.log.AppendFailure(FailureNotice(err)), nil
	}
	return s.log.AppendAssistant(reply.Text, reply.At), nil
}

// FailureNotice renders a human-readable synthetic entry for a failed
// dispatch. No automatic retry follows; a new user action is required.
func FailureNotice(err error) string {
	return fmt.Sprintf("Sorry, something went wrong: %v", err)
}
