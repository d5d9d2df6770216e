package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ekorkmaz/voxboard/internal/model/transcript"
)

func TestSubmitAppendsUserThenAssistant(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seq := NewSequencer(SendFunc(func(ctx context.Context, message string) (Reply, error) {
		if message != "hello there" {
			t.Fatalf("expected trimmed message, got %q", message)
		}
		return Reply{Text: "hi!", At: at}, nil
	}))

	entry, err := seq.Submit(context.Background(), "  hello there  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := seq.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Author != transcript.AuthorUser || entries[0].Text != "hello there" {
		t.Fatalf("unexpected user entry: %+v", entries[0])
	}
	if entries[1].Author != transcript.AuthorAssistant || entries[1].Text != "hi!" {
		t.Fatalf("unexpected assistant entry: %+v", entries[1])
	}
	if !entries[1].SentAt.Equal(at) {
		t.Fatalf("expected backend timestamp kept, got %v", entries[1].SentAt)
	}
	if entry.ID != entries[1].ID {
		t.Fatal("expected Submit to return the terminal entry")
	}
}

func TestSubmitEmptyMessageIsRejected(t *testing.T) {
	seq := NewSequencer(SendFunc(func(ctx context.Context, message string) (Reply, error) {
		t.Fatal("sender must not be called for empty input")
		return Reply{}, nil
	}))

	if _, err := seq.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(seq.Entries()) != 0 {
		t.Fatal("expected no transcript entries for rejected input")
	}
}

func TestSubmitFailureKeepsUserEntryAndSettles(t *testing.T) {
	sendErr := errors.New("connection refused")
	seq := NewSequencer(SendFunc(func(ctx context.Context, message string) (Reply, error) {
		return Reply{}, sendErr
	}))

	entry, err := seq.Submit(context.Background(), "ping")
	if err != nil {
		t.Fatalf("a failed dispatch settles with a synthetic entry, got error %v", err)
	}
	if !entry.Failed {
		t.Fatal("expected synthetic entry to be marked failed")
	}
	if entry.Text != FailureNotice(sendErr) {
		t.Fatalf("unexpected failure notice: %q", entry.Text)
	}

	entries := seq.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected user entry kept plus failure entry, got %d", len(entries))
	}
	if entries[0].Text != "ping" {
		t.Fatalf("expected optimistic user entry kept, got %+v", entries[0])
	}
}

func TestSubmitWhileSendingIsRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	seq := NewSequencer(SendFunc(func(ctx context.Context, message string) (Reply, error) {
		close(started)
		<-release
		return Reply{Text: "done"}, nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seq.Submit(context.Background(), "first")
	}()

	<-started
	if !seq.Sending() {
		t.Fatal("expected sequencer to report an outstanding submission")
	}
	if _, err := seq.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	wg.Wait()

	if seq.Sending() {
		t.Fatal("expected sequencer idle after settle")
	}
	if got := len(seq.Entries()); got != 2 {
		t.Fatalf("expected only the first exchange in the transcript, got %d entries", got)
	}
}
