package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
	"github.com/ekorkmaz/voxboard/internal/model/transcript"
	"github.com/ekorkmaz/voxboard/internal/service/chat"
)

type fakeCapturer struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	onStart  func()
}

func (c *fakeCapturer) Start(ctx context.Context) error {
	c.mu.Lock()
	c.starts++
	hook := c.onStart
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.startErr
}

func (c *fakeCapturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeCapturer) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

type fakeSpeaker struct {
	mu       sync.Mutex
	calls    []string // interleaved "cancel" / "speak:<text>"
	speakErr error
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "speak:"+text)
	return s.speakErr
}

func (s *fakeSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "cancel")
}

func replySender(text string) chat.Sender {
	return chat.SendFunc(func(ctx context.Context, message string) (chat.Reply, error) {
		return chat.Reply{Text: text, At: time.Now()}, nil
	})
}

func failingSender(err error) chat.Sender {
	return chat.SendFunc(func(ctx context.Context, message string) (chat.Reply, error) {
		return chat.Reply{}, err
	})
}

func TestPressArmsThenEngineConfirms(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle before press, got %v", got)
	}

	if !seq.Press() {
		t.Fatal("expected press to arm a fresh session")
	}
	if got := seq.Phase(); got != PhaseStarting {
		t.Fatalf("expected starting after press, got %v", got)
	}

	if err := seq.StartEngine(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	seq.EngineStarted()
	if got := seq.Phase(); got != PhaseListening {
		t.Fatalf("expected listening after engine confirmation, got %v", got)
	}
	if starts, _ := capturer.counts(); starts != 1 {
		t.Fatalf("expected 1 capture start, got %d", starts)
	}
}

func TestPressNeverTouchesTheEngine(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	if !seq.Press() {
		t.Fatal("expected press to arm")
	}

	// Arming must not call into the engine; the blocking start runs
	// separately so a press can never stall the caller.
	if starts, stops := capturer.counts(); starts != 0 || stops != 0 {
		t.Fatalf("press touched the engine: starts=%d stops=%d", starts, stops)
	}
	if got := seq.Phase(); got != PhaseStarting {
		t.Fatalf("expected starting indicator available immediately, got %v", got)
	}
}

func TestPressWhileCapturingIsNoOp(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	if seq.Press() {
		t.Fatal("expected second press to be rejected")
	}
	seq.StartEngine(context.Background())
	if starts, _ := capturer.counts(); starts != 1 {
		t.Fatalf("expected a single capture start, got %d", starts)
	}
}

func TestStartEngineFailureDisarms(t *testing.T) {
	capturer := &fakeCapturer{startErr: errors.New("no microphone")}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	if err := seq.StartEngine(context.Background()); err == nil {
		t.Fatal("expected start failure to surface")
	}
	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle after failed start, got %v", got)
	}
}

func TestStartEngineAfterReleaseIsSkipped(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	seq.Release()

	if err := seq.StartEngine(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if starts, _ := capturer.counts(); starts != 0 {
		t.Fatalf("disarmed session must not start the engine, got %d starts", starts)
	}
}

func TestReleaseDuringEngineStartStopsLateEngine(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	// The release lands while the engine start is still in flight.
	capturer.onStart = func() { seq.Release() }

	seq.Press()
	if err := seq.StartEngine(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	starts, stops := capturer.counts()
	if starts != 1 {
		t.Fatalf("expected 1 start, got %d", starts)
	}
	// One stop from the release, one from the late-start cleanup.
	if stops != 2 {
		t.Fatalf("expected the late engine stopped, got %d stops", stops)
	}
	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle, got %v", got)
	}
}

func TestReleaseWithoutPressIsNoOp(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	if _, ok := seq.Release(); ok {
		t.Fatal("expected release with no matching press to yield nothing")
	}
	if _, stops := capturer.counts(); stops != 0 {
		t.Fatalf("expected no capture stop, got %d", stops)
	}
}

func TestReleaseReturnsTrimmedUtterance(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	seq.StartEngine(context.Background())
	seq.EngineStarted()
	seq.HandleResult([]speechmodel.Fragment{{Text: "  what is the weather  ", Final: true}})

	utterance, ok := seq.Release()
	if !ok {
		t.Fatal("expected release to yield an utterance")
	}
	if utterance != "what is the weather" {
		t.Fatalf("expected trimmed utterance, got %q", utterance)
	}
	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle after release, got %v", got)
	}
	if _, stops := capturer.counts(); stops != 1 {
		t.Fatalf("expected 1 capture stop, got %d", stops)
	}
	if got := seq.LiveTranscript(); got != "" {
		t.Fatalf("expected live transcript cleared after release, got %q", got)
	}
}

func TestReleaseWithEmptyTranscriptYieldsNothing(t *testing.T) {
	seq := NewSequencer(&fakeCapturer{}, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	seq.HandleResult([]speechmodel.Fragment{{Text: "   "}})

	if _, ok := seq.Release(); ok {
		t.Fatal("expected whitespace-only transcript to yield no utterance")
	}
	if len(seq.Entries()) != 0 {
		t.Fatalf("expected empty transcript, got %d entries", len(seq.Entries()))
	}
}

func TestFinalizedFragmentsWinOverInterim(t *testing.T) {
	seq := NewSequencer(&fakeCapturer{}, &fakeSpeaker{}, replySender("ok"))
	seq.Press()

	seq.HandleResult([]speechmodel.Fragment{{Text: "turn on"}})
	if got := seq.LiveTranscript(); got != "turn on" {
		t.Fatalf("expected interim text, got %q", got)
	}

	seq.HandleResult([]speechmodel.Fragment{
		{Text: "turn on the lights", Final: true},
		{Text: " and"},
	})
	if got := seq.LiveTranscript(); got != "turn on the lights" {
		t.Fatalf("expected finalized text to win, got %q", got)
	}

	// A later interim-only event replaces the finalized text wholesale.
	seq.HandleResult([]speechmodel.Fragment{{Text: "turn off"}})
	if got := seq.LiveTranscript(); got != "turn off" {
		t.Fatalf("expected latest event to win, got %q", got)
	}
}

func TestMultipleFinalFragmentsJoinWithSpaces(t *testing.T) {
	seq := NewSequencer(&fakeCapturer{}, &fakeSpeaker{}, replySender("ok"))
	seq.Press()

	seq.HandleResult([]speechmodel.Fragment{
		{Text: "open the door", Final: true},
		{Text: "please", Final: true},
	})
	if got := seq.LiveTranscript(); got != "open the door please" {
		t.Fatalf("expected joined finals, got %q", got)
	}
}

func TestDispatchSuccessAppendsPairAndSpeaks(t *testing.T) {
	speaker := &fakeSpeaker{}
	seq := NewSequencer(&fakeCapturer{}, speaker, replySender("it is sunny"))

	entry := seq.Dispatch(context.Background(), "what is the weather")

	entries := seq.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected user + assistant entries, got %d", len(entries))
	}
	if entries[0].Author != transcript.AuthorUser || entries[0].Text != "what is the weather" {
		t.Fatalf("unexpected user entry: %+v", entries[0])
	}
	if entries[1].Author != transcript.AuthorAssistant || entries[1].Text != "it is sunny" {
		t.Fatalf("unexpected assistant entry: %+v", entries[1])
	}
	if entry.ID != entries[1].ID {
		t.Fatal("expected Dispatch to return the terminal entry")
	}

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if len(speaker.calls) != 2 || speaker.calls[0] != "cancel" || speaker.calls[1] != "speak:it is sunny" {
		t.Fatalf("expected cancel before speak, got %v", speaker.calls)
	}
}

func TestDispatchFailureAppendsSyntheticEntry(t *testing.T) {
	speaker := &fakeSpeaker{}
	sendErr := errors.New("backend unreachable")
	seq := NewSequencer(&fakeCapturer{}, speaker, failingSender(sendErr))

	entry := seq.Dispatch(context.Background(), "hello")

	entries := seq.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected user + failure entries, got %d", len(entries))
	}
	if !entries[1].Failed {
		t.Fatal("expected terminal entry to be marked failed")
	}
	if entries[1].Text != chat.FailureNotice(sendErr) {
		t.Fatalf("unexpected failure text: %q", entries[1].Text)
	}
	if entry.ID != entries[1].ID {
		t.Fatal("expected Dispatch to return the failure entry")
	}

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if len(speaker.calls) != 0 {
		t.Fatalf("expected no playback on failure, got %v", speaker.calls)
	}
}

func TestDispatchSpeakErrorDoesNotTouchTranscript(t *testing.T) {
	speaker := &fakeSpeaker{speakErr: errors.New("player missing")}
	seq := NewSequencer(&fakeCapturer{}, speaker, replySender("done"))

	seq.Dispatch(context.Background(), "hi")

	entries := seq.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries despite playback failure, got %d", len(entries))
	}
	if entries[1].Failed {
		t.Fatal("playback failure must not mark the assistant entry failed")
	}
}

func TestEngineErrorResetsIndicatorsKeepsLiveText(t *testing.T) {
	seq := NewSequencer(&fakeCapturer{}, &fakeSpeaker{}, replySender("ok"))

	seq.Press()
	seq.StartEngine(context.Background())
	seq.EngineStarted()
	seq.HandleResult([]speechmodel.Fragment{{Text: "partial words", Final: true}})

	seq.EngineError(errors.New("stream dropped"))
	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle after engine error, got %v", got)
	}
	if got := seq.LiveTranscript(); got != "partial words" {
		t.Fatalf("expected live text kept after engine error, got %q", got)
	}

	// The stale confirmation after the error must not resurrect listening.
	seq.EngineStarted()
	if got := seq.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle after stale engine confirmation, got %v", got)
	}
}

func TestFullCycleCanRepeat(t *testing.T) {
	capturer := &fakeCapturer{}
	seq := NewSequencer(capturer, &fakeSpeaker{}, replySender("reply"))

	for i := 0; i < 3; i++ {
		if !seq.Press() {
			t.Fatalf("cycle %d: press rejected", i)
		}
		if err := seq.StartEngine(context.Background()); err != nil {
			t.Fatalf("cycle %d: start failed: %v", i, err)
		}
		seq.EngineStarted()
		seq.HandleResult([]speechmodel.Fragment{{Text: "again", Final: true}})
		if _, ok := seq.Release(); !ok {
			t.Fatalf("cycle %d: release yielded nothing", i)
		}
		seq.EngineEnded()
	}

	starts, stops := capturer.counts()
	if starts != 3 || stops != 3 {
		t.Fatalf("expected 3 starts and stops, got %d/%d", starts, stops)
	}
}
