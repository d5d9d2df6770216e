package voice

import (
	"context"
	"log"
	"strings"
	"sync"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
	"github.com/ekorkmaz/voxboard/internal/model/transcript"
	"github.com/ekorkmaz/voxboard/internal/service/chat"
)

// Capturer is a push-to-talk speech capture engine. Start confirms
// asynchronously through the engine's event callbacks; Stop ends the current
// capture. Both must tolerate being called out of order.
type Capturer interface {
	Start(ctx context.Context) error
	Stop()
}

// Speaker plays synthesized speech. Speak begins playback of the text and
// must not block until playback completes; Cancel silences any utterance
// currently audible or in flight.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Phase is the externally visible capture state driving the UI indicator.
type Phase int

const (
	// PhaseIdle means no capture engine is running.
	PhaseIdle Phase = iota
	// PhaseStarting means the press was registered but the engine has not
	// confirmed yet.
	PhaseStarting
	// PhaseListening means the engine confirmed and partial results may
	// arrive.
	PhaseListening
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseListening:
		return "listening"
	default:
		return "idle"
	}
}

// Sequencer turns a press-and-hold gesture into a round trip: captured
// speech, dispatched chat message, spoken reply. All transitions happen
// through named event methods so the state machine can be driven
// deterministically in tests.
type Sequencer struct {
	capturer Capturer
	speaker  Speaker
	sender   chat.Sender
	log      *transcript.Log

	mu        sync.Mutex
	armed     bool
	listening bool
	live      string
}

// NewSequencer wires the sequencer to its capture engine, speaker, and
// message sender. The voice transcript is independent of the text-chat one.
func NewSequencer(capturer Capturer, speaker Speaker, sender chat.Sender) *Sequencer {
	return &Sequencer{
		capturer: capturer,
		speaker:  speaker,
		sender:   sender,
		log:      transcript.NewLog(),
	}
}

// Entries returns the voice transcript in append order.
func (s *Sequencer) Entries() []transcript.Entry {
	return s.log.Entries()
}

// Phase reports the current indicator state.
func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.armed:
		return PhaseIdle
	case s.listening:
		return PhaseListening
	default:
		return PhaseStarting
	}
}

// LiveTranscript returns the latest recognized text for the held capture.
func (s *Sequencer) LiveTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Press arms a new capture session. A press while one is active is a no-op.
// Press never touches the engine, so it is safe on the event loop; the caller
// runs StartEngine off-loop afterwards.
func (s *Sequencer) Press() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		return false
	}
	s.armed = true
	s.live = ""
	return true
}

// StartEngine runs the blocking engine start for an armed session. A failure
// disarms; a release that lands while the start is still in flight stops the
// engine once it comes up. Intended to run off the event loop.
func (s *Sequencer) StartEngine(ctx context.Context) error {
	s.mu.Lock()
	armed := s.armed
	s.mu.Unlock()
	if !armed {
		return nil
	}

	if err := s.capturer.Start(ctx); err != nil {
		log.Printf("[voice] capture start failed: %v", err)
		s.mu.Lock()
		s.armed = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	stillArmed := s.armed
	s.mu.Unlock()
	if !stillArmed {
		s.capturer.Stop()
	}
	return nil
}

// Release stops the capture engine and returns the utterance to dispatch.
// A release with no matching press is a no-op, and an empty (or
// whitespace-only) transcript yields no dispatch.
func (s *Sequencer) Release() (string, bool) {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return "", false
	}
	s.armed = false
	utterance := strings.TrimSpace(s.live)
	s.live = ""
	s.mu.Unlock()

	s.capturer.Stop()

	if utterance == "" {
		return "", false
	}
	return utterance, true
}

// EngineStarted records the engine's asynchronous start confirmation.
func (s *Sequencer) EngineStarted() {
	s.mu.Lock()
	s.listening = false
	if s.armed {
		s.listening = true
	}
	s.mu.Unlock()
}

// EngineEnded records that the engine stopped delivering results.
func (s *Sequencer) EngineEnded() {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
}

// EngineError force-resets the capture indicators. No retry is attempted;
// the next press starts a fresh session.
func (s *Sequencer) EngineError(err error) {
	log.Printf("[voice] capture engine error: %v", err)
	s.mu.Lock()
	s.listening = false
	s.armed = false
	s.mu.Unlock()
}

// HandleResult applies one partial-recognition event. Finalized fragments
// replace the live transcript with their trimmed text; otherwise the latest
// interim text wins. Only the most recent event's content is retained.
func (s *Sequencer) HandleResult(fragments []speechmodel.Fragment) {
	var interim, finalized strings.Builder
	for _, f := range fragments {
		if f.Final {
			if finalized.Len() > 0 {
				finalized.WriteString(" ")
			}
			finalized.WriteString(f.Text)
		} else {
			interim.WriteString(f.Text)
		}
	}

	s.mu.Lock()
	if finalized.Len() > 0 {
		s.live = strings.TrimSpace(finalized.String())
	} else {
		s.live = interim.String()
	}
	s.mu.Unlock()
}

// Dispatch sends one captured utterance as a chat message: the user entry is
// appended immediately, then exactly one assistant entry (success) or one
// synthetic failure entry settles the exchange. On success the reply is
// spoken, replacing any utterance still audible. Dispatch runs independently
// of the capture cycle; a slow reply never blocks the next press.
func (s *Sequencer) Dispatch(ctx context.Context, utterance string) transcript.Entry {
	s.log.AppendUser(utterance)

	reply, err := s.sender.Send(ctx, utterance)
	if err != nil {
		return s.log.AppendFailure(chat.FailureNotice(err))
	}

	entry := s.log.AppendAssistant(reply.Text, reply.At)
	s.speak(ctx, reply.Text)
	return entry
}

// speak cancels any in-flight playback, then starts the new utterance.
// Synthesis failures are logged and never touch the transcript.
func (s *Sequencer) speak(ctx context.Context, text string) {
	if s.speaker == nil {
		return
	}
	s.speaker.Cancel()
	if err := s.speaker.Speak(ctx, text); err != nil {
		log.Printf("[voice] playback failed: %v", err)
	}
}
