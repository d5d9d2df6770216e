package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
)

const (
	asrResourceID = "volc.bigasr.sauc.duration"

	// 16 kHz, 16-bit, mono: 6400 bytes is 200 ms of audio.
	audioChunkSize     = 6400
	audioChunkInterval = 200 * time.Millisecond
)

// Events are the capture engine callbacks the recognizer raises. Started
// fires once the engine confirms the session; Result fires per
// partial-recognition event; Ended fires when the stream drains after a
// stop; Error fires on any engine failure.
type Events struct {
	Started func()
	Result  func(fragments []speechmodel.Fragment)
	Ended   func()
	Error   func(err error)
}

// AudioSource supplies raw PCM microphone audio for one capture session.
type AudioSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Recognizer is a continuous, interim-result-capable speech-to-text client
// over the streaming websocket protocol. It implements the voice sequencer's
// Capturer contract: Start opens a session and pumps paced audio chunks from
// the source; Stop flushes the stream and lets the final results drain.
type Recognizer struct {
	cfg    *speechmodel.Config
	source AudioSource
	events Events
	dialer *websocket.Dialer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewRecognizer builds a recognizer over the configured engine endpoint.
func NewRecognizer(cfg *speechmodel.Config, source AudioSource, events Events) *Recognizer {
	return &Recognizer{
		cfg:    cfg,
		source: source,
		events: events,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

// asrSessionRequest is the JSON session setup sent as the first frame.
type asrSessionRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

// asrServerMessage is the JSON payload of recognition result frames.
type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text     string `json:"text"`
			Definite bool   `json:"definite"`
		} `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
}

// Start opens a capture session. A start while one is already running is a
// no-op. The engine confirms asynchronously through Events.Started.
func (r *Recognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	appID, token, err := resolveCredentials(r.cfg)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", asrResourceID)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := r.dialer.DialContext(ctx, r.cfg.RecognizerURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to recognizer: %w", err)
	}
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] recognizer connected, logid=%s", logid)
		}
	}

	if err := r.sendSessionRequest(conn); err != nil {
		conn.Close()
		return err
	}

	audio, err := r.source.Open(ctx)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open audio source: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.running = true
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(runCtx, conn, audio)
	return nil
}

// Stop flushes the current capture session. A stop with no matching start is
// a no-op; final results still drain through Events before Ended fires.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Recognizer) sendSessionRequest(conn *websocket.Conn) error {
	session := &asrSessionRequest{}
	session.User.UID = uuid.NewString()
	session.Audio.Language = r.cfg.Language
	session.Audio.Format = "raw"
	session.Audio.Codec = "raw"
	session.Audio.Rate = r.cfg.SampleRate
	session.Audio.Bits = 16
	session.Audio.Channel = 1
	session.Request.ModelName = "bigmodel"
	session.Request.EnableITN = true
	session.Request.EnablePunc = true
	session.Request.ShowUtterances = true
	session.Request.ResultType = "full"
	session.Request.EndWindowSize = 800

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session request: %w", err)
	}

	compressed, err := CompressPayload(payload, GzipCompression)
	if err != nil {
		return fmt.Errorf("failed to compress session request: %w", err)
	}

	msg := NewFullClientRequest(compressed, GzipCompression)
	frame, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode session request: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send session request: %w", err)
	}
	return nil
}

func (r *Recognizer) run(ctx context.Context, conn *websocket.Conn, audio io.ReadCloser) {
	defer conn.Close()
	defer audio.Close()

	// Unblock the audio read when the session is stopped.
	go func() {
		<-ctx.Done()
		audio.Close()
	}()

	if r.events.Started != nil {
		r.events.Started()
	}

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- r.pumpAudio(ctx, conn, audio)
	}()

	readErr := r.readResults(conn)

	r.mu.Lock()
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if err := <-sendErr; err != nil && readErr == nil {
		readErr = err
	}

	if readErr != nil && ctx.Err() == nil {
		if r.events.Error != nil {
			r.events.Error(readErr)
		}
		return
	}
	if r.events.Ended != nil {
		r.events.Ended()
	}
}

// pumpAudio sends paced audio chunks until the source drains or the session
// is stopped, then flushes a final empty chunk so the engine finalizes.
func (r *Recognizer) pumpAudio(ctx context.Context, conn *websocket.Conn, audio io.Reader) error {
	buf := make([]byte, audioChunkSize)
	sequence := int32(2) // the session request occupies sequence 1

	for {
		n, readErr := io.ReadFull(audio, buf)
		if n > 0 {
			if err := r.writeAudioChunk(conn, buf[:n], sequence, false); err != nil {
				return err
			}
			sequence++
		}
		if readErr != nil || ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(audioChunkInterval):
		}
		if ctx.Err() != nil {
			break
		}
	}

	return r.writeAudioChunk(conn, nil, sequence, true)
}

func (r *Recognizer) writeAudioChunk(conn *websocket.Conn, chunk []byte, sequence int32, isLast bool) error {
	compressed, err := CompressPayload(chunk, GzipCompression)
	if err != nil {
		return fmt.Errorf("failed to compress audio chunk: %w", err)
	}

	msg := NewAudioOnlyRequest(compressed, sequence, isLast, GzipCompression)
	frame, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode audio chunk: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

// readResults forwards partial-recognition events until the engine closes
// the stream with a last packet.
func (r *Recognizer) readResults(conn *websocket.Conn) error {
	timeout := time.Duration(r.cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for {
		conn.SetReadDeadline(time.Now().Add(timeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read recognizer response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to decode recognizer message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			payload, decErr := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if decErr != nil {
				return fmt.Errorf("recognizer error %d (payload decode failed: %v)", msg.ErrorCode, decErr)
			}
			return fmt.Errorf("recognizer error %d: %s", msg.ErrorCode, string(payload))

		case FullServerResponse:
			payload, decErr := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if decErr != nil {
				return fmt.Errorf("failed to decompress recognizer payload: %w", decErr)
			}

			var serverResp asrServerMessage
			if err := json.Unmarshal(payload, &serverResp); err != nil {
				log.Printf("[speech] failed to unmarshal recognizer response: %v", err)
				continue
			}

			if serverResp.Code != 0 && serverResp.Code != 20000000 {
				return fmt.Errorf("recognizer API error %d: %s", serverResp.Code, serverResp.Message)
			}

			last := msg.IsLastPacket() || serverResp.Sequence < 0
			if fragments := fragmentsFromMessage(serverResp, last); len(fragments) > 0 && r.events.Result != nil {
				r.events.Result(fragments)
			}

			if last {
				return nil
			}

		default:
			// Audio acks and other frame types carry nothing for us.
		}
	}
}

// fragmentsFromMessage maps one server result into recognition fragments.
// Definite utterances (and everything in the closing packet) are finalized.
func fragmentsFromMessage(resp asrServerMessage, last bool) []speechmodel.Fragment {
	if len(resp.Result.Utterances) > 0 {
		fragments := make([]speechmodel.Fragment, 0, len(resp.Result.Utterances))
		for _, u := range resp.Result.Utterances {
			if strings.TrimSpace(u.Text) == "" {
				continue
			}
			fragments = append(fragments, speechmodel.Fragment{Text: u.Text, Final: u.Definite || last})
		}
		return fragments
	}

	if strings.TrimSpace(resp.Result.Text) == "" {
		return nil
	}
	return []speechmodel.Fragment{{Text: resp.Result.Text, Final: last}}
}
