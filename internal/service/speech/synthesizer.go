package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
)

const ttsResourceID = "volc.service_type.10029"

// AudioPlayer renders one synthesized utterance.
type AudioPlayer interface {
	Play(ctx context.Context, format string, audio []byte) error
}

// Synthesizer is a text-to-speech client over the streaming websocket
// protocol. It implements the voice sequencer's Speaker contract: Speak
// starts synthesis and playback in the background, Cancel silences whatever
// utterance is in flight so at most one is ever audible.
type Synthesizer struct {
	cfg    *speechmodel.Config
	player AudioPlayer
	dialer *websocket.Dialer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSynthesizer builds a synthesizer over the configured engine endpoint.
func NewSynthesizer(cfg *speechmodel.Config, player AudioPlayer) *Synthesizer {
	return &Synthesizer{
		cfg:    cfg,
		player: player,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Speak replaces any in-flight utterance with the given text. It returns
// once synthesis has been started; playback completes in the background and
// its failures are logged, never surfaced.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("speak text is empty")
	}

	timeout := time.Duration(s.cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	utterCtx, cancel := context.WithTimeout(context.Background(), timeout)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()

		audio, err := s.synthesize(utterCtx, text)
		if err != nil {
			if utterCtx.Err() == nil {
				log.Printf("[speech] synthesis failed: %v", err)
			}
			return
		}

		if err := s.player.Play(utterCtx, s.cfg.Format, audio); err != nil && utterCtx.Err() == nil {
			log.Printf("[speech] playback failed: %v", err)
		}
	}()

	return nil
}

// Cancel silences the current utterance, audible or still synthesizing.
func (s *Synthesizer) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// synthesize runs one full websocket exchange and returns the audio bytes.
func (s *Synthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	appID, token, err := resolveCredentials(s.cfg)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", ttsResourceID)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.SynthesizerURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to synthesizer: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] synthesizer connected, logid=%s", logid)
		}
	}

	if err := s.sendRequest(conn, text); err != nil {
		return nil, err
	}

	// Fail the blocking read promptly when Cancel fires.
	go func() {
		<-ctx.Done()
		conn.SetReadDeadline(time.Now())
	}()

	return s.collectAudio(ctx, conn)
}

func (s *Synthesizer) sendRequest(conn *websocket.Conn, text string) error {
	req := &ttsRequest{}
	req.User.UID = uuid.NewString()
	req.ReqParams.Speaker = s.cfg.Voice
	req.ReqParams.Text = text
	req.ReqParams.Language = s.cfg.Language
	req.ReqParams.AudioParams = ttsAudioParams{
		Format:      s.cfg.Format,
		SampleRate:  24000,
		SpeedRatio:  s.cfg.Speed,
		VolumeRatio: s.cfg.Volume,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	frame, err := EncodeMessage(NewFullClientRequest(payload, NoCompression))
	if err != nil {
		return fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}
	return nil
}

func (s *Synthesizer) collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio bytes.Buffer

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read synthesizer response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode synthesizer message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			payload, decErr := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if decErr != nil {
				return nil, fmt.Errorf("synthesizer error %d (payload decode failed: %v)", msg.ErrorCode, decErr)
			}
			return nil, fmt.Errorf("synthesizer error: %s", string(payload))

		case AudioOnlyServerResponse:
			chunk, decErr := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if decErr != nil {
				return nil, fmt.Errorf("failed to decompress audio chunk: %w", decErr)
			}
			audio.Write(chunk)
			if msg.IsLastPacket() {
				return finishedAudio(&audio)
			}

		case FullServerResponse:
			payload, decErr := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if decErr != nil {
				return nil, fmt.Errorf("failed to decompress synthesizer payload: %w", decErr)
			}

			var serverResp ttsServerMessage
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &serverResp); err != nil {
					log.Printf("[speech] failed to unmarshal synthesizer payload: %v", err)
				} else {
					if serverResp.Code != 0 && serverResp.Code != 3000 {
						return nil, fmt.Errorf("synthesizer API error %d: %s", serverResp.Code, serverResp.Message)
					}
					if serverResp.Data != "" {
						chunk, decErr := base64.StdEncoding.DecodeString(serverResp.Data)
						if decErr != nil {
							return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", decErr)
						}
						audio.Write(chunk)
					}
				}
			}

			finishedByEvent := msg.Header.MessageFlags&WithEvent == WithEvent && msg.EventType == EventTypeSessionFinished
			if finishedByEvent || msg.IsLastPacket() || serverResp.Sequence < 0 {
				return finishedAudio(&audio)
			}

		default:
			log.Printf("[speech] unexpected synthesizer message type: %d", msg.Header.MessageType)
		}
	}
}

func finishedAudio(audio *bytes.Buffer) ([]byte, error) {
	if audio.Len() == 0 {
		return nil, fmt.Errorf("synthesized audio is empty")
	}
	return audio.Bytes(), nil
}
