package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
)

// Config aggregates every setting the client reads from the environment.
type Config struct {
	Client ClientConfig
	Speech SpeechConfig
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Client: client, Speech: speech}, nil
}

// ClientConfig describes how to reach the backend and where the bearer token
// is persisted between runs.
type ClientConfig struct {
	BaseURL   string
	TokenPath string
	Timeout   int // seconds
}

func loadClientConfig() (ClientConfig, error) {
	timeout := 30
	if override, err := parseOptionalIntEnv("API_TIMEOUT"); err != nil {
		return ClientConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ClientConfig{}, fmt.Errorf("API_TIMEOUT must be positive, got %d", *override)
		}
		timeout = *override
	}

	tokenPath := strings.TrimSpace(os.Getenv("TOKEN_PATH"))
	if tokenPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("cannot resolve home directory for token path: %w", err)
		}
		tokenPath = filepath.Join(home, ".voxboard", "token")
	}

	return ClientConfig{
		BaseURL:   strings.TrimRight(getEnvOrDefault("API_BASE_URL", "http://127.0.0.1:8000"), "/"),
		TokenPath: tokenPath,
		Timeout:   timeout,
	}, nil
}

// ServerConfig describes the stub backend's listen address.
type ServerConfig struct {
	Addr string
}

// LoadServer parses the stub server listen address from PORT.
func LoadServer() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// Allow ":8000" or "127.0.0.1:8000" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// SpeechConfig describes the speech engine credentials and local audio I/O.
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	RecognizerURL  string
	SynthesizerURL string
	Language       string
	Voice          string
	Format         string
	Speed          float32
	Volume         float32
	SampleRate     int
	Timeout        int

	// External commands used to capture and play raw audio. The capture
	// command must write 16 kHz 16-bit mono PCM to stdout; the playback
	// command must accept encoded audio on stdin.
	CaptureCommand  string
	PlaybackCommand string

	Enabled bool
}

// EngineConfig converts the loaded settings into the speech engine model.
func (c SpeechConfig) EngineConfig() *speechmodel.Config {
	return &speechmodel.Config{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		RecognizerURL:  c.RecognizerURL,
		SynthesizerURL: c.SynthesizerURL,
		Language:       c.Language,
		SampleRate:     c.SampleRate,
		Voice:          c.Voice,
		Format:         c.Format,
		Speed:          c.Speed,
		Volume:         c.Volume,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeoutSeconds := 30
	if timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if timeout != nil {
		timeoutSeconds = *timeout
	}

	speed := float32(1.0)
	if override, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		speed = *override
	}

	volume := float32(1.0)
	if override, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		volume = *override
	}

	sampleRate := 16000
	if override, err := parseOptionalIntEnv("SPEECH_SAMPLE_RATE"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		sampleRate = *override
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))

	enabled := appID != "" && accessToken != ""

	return SpeechConfig{
		AppID:           appID,
		AccessToken:     accessToken,
		RecognizerURL:   getEnvOrDefault("SPEECH_ASR_URL", "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"),
		SynthesizerURL:  getEnvOrDefault("SPEECH_TTS_URL", "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"),
		Language:        getEnvOrDefault("SPEECH_LANGUAGE", "tr-TR"),
		Voice:           getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		Format:          getEnvOrDefault("SPEECH_TTS_FORMAT", "mp3"),
		Speed:           speed,
		Volume:          volume,
		SampleRate:      sampleRate,
		Timeout:         timeoutSeconds,
		CaptureCommand:  getEnvOrDefault("SPEECH_CAPTURE_CMD", "arecord -q -f S16_LE -r 16000 -c 1 -t raw"),
		PlaybackCommand: getEnvOrDefault("SPEECH_PLAYBACK_CMD", "mpg123 -q -"),
		Enabled:         enabled,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
