package main

import (
	"context"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/ekorkmaz/voxboard/internal/config"
	"github.com/ekorkmaz/voxboard/internal/gateway"
	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
	"github.com/ekorkmaz/voxboard/internal/service/chat"
	"github.com/ekorkmaz/voxboard/internal/service/files"
	"github.com/ekorkmaz/voxboard/internal/service/speech"
	"github.com/ekorkmaz/voxboard/internal/service/voice"
	"github.com/ekorkmaz/voxboard/internal/session"
	"github.com/ekorkmaz/voxboard/internal/ui"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The TUI owns the terminal, so logs go to a file when requested.
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := tea.LogToFile(path, "voxboard")
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
	}

	store := session.NewStore(cfg.Client.TokenPath)
	client := gateway.New(cfg.Client.BaseURL, time.Duration(cfg.Client.Timeout)*time.Second, store.Token)
	flow := session.NewFlow(store, client)

	sender := chat.SendFunc(func(ctx context.Context, message string) (chat.Reply, error) {
		reply, err := client.SendMessage(ctx, message)
		if err != nil {
			return chat.Reply{}, err
		}
		return chat.Reply{Text: reply.Text, At: reply.At}, nil
	})

	deps := ui.Deps{
		Store:   store,
		Flow:    flow,
		Gateway: client,
		Files:   files.NewRegistry(client),
		Chat:    chat.NewSequencer(sender),
		Timeout: time.Duration(cfg.Client.Timeout) * time.Second,
	}

	if cfg.Speech.Enabled {
		deps.Voice, deps.VoiceEvents = buildVoiceStack(cfg.Speech, sender)
		log.Println("speech engine configured")
	} else {
		log.Println("speech credentials not configured, voice tab disabled")
	}

	program := tea.NewProgram(ui.NewApp(deps), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}

// buildVoiceStack wires the capture engine and speaker to the voice
// sequencer, bridging engine callbacks onto a channel the UI loop drains.
func buildVoiceStack(cfg config.SpeechConfig, sender chat.Sender) (*voice.Sequencer, <-chan ui.VoiceEvent) {
	engineCfg := cfg.EngineConfig()
	events := make(chan ui.VoiceEvent, 16)

	recognizer := speech.NewRecognizer(engineCfg,
		&speech.CommandSource{Command: cfg.CaptureCommand},
		speech.Events{
			Started: func() { events <- ui.VoiceEvent{Kind: ui.VoiceEngineStarted} },
			Result: func(fragments []speechmodel.Fragment) {
				events <- ui.VoiceEvent{Kind: ui.VoiceEngineResult, Fragments: fragments}
			},
			Ended: func() { events <- ui.VoiceEvent{Kind: ui.VoiceEngineEnded} },
			Error: func(err error) { events <- ui.VoiceEvent{Kind: ui.VoiceEngineError, Err: err} },
		})

	synthesizer := speech.NewSynthesizer(engineCfg, &speech.CommandPlayer{Command: cfg.PlaybackCommand})

	return voice.NewSequencer(recognizer, synthesizer, sender), events
}
