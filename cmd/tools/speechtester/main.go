// Command speechtester exercises the speech engine adapters outside the UI:
// feed a raw PCM file through recognition, or synthesize text into an audio
// file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ekorkmaz/voxboard/internal/config"
	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
	"github.com/ekorkmaz/voxboard/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.Speech.Enabled {
		log.Fatal("speech engine not configured, set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN first")
	}

	mode := flag.String("mode", "", "test mode: asr or tts")
	audioPath := flag.String("audio", "", "ASR input: raw 16 kHz 16-bit mono PCM file")
	text := flag.String("text", "", "TTS input text")
	outputPath := flag.String("out", "", "TTS output file (default speechtester-output.<format>)")
	timeout := flag.Duration("timeout", 45*time.Second, "overall request timeout")
	flag.Parse()

	engineCfg := cfg.Speech.EngineConfig()

	switch *mode {
	case "asr":
		runASR(engineCfg, *audioPath, *timeout)
	case "tts":
		runTTS(engineCfg, cfg.Speech.Format, *text, *outputPath, *timeout)
	default:
		flag.Usage()
		log.Fatal("specify -mode=asr or -mode=tts")
	}
}

func runASR(cfg *speechmodel.Config, audioPath string, timeout time.Duration) {
	if audioPath == "" {
		log.Fatal("asr mode requires -audio")
	}

	done := make(chan error, 1)
	events := speech.Events{
		Started: func() { log.Println("session started") },
		Result: func(fragments []speechmodel.Fragment) {
			for _, f := range fragments {
				marker := "interim"
				if f.Final {
					marker = "final"
				}
				fmt.Printf("[%s] %s\n", marker, f.Text)
			}
		},
		Ended: func() { done <- nil },
		Error: func(err error) { done <- err },
	}

	recognizer := speech.NewRecognizer(cfg, &speech.FileSource{Path: audioPath}, events)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := recognizer.Start(ctx); err != nil {
		log.Fatalf("failed to start recognition: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			log.Fatalf("recognition failed: %v", err)
		}
		log.Println("recognition finished")
	case <-ctx.Done():
		recognizer.Stop()
		log.Fatal("recognition timed out")
	}
}

// filePlayer writes synthesized audio to disk instead of playing it.
type filePlayer struct {
	path string
	done chan error
}

func (p *filePlayer) Play(ctx context.Context, format string, audio []byte) error {
	err := os.WriteFile(p.path, audio, 0o644)
	p.done <- err
	return err
}

func runTTS(cfg *speechmodel.Config, format, text, outputPath string, timeout time.Duration) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode requires -text")
	}
	if outputPath == "" {
		outputPath = "speechtester-output." + format
	}

	player := &filePlayer{path: outputPath, done: make(chan error, 1)}
	synthesizer := speech.NewSynthesizer(cfg, player)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := synthesizer.Speak(ctx, text); err != nil {
		log.Fatalf("failed to start synthesis: %v", err)
	}

	select {
	case err := <-player.done:
		if err != nil {
			log.Fatalf("failed to write output: %v", err)
		}
		log.Printf("audio written to %s", outputPath)
	case <-ctx.Done():
		log.Fatal("synthesis timed out")
	}
}
