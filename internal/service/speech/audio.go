package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// CommandSource captures microphone audio by running an external recorder
// command that writes raw PCM to stdout, e.g.
// "arecord -q -f S16_LE -r 16000 -c 1 -t raw".
type CommandSource struct {
	Command string
}

type commandAudio struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc
}

// Open starts the recorder process. Closing the returned reader kills it.
func (s *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	name, args, err := splitCommand(s.Command)
	if err != nil {
		return nil, err
	}

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open recorder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start recorder %q: %w", name, err)
	}

	return &commandAudio{cmd: cmd, stdout: stdout, cancel: cancel}, nil
}

func (a *commandAudio) Read(p []byte) (int, error) {
	return a.stdout.Read(p)
}

func (a *commandAudio) Close() error {
	a.cancel()
	a.stdout.Close()
	return a.cmd.Wait()
}

// CommandPlayer plays synthesized audio by piping it to an external player
// command, e.g. "mpg123 -q -".
type CommandPlayer struct {
	Command string
}

// Play runs the player to completion over the given audio bytes.
func (p *CommandPlayer) Play(ctx context.Context, format string, audio []byte) error {
	name, args, err := splitCommand(p.Command)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(audio)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player %q failed: %w", name, err)
	}
	return nil
}

// FileSource replays a prerecorded raw PCM file as if it were live capture.
type FileSource struct {
	Path string
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	return f, nil
}

func splitCommand(command string) (string, []string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("audio command is empty")
	}
	return parts[0], parts[1:], nil
}
