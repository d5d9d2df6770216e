// Package ui is the terminal front end: a login/register screen and an
// authenticated dashboard with a files sidebar, a text chat tab, and a
// push-to-talk voice tab.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ekorkmaz/voxboard/internal/gateway"
	"github.com/ekorkmaz/voxboard/internal/service/chat"
	"github.com/ekorkmaz/voxboard/internal/service/files"
	"github.com/ekorkmaz/voxboard/internal/service/voice"
	"github.com/ekorkmaz/voxboard/internal/session"
)

type screen int

const (
	screenAuth screen = iota
	screenDashboard
)

// Deps carries the services the UI drives. Voice and VoiceEvents are nil when
// the speech engine is not configured.
type Deps struct {
	Store   *session.Store
	Flow    *session.Flow
	Gateway *gateway.Client
	Files   *files.Registry
	Chat    *chat.Sequencer
	Voice   *voice.Sequencer

	VoiceEvents <-chan VoiceEvent
	Timeout     time.Duration
}

// App is the root bubbletea model.
type App struct {
	deps   Deps
	styles *Styles

	screen    screen
	auth      *authForm
	dashboard *dashboard

	width  int
	height int

	// runCtx outlives individual requests; it backs long-running capture
	// sessions started from key handlers.
	runCtx context.Context
}

// NewApp builds the root model. The session is validated on startup when a
// persisted token exists.
func NewApp(deps Deps) *App {
	if deps.Timeout <= 0 {
		deps.Timeout = defaultRequestTimeout
	}
	styles := NewStyles()
	return &App{
		deps:      deps,
		styles:    styles,
		auth:      newAuthForm(styles),
		dashboard: newDashboard(styles),
		runCtx:    context.Background(),
	}
}

// Init validates a persisted session and begins draining voice events.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if a.deps.Store.HasToken() {
		cmds = append(cmds, a.refreshCmd())
	}
	if cmd := a.waitVoiceEvent(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update routes messages to the active screen.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.screen == screenDashboard {
			return a, a.dashboard.Update(msg, a)
		}
		return a, a.auth.Update(msg, a)

	case sessionMsg:
		a.auth.settle(nil)
		a.screen = screenDashboard
		return a, a.loadFilesCmd()

	case authFailedMsg:
		// A rejected startup token silently lands on the login screen.
		if errors.Is(msg.err, gateway.ErrUnauthorized) && a.screen == screenAuth && !a.auth.busy {
			a.auth.settle(nil)
			return a, nil
		}
		a.auth.settle(msg.err)
		return a, nil

	case registeredMsg:
		a.auth.registered(msg.account.Email)
		return a, nil

	case loggedOutMsg:
		a.screen = screenAuth
		a.auth = newAuthForm(a.styles)
		a.dashboard = newDashboard(a.styles)
		return a, nil

	case filesLoadedMsg:
		if msg.err != nil {
			a.dashboard.setStatus(fmt.Sprintf("Could not load files: %v", msg.err), true)
		}
		return a, nil

	case uploadDoneMsg:
		a.applyUploadOutcome(msg)
		return a, nil

	case deleteDoneMsg:
		if msg.err != nil {
			a.dashboard.setStatus(fmt.Sprintf("Delete failed: %v", msg.err), true)
		} else {
			a.dashboard.setStatus("File deleted.", false)
		}
		return a, nil

	case chatSettledMsg:
		a.dashboard.chatBusy = false
		if msg.err != nil {
			a.dashboard.setStatus(msg.err.Error(), true)
		}
		return a, nil

	case voiceStartedMsg:
		if msg.err != nil {
			a.dashboard.setStatus("Could not start the microphone.", true)
		}
		return a, nil

	case voiceSettledMsg:
		a.dashboard.voiceBusy = false
		return a, nil

	case voiceEventMsg:
		a.applyVoiceEvent(msg.event)
		return a, a.waitVoiceEvent()

	case voiceChannelDone:
		return a, nil
	}

	return a, nil
}

func (a *App) applyUploadOutcome(msg uploadDoneMsg) {
	if msg.err != nil {
		a.dashboard.setStatus(msg.err.Error(), true)
		return
	}

	ok, failed := 0, 0
	var firstErr error
	for _, r := range msg.results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		ok++
	}

	switch {
	case failed == 0:
		a.dashboard.setStatus(fmt.Sprintf("Uploaded %d file(s).", ok), false)
	case ok == 0:
		a.dashboard.setStatus(fmt.Sprintf("Upload failed: %v", firstErr), true)
	default:
		a.dashboard.setStatus(fmt.Sprintf("Uploaded %d file(s), %d failed: %v", ok, failed, firstErr), true)
	}
}

// applyVoiceEvent feeds one engine callback into the voice sequencer on the
// UI loop, keeping all state transitions single-threaded.
func (a *App) applyVoiceEvent(event VoiceEvent) {
	if a.deps.Voice == nil {
		return
	}
	switch event.Kind {
	case VoiceEngineStarted:
		a.deps.Voice.EngineStarted()
	case VoiceEngineResult:
		a.deps.Voice.HandleResult(event.Fragments)
	case VoiceEngineEnded:
		a.deps.Voice.EngineEnded()
	case VoiceEngineError:
		a.deps.Voice.EngineError(event.Err)
		a.dashboard.setStatus("Voice capture error. Press space to try again.", true)
	}
}

// View renders the active screen.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}
	if a.screen == screenDashboard {
		return a.dashboard.View(a, a.width, a.height)
	}
	return a.auth.View(a.width)
}
