package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
	"github.com/ekorkmaz/voxboard/internal/model/user"
	"github.com/ekorkmaz/voxboard/internal/service/files"
)

// VoiceEventKind names the capture engine callbacks forwarded to the UI loop.
type VoiceEventKind int

const (
	VoiceEngineStarted VoiceEventKind = iota
	VoiceEngineResult
	VoiceEngineEnded
	VoiceEngineError
)

// VoiceEvent is one capture engine callback, delivered over a channel so all
// sequencer mutations happen on the UI loop.
type VoiceEvent struct {
	Kind      VoiceEventKind
	Fragments []speechmodel.Fragment
	Err       error
}

type (
	sessionMsg struct {
		user user.User
	}
	authFailedMsg struct {
		err error
	}
	registeredMsg struct {
		account user.User
	}
	loggedOutMsg struct{}

	filesLoadedMsg struct {
		err error
	}
	uploadDoneMsg struct {
		results []files.UploadResult
		err     error
	}
	deleteDoneMsg struct {
		err error
	}

	chatSettledMsg struct {
		err error
	}
	voiceStartedMsg struct {
		err error
	}
	voiceSettledMsg  struct{}
	voiceEventMsg    struct{ event VoiceEvent }
	voiceChannelDone struct{}
)

func (a *App) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		me, err := a.deps.Flow.Refresh(ctx)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return sessionMsg{user: me}
	}
}

func (a *App) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		me, err := a.deps.Flow.Login(ctx, email, password)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return sessionMsg{user: me}
	}
}

func (a *App) registerCmd(email, password, fullName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		account, err := a.deps.Gateway.Register(ctx, email, password, fullName)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return registeredMsg{account: account}
	}
}

func (a *App) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		_ = a.deps.Flow.Logout()
		return loggedOutMsg{}
	}
}

func (a *App) loadFilesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return filesLoadedMsg{err: a.deps.Files.Load(ctx)}
	}
}

func (a *App) uploadCmd(selection []files.Local) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		results, err := a.deps.Files.Upload(ctx, selection)
		return uploadDoneMsg{results: results, err: err}
	}
}

func (a *App) deleteCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()
		return deleteDoneMsg{err: a.deps.Files.Delete(ctx, id, true)}
	}
}

func (a *App) sendChatCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		_, err := a.deps.Chat.Submit(ctx, text)
		return chatSettledMsg{err: err}
	}
}

// startVoiceCmd runs the blocking engine start off the event loop so the
// "starting" indicator renders while the dial is in flight.
func (a *App) startVoiceCmd() tea.Cmd {
	return func() tea.Msg {
		return voiceStartedMsg{err: a.deps.Voice.StartEngine(a.runCtx)}
	}
}

func (a *App) dispatchVoiceCmd(utterance string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.requestContext()
		defer cancel()

		a.deps.Voice.Dispatch(ctx, utterance)
		return voiceSettledMsg{}
	}
}

// waitVoiceEvent blocks on the capture engine channel for the next callback.
func (a *App) waitVoiceEvent() tea.Cmd {
	if a.deps.VoiceEvents == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-a.deps.VoiceEvents
		if !ok {
			return voiceChannelDone{}
		}
		return voiceEventMsg{event: event}
	}
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.deps.Timeout)
}

// Timeout fallback for a zero-valued deps struct.
const defaultRequestTimeout = 30 * time.Second
