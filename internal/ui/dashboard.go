package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	filemodel "github.com/ekorkmaz/voxboard/internal/model/file"
	"github.com/ekorkmaz/voxboard/internal/model/transcript"
	"github.com/ekorkmaz/voxboard/internal/service/files"
	"github.com/ekorkmaz/voxboard/internal/service/voice"
)

const (
	tabChat = iota
	tabVoice
)

const (
	focusMain = iota
	focusFiles
)

// dashboard is the authenticated screen: a files sidebar plus the chat and
// voice tabs.
type dashboard struct {
	styles *Styles

	tab   int
	focus int

	chatInput   *field
	uploadInput *field
	uploading   bool

	selected      int
	confirmDelete bool

	chatBusy  bool
	voiceBusy bool

	status  string
	isError bool
}

func newDashboard(styles *Styles) *dashboard {
	input := newField(">", "type a message")
	input.Focus()
	return &dashboard{
		styles:      styles,
		chatInput:   input,
		uploadInput: newField("Path:", "/path/to/file.png"),
	}
}

func (d *dashboard) setStatus(text string, isError bool) {
	d.status = text
	d.isError = isError
}

// Update handles one key press on the dashboard.
func (d *dashboard) Update(msg tea.KeyMsg, app *App) tea.Cmd {
	// Global dashboard keys that never collide with text entry.
	switch msg.Type {
	case tea.KeyTab:
		d.toggleFocus()
		return nil
	case tea.KeyLeft, tea.KeyRight:
		if !d.uploading {
			d.switchTab()
		}
		return nil
	}
	if msg.String() == "ctrl+l" {
		return app.logoutCmd()
	}

	if d.focus == focusFiles {
		return d.updateFiles(msg, app)
	}
	if d.tab == tabVoice {
		return d.updateVoice(msg, app)
	}
	return d.updateChat(msg, app)
}

func (d *dashboard) toggleFocus() {
	d.confirmDelete = false
	if d.focus == focusFiles {
		d.focus = focusMain
		if d.tab == tabChat {
			d.chatInput.Focus()
		}
		return
	}
	d.focus = focusFiles
	d.chatInput.Blur()
}

func (d *dashboard) switchTab() {
	d.confirmDelete = false
	if d.tab == tabChat {
		d.tab = tabVoice
		d.chatInput.Blur()
		return
	}
	d.tab = tabChat
	if d.focus == focusMain {
		d.chatInput.Focus()
	}
}

func (d *dashboard) updateChat(msg tea.KeyMsg, app *App) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		if d.chatBusy {
			return nil
		}
		text := strings.TrimSpace(d.chatInput.Value())
		if text == "" {
			return nil
		}
		d.chatInput.Reset()
		d.chatBusy = true
		return app.sendChatCmd(text)
	}

	d.chatInput.Handle(msg)
	return nil
}

func (d *dashboard) updateVoice(msg tea.KeyMsg, app *App) tea.Cmd {
	if msg.Type != tea.KeySpace && msg.String() != "v" {
		return nil
	}

	seq := app.deps.Voice
	if seq == nil {
		d.setStatus("Voice is not configured. Set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN.", true)
		return nil
	}

	// Terminals deliver no key-up, so the talk key toggles: first press arms
	// the capture, the second releases it. The engine start runs as a command
	// so the dial never stalls the event loop.
	if seq.Phase() == voice.PhaseIdle {
		if !seq.Press() {
			return nil
		}
		return app.startVoiceCmd()
	}

	utterance, ok := seq.Release()
	if !ok {
		return nil
	}
	d.voiceBusy = true
	return app.dispatchVoiceCmd(utterance)
}

func (d *dashboard) updateFiles(msg tea.KeyMsg, app *App) tea.Cmd {
	if d.uploading {
		switch msg.Type {
		case tea.KeyEnter:
			path := strings.TrimSpace(d.uploadInput.Value())
			d.uploading = false
			d.uploadInput.Reset()
			d.uploadInput.Blur()
			if path == "" {
				return nil
			}
			return app.uploadCmd([]files.Local{{Path: path}})
		case tea.KeyEsc:
			d.uploading = false
			d.uploadInput.Reset()
			d.uploadInput.Blur()
			return nil
		}
		d.uploadInput.Handle(msg)
		return nil
	}

	list := app.deps.Files.Files()

	if d.confirmDelete {
		switch msg.String() {
		case "y":
			d.confirmDelete = false
			if d.selected < len(list) {
				return app.deleteCmd(list[d.selected].ID)
			}
		default:
			d.confirmDelete = false
		}
		return nil
	}

	switch msg.String() {
	case "j", "down":
		if d.selected < len(list)-1 {
			d.selected++
		}
	case "k", "up":
		if d.selected > 0 {
			d.selected--
		}
	case "d":
		if len(list) > 0 {
			d.confirmDelete = true
		}
	case "u":
		d.uploading = true
		d.uploadInput.Focus()
	case "r":
		return app.loadFilesCmd()
	}
	return nil
}

func (d *dashboard) View(app *App, width, height int) string {
	account, _ := app.deps.Store.User()
	header := d.styles.Header.Width(width).Render(
		fmt.Sprintf("voxboard · Welcome, %s", account.DisplayName()))

	sidebarWidth := 32
	if width < 80 {
		sidebarWidth = width / 3
	}
	mainWidth := width - sidebarWidth - 6

	sidebar := d.viewFiles(app, sidebarWidth)
	var main string
	if d.tab == tabVoice {
		main = d.viewVoice(app, mainWidth)
	} else {
		main = d.viewChat(app, mainWidth)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		d.styles.Pane.Width(sidebarWidth).Render(sidebar),
		d.styles.Pane.Width(mainWidth).Render(main),
	)

	footer := d.styles.Footer.Render(d.footerHint())

	statusLine := ""
	if d.status != "" {
		if d.isError {
			statusLine = d.styles.Error.Render(d.status)
		} else {
			statusLine = d.styles.Success.Render(d.status)
		}
	}

	return strings.Join([]string{header, body, statusLine, footer}, "\n")
}

func (d *dashboard) footerHint() string {
	if d.focus == focusFiles {
		if d.uploading {
			return "enter: upload · esc: cancel"
		}
		if d.confirmDelete {
			return "y: confirm delete · any other key: cancel"
		}
		return "j/k: select · u: upload · d: delete · r: refresh · tab: back · ctrl+l: sign out"
	}
	if d.tab == tabVoice {
		return "space: talk/stop · ←/→: switch tab · tab: files · ctrl+l: sign out"
	}
	return "enter: send · ←/→: switch tab · tab: files · ctrl+l: sign out"
}

func (d *dashboard) viewTabs() string {
	chatTab := d.styles.Tab.Render("CHAT")
	voiceTab := d.styles.Tab.Render("VOICE")
	if d.tab == tabChat {
		chatTab = d.styles.ActiveTab.Render("CHAT")
	} else {
		voiceTab = d.styles.ActiveTab.Render("VOICE")
	}
	return chatTab + " " + voiceTab
}

func (d *dashboard) viewFiles(app *App, width int) string {
	list := app.deps.Files.Files()
	if d.selected >= len(list) && len(list) > 0 {
		d.selected = len(list) - 1
	}

	lines := []string{d.styles.Title.Render(fmt.Sprintf("Files (%d)", len(list))), ""}
	if len(list) == 0 {
		lines = append(lines, d.styles.Subtle.Render("No files yet. Press u to upload."))
	}
	for i, f := range list {
		line := fmt.Sprintf("%s  %s", truncate(f.Name, width-14), filemodel.FormatSize(f.Size))
		if i == d.selected && d.focus == focusFiles {
			line = d.styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	if d.confirmDelete && d.selected < len(list) {
		lines = append(lines, "", d.styles.Error.Render(
			fmt.Sprintf("Delete %s? (y/n)", list[d.selected].Name)))
	}
	if d.uploading {
		lines = append(lines, "", d.uploadInput.View(d.styles))
	}

	return strings.Join(lines, "\n")
}

func (d *dashboard) viewChat(app *App, width int) string {
	lines := []string{d.viewTabs(), ""}
	lines = append(lines, d.viewTranscript(app.deps.Chat.Entries(), width)...)
	lines = append(lines, "")
	if d.chatBusy {
		lines = append(lines, d.styles.Subtle.Render("Sending..."))
	}
	lines = append(lines, d.chatInput.View(d.styles))
	return strings.Join(lines, "\n")
}

func (d *dashboard) viewVoice(app *App, width int) string {
	lines := []string{d.viewTabs(), ""}

	if app.deps.Voice == nil {
		lines = append(lines, d.styles.Subtle.Render(
			"Voice is not configured. Set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN."))
		return strings.Join(lines, "\n")
	}

	seq := app.deps.Voice
	switch seq.Phase() {
	case voice.PhaseListening:
		lines = append(lines, d.styles.Listening.Render("● listening"))
	case voice.PhaseStarting:
		lines = append(lines, d.styles.Starting.Render("● starting..."))
	default:
		lines = append(lines, d.styles.Subtle.Render("○ idle · press space to talk"))
	}

	// Live recognition is shown only while a capture is held.
	if seq.Phase() != voice.PhaseIdle {
		live := seq.LiveTranscript()
		if live == "" {
			live = d.styles.Subtle.Render("(listening for speech...)")
		}
		lines = append(lines, live)
	}
	lines = append(lines, "")

	lines = append(lines, d.viewTranscript(seq.Entries(), width)...)
	if d.voiceBusy {
		lines = append(lines, "", d.styles.Subtle.Render("Sending..."))
	}
	return strings.Join(lines, "\n")
}

func (d *dashboard) viewTranscript(entries []transcript.Entry, width int) []string {
	if len(entries) == 0 {
		return []string{d.styles.Subtle.Render("No messages yet.")}
	}

	// Show the tail that fits a fixed window.
	const window = 12
	if len(entries) > window {
		entries = entries[len(entries)-window:]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		stamp := d.styles.Subtle.Render(e.SentAt.Local().Format("15:04"))
		text := truncate(e.Text, width-10)
		switch {
		case e.Failed:
			lines = append(lines, fmt.Sprintf("%s %s", stamp, d.styles.FailedLine.Render(text)))
		case e.Author == transcript.AuthorUser:
			lines = append(lines, fmt.Sprintf("%s %s", stamp, d.styles.UserLine.Render("you: "+text)))
		default:
			lines = append(lines, fmt.Sprintf("%s %s", stamp, d.styles.AssistantLine.Render("bot: "+text)))
		}
	}
	return lines
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
