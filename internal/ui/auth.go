package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// authForm is the login/register screen. The same model serves both modes;
// register shows one extra field.
type authForm struct {
	styles *Styles

	registering bool
	fields      []*field
	focusIdx    int

	busy   bool
	errMsg string
	notice string
}

func newAuthForm(styles *Styles) *authForm {
	form := &authForm{styles: styles}
	form.setMode(false)
	return form
}

func (f *authForm) setMode(registering bool) {
	f.registering = registering
	f.errMsg = ""
	f.focusIdx = 0

	if registering {
		f.fields = []*field{
			newField("Email:    ", "you@example.com"),
			newMaskedField("Password: ", ""),
			newField("Full name:", "optional"),
		}
	} else {
		f.fields = []*field{
			newField("Email:    ", "you@example.com"),
			newMaskedField("Password: ", ""),
		}
	}
	f.fields[0].Focus()
}

func (f *authForm) focusNext() {
	f.fields[f.focusIdx].Blur()
	f.focusIdx = (f.focusIdx + 1) % len(f.fields)
	f.fields[f.focusIdx].Focus()
}

// Update handles one key press and returns a command when the form submits.
func (f *authForm) Update(msg tea.KeyMsg, app *App) tea.Cmd {
	if f.busy {
		return nil
	}

	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		f.focusNext()
		return nil
	case tea.KeyEnter:
		return f.submit(app)
	}

	switch msg.String() {
	case "ctrl+r":
		f.setMode(!f.registering)
		return nil
	}

	f.fields[f.focusIdx].Handle(msg)
	return nil
}

func (f *authForm) submit(app *App) tea.Cmd {
	email := strings.TrimSpace(f.fields[0].Value())
	password := f.fields[1].Value()
	if email == "" || password == "" {
		f.errMsg = "Email and password are required"
		return nil
	}

	f.busy = true
	f.errMsg = ""
	f.notice = ""

	if f.registering {
		fullName := strings.TrimSpace(f.fields[2].Value())
		return app.registerCmd(email, password, fullName)
	}
	return app.loginCmd(email, password)
}

func (f *authForm) settle(err error) {
	f.busy = false
	if err != nil {
		f.errMsg = err.Error()
	}
}

// registered flips back to login mode with the email preserved.
func (f *authForm) registered(email string) {
	email = strings.TrimSpace(email)
	f.busy = false
	f.setMode(false)
	f.fields[0].SetValue(email)
	f.notice = "Account created. Sign in to continue."
}

func (f *authForm) View(width int) string {
	title := "Sign in"
	hint := "enter: sign in · ctrl+r: create account · ctrl+c: quit"
	if f.registering {
		title = "Create account"
		hint = "enter: register · ctrl+r: back to sign in · ctrl+c: quit"
	}

	lines := []string{f.styles.Title.Render(title), ""}
	for _, fld := range f.fields {
		lines = append(lines, fld.View(f.styles))
	}
	lines = append(lines, "")

	switch {
	case f.busy:
		lines = append(lines, f.styles.Subtle.Render("Working..."))
	case f.errMsg != "":
		lines = append(lines, f.styles.Error.Render(f.errMsg))
	case f.notice != "":
		lines = append(lines, f.styles.Success.Render(f.notice))
	}

	lines = append(lines, "", f.styles.Footer.Render(hint))

	box := f.styles.Pane.Width(min(width-2, 60)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, lipgloss.Height(box)+2, lipgloss.Center, lipgloss.Top, box)
}
