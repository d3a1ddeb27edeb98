package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
)

// signInForm collects credentials for login, or for registration when register is set.
type signInForm struct {
	inputs     []textinput.Model
	focus      int
	register   bool
	submitting bool
	err        string
}

func newSignInForm() signInForm {
	email := newInput("you@example.com", false)
	password := newInput("password", true)
	confirm := newInput("repeat password", true)

	f := signInForm{inputs: []textinput.Model{email, password, confirm}}
	f.setFocus(fieldEmail)
	return f
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 40
	ti.Cursor.SetMode(cursor.CursorStatic)
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func (f *signInForm) fields() int {
	if f.register {
		return 3
	}
	return 2
}

func (f *signInForm) setFocus(i int) {
	f.focus = i
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *signInForm) next(step int) {
	n := f.fields()
	f.setFocus((f.focus + step + n) % n)
}

func (f *signInForm) toggleMode() {
	f.register = !f.register
	f.err = ""
	f.inputs[fieldConfirm].SetValue("")
	if f.focus >= f.fields() {
		f.setFocus(fieldEmail)
	}
}

func (f *signInForm) reset() {
	register := f.register
	*f = newSignInForm()
	f.register = register
}

func (f *signInForm) credentials() models.Credentials {
	return models.Credentials{
		Email:    strings.TrimSpace(f.inputs[fieldEmail].Value()),
		Password: f.inputs[fieldPassword].Value(),
	}
}

// validate checks the form locally so obviously bad input never reaches the API.
func (f *signInForm) validate() error {
	creds := f.credentials()
	if f.register {
		return shared.ValidateRegistration(creds.Email, creds.Password, f.inputs[fieldConfirm].Value())
	}
	return shared.ValidateCredentials(creds.Email, creds.Password)
}

func (f *signInForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *signInForm) view(p *Palette) string {
	var b strings.Builder

	title := "Sign in"
	if f.register {
		title = "Create an account"
	}
	b.WriteString(p.title.Render(title) + "\n")

	labels := []string{"Email", "Password", "Confirm password"}
	for i := 0; i < f.fields(); i++ {
		fmt.Fprintf(&b, "%s\n%s\n", p.muted.Render(labels[i]), f.inputs[i].View())
		if i == fieldPassword && f.register {
			b.WriteString(strengthMeter(f.inputs[fieldPassword].Value()) + "\n")
		}
		b.WriteString("\n")
	}

	switch {
	case f.submitting:
		b.WriteString(p.info.Render("Signing in...") + "\n")
	case f.err != "":
		b.WriteString(p.err.Render(f.err) + "\n")
	}
	return b.String()
}

// strengthMeter renders a five-segment bar colored by [shared.PasswordStrength].
func strengthMeter(password string) string {
	if password == "" {
		return ""
	}
	s := shared.PasswordStrength(password)
	filled := min(max(s.Score, 1), 5)
	bar := strings.Repeat("■", filled) + strings.Repeat("□", 5-filled)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(bar + " " + s.Label)
}
