package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/session"
)

// credentials backs both the login and the first-run form.
type credentials struct {
	Account  string `tui:"title=Username,desc=Username or email,validate=account"`
	Password string `tui:"title=Password,type=password,validate=required"`
}

type setupCredentials struct {
	Account  string `tui:"title=Username,validate=account"`
	Password string `tui:"title=New password,type=password,validate=password"`
}

// formView is a huh form that submits once.
type formView struct {
	form      *huh.Form
	values    *credentials
	submitted bool
	err       error
	hint      func() string
	sync      func()
}

func newLoginForm(p *message.Printer) *formView {
	v := &credentials{}
	return &formView{form: AutoForm(v, p), values: v}
}

func newSetupForm(p *message.Printer) *formView {
	in := &setupCredentials{}
	f := &formView{form: AutoForm(in, p), values: &credentials{}}
	f.hint = func() string {
		if in.Password == "" {
			return ""
		}
		return p.Sprintf("Password strength: %s", p.Sprintf(session.EstimateStrength(in.Password).Label()))
	}
	// The setup form writes into its own struct; mirror it on completion.
	f.sync = func() { f.values.Account, f.values.Password = in.Account, in.Password }
	return f
}

// Update forwards msg to the form.
func (f *formView) Update(msg tea.Msg) tea.Cmd {
	if f == nil || f.submitted {
		return nil
	}
	model, cmd := f.form.Update(msg)
	if form, ok := model.(*huh.Form); ok {
		f.form = form
	}
	return cmd
}

// Completed reports, exactly once, that the user finished the form.
func (f *formView) Completed() bool {
	if f == nil || f.submitted || f.form.State != huh.StateCompleted {
		return false
	}
	if f.sync != nil {
		f.sync()
	}
	f.submitted = true
	return true
}

func (f *formView) View(title string) string {
	if f == nil {
		return ""
	}
	parts := []string{StyleHeader.Render(title)}
	if f.err != nil {
		parts = append(parts, errText(f.err))
	}
	if f.submitted {
		parts = append(parts, StyleSubtitle.Render("…"))
	} else {
		parts = append(parts, f.form.View())
	}
	if f.hint != nil {
		if h := f.hint(); h != "" {
			parts = append(parts, StyleSubtitle.Render(h))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
