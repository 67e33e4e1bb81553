package tui

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/ui"
)

type settingsData struct {
	Status api.SystemStatus
	Update *api.UpdateInfo
	Config int // size of the generated Xray config in bytes
}

func fetchSettings(ctx context.Context, a *api.API) (any, error) {
	st, err := a.System.Status(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := a.System.Config(ctx)
	if err != nil {
		return nil, err
	}
	d := settingsData{Status: st, Config: len(cfg)}
	// The update check talks to GitHub through the panel and may fail on
	// isolated hosts; the rest of the page is still useful.
	if info, err := a.System.CheckUpdate(ctx); err == nil {
		d.Update = &info
	}
	return d, nil
}

// SettingsModel is the admin-only system page.
type SettingsModel struct {
	p    *message.Printer
	data *settingsData
	err  error
}

func NewSettingsModel(p *message.Printer) *SettingsModel {
	return &SettingsModel{p: p}
}

func (m *SettingsModel) Apply(data any, err error) {
	m.err = err
	if d, ok := data.(settingsData); ok {
		m.data = &d
	}
}

// HandleKey runs the Xray actions: x reloads, X restarts.
func (m *SettingsModel) HandleKey(key string, a *api.API) tea.Cmd {
	var (
		run  func(context.Context) (string, error)
		done string
	)
	switch key {
	case "x":
		run, done = a.System.Reload, m.p.Sprintf("Xray reloaded")
	case "X":
		run, done = a.System.Restart, m.p.Sprintf("Xray restarted")
	default:
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		_, err := run(ctx)
		return actionMsg{text: done, err: err}
	}
}

func (m *SettingsModel) View() string {
	if m.data == nil {
		if m.err != nil {
			return errText(m.err)
		}
		return m.p.Sprintf("Loading...")
	}
	st := m.data.Status

	records := []ui.Record{
		{Label: m.p.Sprintf("Hostname"), Value: st.Hostname},
		{Label: m.p.Sprintf("Platform"), Value: st.Platform + " " + st.OS + "/" + st.Arch},
		{Label: m.p.Sprintf("Uptime"), Value: ui.Uptime(st.Uptime)},
		{Label: "Xray", Value: st.XrayVersion + " (" + strconv.Itoa(m.data.Config) + " B config)"},
	}
	if u := m.data.Update; u != nil {
		status := m.p.Sprintf("Up to date")
		if u.HasUpdate {
			status = StyleStatusWarn.Render(m.p.Sprintf("Update available") + ": " + u.LatestVersion + " " + u.ReleaseURL)
		}
		records = append(records,
			ui.Record{Label: m.p.Sprintf("Version"), Value: u.CurrentVersion},
			ui.Record{Label: m.p.Sprintf("Latest version"), Value: status},
		)
	}

	var lines []string
	for _, r := range records {
		lines = append(lines, StyleTitle.Render(r.Label+": ")+r.Value)
	}
	lines = append(lines, StyleSubtitle.Render("[x] reload Xray  [X] restart Xray"))

	out := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if m.err != nil {
		out = lipgloss.JoinVertical(lipgloss.Left, out, errText(m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, StyleHeader.Render(m.p.Sprintf("Settings")), out)
}
