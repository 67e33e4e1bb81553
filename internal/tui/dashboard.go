package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/ui"
)

type dashboardData struct {
	Status  api.SystemStatus
	Summary api.TrafficSummary
}

func fetchDashboard(ctx context.Context, a *api.API) (any, error) {
	st, err := a.System.Status(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := a.Stats.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return dashboardData{Status: st, Summary: sum}, nil
}

// DashboardModel shows host health and traffic totals.
type DashboardModel struct {
	p    *message.Printer
	data *dashboardData
	err  error
}

func NewDashboardModel(p *message.Printer) *DashboardModel {
	return &DashboardModel{p: p}
}

// Apply stores a load result. A failed refresh keeps the last good data.
func (m *DashboardModel) Apply(data any, err error) {
	m.err = err
	if d, ok := data.(dashboardData); ok {
		m.data = &d
	}
}

func (m *DashboardModel) View() string {
	if m.data == nil {
		if m.err != nil {
			return errText(m.err)
		}
		return m.p.Sprintf("Loading...")
	}
	st, sum := m.data.Status, m.data.Summary

	xray := StyleStatusGood.Render(m.p.Sprintf("running"))
	if !st.XrayRunning {
		xray = StyleStatusBad.Render(m.p.Sprintf("stopped"))
	}

	system := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render(m.p.Sprintf("System")),
		fmt.Sprintf("%s  %s/%s", st.Hostname, st.OS, st.Arch),
		StyleSubtitle.Render(m.p.Sprintf("Uptime")+": "+ui.Uptime(st.Uptime)),
		"Xray "+st.XrayVersion+"  "+xray,
	))

	resources := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render(m.p.Sprintf("CPU")+fmt.Sprintf(" (%d)", st.CPU.Cores)),
		progressBar(avg(st.CPU.Usage)/100),
		StyleTitle.Render(m.p.Sprintf("Memory")),
		progressBar(st.Memory.UsedPercent/100)+" "+ui.Bytes(int64(st.Memory.Used))+"/"+ui.Bytes(int64(st.Memory.Total)),
		StyleTitle.Render(m.p.Sprintf("Disk")),
		progressBar(st.Disk.UsedPercent/100)+" "+ui.Bytes(int64(st.Disk.Used))+"/"+ui.Bytes(int64(st.Disk.Total)),
	))

	traffic := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render(m.p.Sprintf("Traffic")),
		m.p.Sprintf("Upload total")+": "+ui.Bytes(sum.TotalUpload),
		m.p.Sprintf("Download total")+": "+ui.Bytes(sum.TotalDownload),
		m.p.Sprintf("Clients active")+fmt.Sprintf(": %d/%d", sum.ActiveClients, sum.TotalClients),
	))

	out := lipgloss.JoinHorizontal(lipgloss.Top, system, resources, traffic)
	if m.err != nil {
		out = lipgloss.JoinVertical(lipgloss.Left, out, errText(m.err))
	}
	return out
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// progressBar renders a 0..1 fraction as a fixed-width bar.
func progressBar(fraction float64) string {
	const w = 20
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(float64(w) * fraction)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", w-filled)
	return fmt.Sprintf("[%s] %.0f%%", bar, fraction*100)
}
