package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/route"
	"github.com/y-ui/yuictl/internal/ui"
)

type statusReport struct {
	Server      string             `json:"server"`
	Certificate string             `json:"certificate,omitempty"`
	System      api.SystemStatus   `json:"system"`
	Traffic     api.TrafficSummary `json:"traffic"`
}

// RunStatus prints host health and traffic totals of the panel.
func RunStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		st, err := a.API.System.Status(ctx)
		if err != nil {
			return err
		}
		sum, err := a.API.Stats.Summary(ctx)
		if err != nil {
			return err
		}

		p := a.Printer
		xray := p.Sprintf("stopped")
		if st.XrayRunning {
			xray = p.Sprintf("running")
		}
		var cpu float64
		for _, u := range st.CPU.Usage {
			cpu += u
		}
		if n := len(st.CPU.Usage); n > 0 {
			cpu /= float64(n)
		}

		report := statusReport{Server: a.Config.Server, Certificate: a.Transport.SeenFingerprint(), System: st, Traffic: sum}
		records := []ui.Record{{Label: "Server", Value: a.Config.Server}}
		if report.Certificate != "" {
			records = append(records, ui.Record{Label: "Certificate", Value: report.Certificate})
		}
		records = append(records, []ui.Record{
			{Label: "Hostname", Value: st.Hostname},
			{Label: "Platform", Value: fmt.Sprintf("%s %s/%s", st.Platform, st.OS, st.Arch)},
			{Label: "Uptime", Value: ui.Uptime(st.Uptime)},
			{Label: "Xray", Value: strings.TrimSpace(st.XrayVersion + " " + xray)},
			{Label: "CPU", Value: fmt.Sprintf("%.1f%% (%d)", cpu, st.CPU.Cores)},
			{Label: "Memory", Value: fmt.Sprintf("%s / %s", ui.Bytes(int64(st.Memory.Used)), ui.Bytes(int64(st.Memory.Total)))},
			{Label: "Disk", Value: fmt.Sprintf("%s / %s", ui.Bytes(int64(st.Disk.Used)), ui.Bytes(int64(st.Disk.Total)))},
			{Label: "Upload total", Value: ui.Bytes(sum.TotalUpload)},
			{Label: "Download total", Value: ui.Bytes(sum.TotalDownload)},
			{Label: "Clients active", Value: fmt.Sprintf("%d/%d", sum.ActiveClients, sum.TotalClients)},
		}...)
		return printRecords(a, report, records)
	})
}

type routeStep struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Target  string `json:"target,omitempty"`
}

type routeReport struct {
	Requested string      `json:"requested"`
	Resolved  string      `json:"resolved"`
	Steps     []routeStep `json:"steps"`
}

// RunRoute shows where the console would land for a path, given the
// current session.
func RunRoute(args []string) error {
	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s route [flags] <path>", brand.BinaryName)
	}
	path := fs.Arg(0)

	return run(opts, func(ctx context.Context, a *App) error {
		a.Restore(ctx)

		c, err := a.Navigator.Navigate(path)
		if err != nil {
			return err
		}
		report := routeReport{Requested: route.Normalize(path), Resolved: c.To}
		for _, d := range c.Decisions {
			report.Steps = append(report.Steps, routeStep{
				Path: d.Path, Outcome: d.Outcome.String(), Reason: d.Reason, Target: d.Target,
			})
		}
		if a.Format != FormatTable {
			return writeData(a.Stdout, a.Format, report)
		}

		p := a.Printer
		for _, s := range report.Steps {
			line := fmt.Sprintf("  %-14s %-8s %s", s.Path, s.Outcome, s.Reason)
			if s.Target != "" {
				line += " -> " + s.Target
			}
			fmt.Fprintln(a.Stdout, line)
		}
		if c.Redirected() {
			// The last redirect is the one that decided the destination.
			var reason string
			for _, s := range report.Steps {
				if s.Outcome == route.Redirect.String() {
					reason = s.Reason
				}
			}
			say(a, "Redirected to %s (%s)", c.To, reason)
			return nil
		}
		title := c.To
		if r, ok := a.Routes.Lookup(c.To); ok && r.Title != "" {
			title = p.Sprintf(r.Title)
		}
		say(a, "Allowed: %s", title)
		return nil
	})
}
