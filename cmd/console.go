package cmd

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/notification"
	"github.com/y-ui/yuictl/internal/state"
	"github.com/y-ui/yuictl/internal/tui"
)

// RunConsole starts the TUI console
func RunConsole(args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	opts := commonFlags(fs)

	var (
		debugLog, landing, metricsAddr string
	)
	fs.StringVar(&debugLog, "debug-log", "", "Write debug logs to this file")
	fs.StringVar(&landing, "landing", "", "First route to open (default from config)")
	fs.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9180")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	// The console owns the terminal; logs go to the debug file or nowhere.
	level := logging.LevelInfo
	if opts.Verbose {
		level = logging.LevelDebug
	}
	logger, closer, err := tui.OpenDebugLog(debugLog, level)
	if err != nil {
		return Fail(stderrOf(opts), Printer, err)
	}
	defer closer.Close()
	opts.Logger = logger

	return run(opts, func(ctx context.Context, a *App) error {
		toasts := make(chan notification.Notification, 16)
		a.Notifier.RemoveSink("stderr")
		a.Notifier.AddSink(notification.Sink{Name: "console", Notifier: notification.ChanSink(toasts)})

		if metricsAddr != "" {
			stop, err := serveMetrics(metricsAddr, a)
			if err != nil {
				return err
			}
			defer stop()
		}

		a.Restore(ctx)

		deps := tui.Deps{
			Session:   a.Session,
			API:       a.API,
			Navigator: a.Navigator,
			Routes:    a.Routes,
			Toasts:    toasts,
			Printer:   a.Printer,
			Logger:    logger,
			Refresh:   a.Config.RefreshInterval(),
		}
		var prefs *state.PrefsStore
		if a.state != nil {
			prefs = state.NewPrefsStore(a.state)
			deps.Prefs = prefs
		}
		deps.Landing = landingRoute(landing, prefs, a.Config.Console.Landing, logger)

		model := tui.NewModel(deps)
		defer model.Close()

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})
}

// landingRoute picks the first page: the flag, then the page the previous
// console run ended on, then the config.
func landingRoute(flagValue string, prefs *state.PrefsStore, configured string, logger *logging.Logger) string {
	if flagValue != "" {
		return flagValue
	}
	if prefs != nil {
		p, err := prefs.Load()
		if err != nil {
			logger.Warn("failed to load console prefs", "error", err)
		} else if p.LastRoute != "" {
			return p.LastRoute
		}
	}
	return configured
}

// serveMetrics exposes the registry until stop is called.
func serveMetrics(addr string, a *App) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server failed", "error", err)
		}
	}()
	a.Logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
