package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/config"
	"github.com/y-ui/yuictl/internal/events"
	"github.com/y-ui/yuictl/internal/i18n"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
	"github.com/y-ui/yuictl/internal/notification"
	"github.com/y-ui/yuictl/internal/route"
	"github.com/y-ui/yuictl/internal/session"
	"github.com/y-ui/yuictl/internal/state"
	"github.com/y-ui/yuictl/internal/transport"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter("")

// Output streams of every command; tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Options are the flags shared by every panel command.
type Options struct {
	ConfigFile string
	Server     string
	Insecure   bool
	Ephemeral  bool
	Output     string
	Verbose    bool

	// Set by callers, not flags.
	Stdout io.Writer
	Stderr io.Writer
	Logger *logging.Logger
	Getenv func(string) string
}

func commonFlags(fs *flag.FlagSet) *Options {
	o := &Options{Stdout: Stdout, Stderr: Stderr}
	def := brand.GetConfigPath()

	fs.StringVar(&o.ConfigFile, "config", def, "Configuration file")
	fs.StringVar(&o.ConfigFile, "c", def, "Configuration file (short)")

	fs.StringVar(&o.Server, "server", "", "Panel URL, e.g. https://panel.example.com:2053")
	fs.StringVar(&o.Server, "s", "", "Panel URL (short)")

	fs.BoolVar(&o.Insecure, "insecure", false, "Skip TLS certificate verification")
	fs.BoolVar(&o.Ephemeral, "ephemeral", false, "Keep the session in memory only")

	fs.StringVar(&o.Output, "output", string(FormatTable), "Output format: table, json or yaml")
	fs.StringVar(&o.Output, "o", string(FormatTable), "Output format (short)")

	fs.BoolVar(&o.Verbose, "verbose", false, "Debug logging on stderr")
	fs.BoolVar(&o.Verbose, "v", false, "Debug logging (short)")
	return o
}

// App is the client stack one command runs against.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Printer   *message.Printer
	Metrics   *metrics.Registry
	Events    *events.Hub
	Notifier  *notification.Dispatcher
	Transport *transport.Client
	Session   *session.Store
	API       *api.API
	Routes    *route.Table
	Navigator *route.Navigator

	Format Format
	Stdout io.Writer

	state *state.SQLiteStore
}

// Open loads configuration and wires transport, session and navigator.
// Flags override the environment, which overrides the config file.
func Open(ctx context.Context, opts *Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	format, err := ParseFormat(opts.Output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(opts.ConfigFile, true)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(opts.Getenv); err != nil {
		return nil, err
	}
	if opts.Server != "" {
		cfg.Server = opts.Server
	}
	if opts.Insecure {
		cfg.Insecure = true
	}
	if opts.Ephemeral {
		cfg.StatePath = state.MemoryPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		if opts.Verbose {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{Level: level, Output: opts.Stderr, JSON: cfg.Logging.JSON})
	}
	logging.SetDefault(logger)

	lang := i18n.Resolve(cfg.Language, opts.Getenv)
	a := &App{
		Config:  cfg,
		Logger:  logger.WithComponent("cli"),
		Printer: i18n.NewPrinter(lang),
		Metrics: metrics.Get(),
		Events:  events.NewHub(),
		Format:  format,
		Stdout:  opts.Stdout,
	}

	a.Notifier = notification.NewDispatcher(nil, logger.WithComponent("notification"))
	a.Notifier.AddSink(notification.Sink{Name: "log", Notifier: notification.LogSink(logger.WithComponent("notification"))})
	a.Notifier.AddSink(notification.Sink{Name: "stderr", MinLevel: notification.LevelWarning, Notifier: notification.WriterSink(opts.Stderr)})

	var storage state.TokenStorage
	if cfg.StatePath == state.MemoryPath {
		storage = state.NewMemoryTokenStorage("")
	} else {
		a.state, err = state.NewSQLiteStore(ctx, state.Options{Path: cfg.StatePath, Logger: logger.WithComponent("state")})
		if err != nil {
			return nil, fmt.Errorf("failed to open session state: %w", err)
		}
		storage = state.NewTokenStorage(a.state)
	}

	a.Transport = transport.New(transport.Config{
		Server:      cfg.Server,
		BasePath:    cfg.BasePath,
		Timeout:     cfg.TimeoutDuration(),
		Insecure:    cfg.Insecure,
		Fingerprint: cfg.Fingerprint,
		Language:    lang.String(),
	},
		transport.WithTokenSource(transport.TokenFunc(func() string { return a.Session.Token() })),
		transport.WithNotifier(a.Notifier),
		transport.WithLogger(logger.WithComponent("transport").WithFields(map[string]any{"server": cfg.Server})),
		transport.WithMetrics(a.Metrics),
	)

	a.Session, err = session.New(session.Options{
		Transport: a.Transport,
		Storage:   storage,
		Events:    a.Events,
		Logger:    logger.WithComponent("session"),
		Metrics:   a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.API = api.New(a.Transport)
	a.Routes = route.Default()
	a.Navigator = route.NewNavigator(route.NewGuard(a.Routes),
		func() route.Principal { return a.Session.Snapshot() },
		route.WithLogger(logger.WithComponent("route")),
		route.WithMetrics(a.Metrics),
	)
	return a, nil
}

// Close detaches the session and closes the state database.
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
	}
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.Logger.Warn("failed to close session state", "error", err)
		}
	}
}

// Restore loads the identity for a persisted token. A rejected token ends
// the session; that is reported, not returned.
func (a *App) Restore(ctx context.Context) {
	snap := a.Session.Snapshot()
	if !snap.IsAuthenticated() || snap.Identity != nil {
		return
	}
	if err := a.Session.FetchProfile(ctx); err != nil {
		a.Logger.Debug("stored session is no longer valid", "error", transport.Message(err))
	}
}

// RequireSession restores the session and fails when there is none.
func (a *App) RequireSession(ctx context.Context) error {
	a.Restore(ctx)
	if !a.Session.Snapshot().IsAuthenticated() {
		return session.ErrNoSession
	}
	return nil
}

// reported marks an error the user has already seen.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// Reported reports whether err was already printed.
func Reported(err error) bool {
	var r reported
	return errors.As(err, &r)
}

// parseFlags parses args; the flag package prints its own errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return reported{err}
	}
	return nil
}

// Fail prints err unless the transport already showed it to the user, and
// returns it marked as reported.
func Fail(w io.Writer, p *message.Printer, err error) error {
	if err == nil || Reported(err) {
		return err
	}
	switch e, ok := transport.AsError(err); {
	case errors.Is(err, session.ErrNoSession):
		p.Fprintf(w, "%s\n", p.Sprintf("Not logged in"))
	case ok && e.Kind == transport.KindUnauthorized:
		p.Fprintf(w, "%s\n", p.Sprintf("Session expired, please log in again"))
	case ok && !errors.Is(e.Err, context.Canceled):
		// already on stderr via the notifier
	default:
		p.Fprintf(w, "Error: %v\n", err)
	}
	return reported{err}
}

// run opens the app for the duration of fn.
func run(opts *Options, fn func(ctx context.Context, a *App) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := Open(ctx, opts)
	if err != nil {
		return Fail(stderrOf(opts), Printer, err)
	}
	defer a.Close()

	err = fn(ctx, a)
	a.hintFingerprint(stderrOf(opts), err)
	return Fail(stderrOf(opts), a.Printer, err)
}

// hintFingerprint prints the certificate the panel presented when a
// connection that checks fingerprints failed, so the user can pin it.
func (a *App) hintFingerprint(w io.Writer, err error) {
	if !transport.IsNetwork(err) {
		return
	}
	seen := a.Transport.SeenFingerprint()
	if seen == "" || seen == transport.NormalizeFingerprint(a.Config.Fingerprint) {
		return
	}
	p := a.Printer
	p.Fprintf(w, "%s\n", p.Sprintf("Panel certificate fingerprint is %s; set fingerprint in the config to trust it", seen))
}

func stderrOf(opts *Options) io.Writer {
	if opts.Stderr != nil {
		return opts.Stderr
	}
	return os.Stderr
}
