package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/ui"
	"github.com/y-ui/yuictl/internal/validation"
)

// subcommand splits "clients list -page 2" into "list" and the flags. A
// leading flag means the default subcommand.
func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func unknownSubcommand(cmd, sub string, known ...string) error {
	return fmt.Errorf("unknown %s subcommand %q (want %s)", cmd, sub, strings.Join(known, ", "))
}

func pageFlags(fs *flag.FlagSet) *api.ListOptions {
	o := &api.ListOptions{}
	fs.IntVar(&o.Page, "page", api.DefaultPage, "Page number")
	fs.IntVar(&o.Page, "p", api.DefaultPage, "Page number (short)")
	fs.IntVar(&o.PageSize, "size", api.DefaultPageSize, "Page size")
	return o
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// runList is the shared body of every "<resource> list" command.
func runList[T any](name string, args []string, t ui.Table[T],
	list func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[T], error)) error {

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opts := commonFlags(fs)
	page := pageFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		pg, err := list(ctx, a, *page)
		if err != nil {
			return err
		}
		return printPage(a, t, pg)
	})
}

// runWithID parses "<name> [flags] <id>" and calls fn.
func runWithID(name string, args []string, setup func(fs *flag.FlagSet),
	fn func(ctx context.Context, a *App, id uint) error) error {

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opts := commonFlags(fs)
	if setup != nil {
		setup(fs)
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s %s [flags] <id>", brand.BinaryName, name)
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		return fn(ctx, a, id)
	})
}

// RunClients handles "clients list|links|reset".
func RunClients(args []string) error {
	sub, rest := subcommand(args, "list")
	switch sub {
	case "list":
		return runList("clients list", rest, ui.Clients, func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[api.Client], error) {
			return a.API.Clients.List(ctx, o)
		})

	case "links":
		var host string
		return runWithID("clients links", rest,
			func(fs *flag.FlagSet) {
				fs.StringVar(&host, "host", "", "Host written into the links (default: the panel host)")
			},
			func(ctx context.Context, a *App, id uint) error {
				if host == "" {
					if u, err := url.Parse(a.Config.Server); err == nil {
						host = u.Hostname()
					}
				}
				links, err := a.API.Clients.Links(ctx, id, host)
				if err != nil {
					return err
				}
				return printList(a, ui.Links, links)
			})

	case "reset":
		return runWithID("clients reset", rest, nil, func(ctx context.Context, a *App, id uint) error {
			if err := a.API.Clients.ResetTraffic(ctx, id); err != nil {
				return err
			}
			say(a, "Traffic reset for client %d", id)
			return nil
		})
	}
	return unknownSubcommand("clients", sub, "list", "links", "reset")
}

// RunInbounds handles "inbounds list|clients".
func RunInbounds(args []string) error {
	sub, rest := subcommand(args, "list")
	switch sub {
	case "list":
		return runList("inbounds list", rest, ui.Inbounds, func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[api.Inbound], error) {
			return a.API.Inbounds.List(ctx, o)
		})
	case "clients":
		return runWithID("inbounds clients", rest, nil, func(ctx context.Context, a *App, id uint) error {
			clients, err := a.API.Inbounds.Clients(ctx, id)
			if err != nil {
				return err
			}
			return printList(a, ui.Clients, clients)
		})
	}
	return unknownSubcommand("inbounds", sub, "list", "clients")
}

// RunOutbounds handles "outbounds list".
func RunOutbounds(args []string) error {
	sub, rest := subcommand(args, "list")
	if sub != "list" {
		return unknownSubcommand("outbounds", sub, "list")
	}
	return runList("outbounds list", rest, ui.Outbounds, func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[api.Outbound], error) {
		return a.API.Outbounds.List(ctx, o)
	})
}

// RunCertificates handles "certificates list|renew".
func RunCertificates(args []string) error {
	sub, rest := subcommand(args, "list")
	switch sub {
	case "list":
		return runList("certificates list", rest, ui.Certificates, func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[api.Certificate], error) {
			return a.API.Certificates.List(ctx, o)
		})
	case "renew":
		return runWithID("certificates renew", rest, nil, func(ctx context.Context, a *App, id uint) error {
			if err := a.API.Certificates.Renew(ctx, id); err != nil {
				return err
			}
			say(a, "Renewal requested for certificate %d", id)
			return nil
		})
	}
	return unknownSubcommand("certificates", sub, "list", "renew")
}

// RunUsers handles "users list". The panel refuses non-admins.
func RunUsers(args []string) error {
	sub, rest := subcommand(args, "list")
	if sub != "list" {
		return unknownSubcommand("users", sub, "list")
	}
	return runList("users list", rest, ui.Users, func(ctx context.Context, a *App, o api.ListOptions) (*api.Page[api.User], error) {
		return a.API.Users.List(ctx, o)
	})
}

// RunAudit handles "audit list" with its filters.
func RunAudit(args []string) error {
	sub, rest := subcommand(args, "list")
	if sub != "list" {
		return unknownSubcommand("audit", sub, "list")
	}

	fs := flag.NewFlagSet("audit list", flag.ContinueOnError)
	opts := commonFlags(fs)
	page := pageFlags(fs)
	var (
		userID           uint
		action, resource string
	)
	fs.UintVar(&userID, "user", 0, "Only entries by this user ID")
	fs.StringVar(&action, "action", "", "Only this action, e.g. login")
	fs.StringVar(&resource, "resource", "", "Only this resource, e.g. client")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		pg, err := a.API.Audit.List(ctx, api.AuditFilter{
			ListOptions: *page, UserID: userID, Action: action, Resource: resource,
		})
		if err != nil {
			return err
		}
		return printPage(a, ui.Audit, pg)
	})
}

func dateFlags(fs *flag.FlagSet) (*string, *string) {
	from := fs.String("from", "", "First day, "+api.DateLayout)
	to := fs.String("to", "", "Last day, "+api.DateLayout)
	return from, to
}

func parseRange(from, to string) (api.DateRange, error) {
	var r api.DateRange
	var err error
	if from != "" {
		if r.Start, err = time.Parse(api.DateLayout, from); err != nil {
			return r, fmt.Errorf("-from: %w", err)
		}
	}
	if to != "" {
		if r.End, err = time.Parse(api.DateLayout, to); err != nil {
			return r, fmt.Errorf("-to: %w", err)
		}
	}
	return r, nil
}

// RunStats handles "stats summary|daily|client|inbound".
func RunStats(args []string) error {
	sub, rest := subcommand(args, "summary")
	switch sub {
	case "summary":
		fs := flag.NewFlagSet("stats summary", flag.ContinueOnError)
		opts := commonFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		return run(opts, func(ctx context.Context, a *App) error {
			if err := a.RequireSession(ctx); err != nil {
				return err
			}
			sum, err := a.API.Stats.Summary(ctx)
			if err != nil {
				return err
			}
			return printRecords(a, sum, []ui.Record{
				{Label: "Upload total", Value: ui.Bytes(sum.TotalUpload)},
				{Label: "Download total", Value: ui.Bytes(sum.TotalDownload)},
				{Label: "Clients active", Value: fmt.Sprintf("%d/%d", sum.ActiveClients, sum.TotalClients)},
			})
		})

	case "daily":
		fs := flag.NewFlagSet("stats daily", flag.ContinueOnError)
		opts := commonFlags(fs)
		days := fs.Int("days", 30, "Number of days")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		return run(opts, func(ctx context.Context, a *App) error {
			if err := a.RequireSession(ctx); err != nil {
				return err
			}
			rows, err := a.API.Stats.Daily(ctx, *days)
			if err != nil {
				return err
			}
			return printList(a, ui.Daily, rows)
		})

	case "client", "inbound":
		var from, to *string
		return runWithID("stats "+sub, rest,
			func(fs *flag.FlagSet) { from, to = dateFlags(fs) },
			func(ctx context.Context, a *App, id uint) error {
				r, err := parseRange(*from, *to)
				if err != nil {
					return err
				}
				fetch := a.API.Stats.ClientTraffic
				if sub == "inbound" {
					fetch = a.API.Stats.InboundTraffic
				}
				rows, err := fetch(ctx, id, r)
				if err != nil {
					return err
				}
				return printList(a, ui.Traffic, rows)
			})
	}
	return unknownSubcommand("stats", sub, "summary", "daily", "client", "inbound")
}

// RunSystem handles "system reload|restart|check-port|check-update|config".
func RunSystem(args []string) error {
	sub, rest := subcommand(args, "")
	fs := flag.NewFlagSet("system "+sub, flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, rest); err != nil {
		return err
	}

	var fn func(ctx context.Context, a *App) error
	switch sub {
	case "reload", "restart":
		fn = func(ctx context.Context, a *App) error {
			call, done := a.API.System.Reload, "Xray reloaded"
			if sub == "restart" {
				call, done = a.API.System.Restart, "Xray restarted"
			}
			if _, err := call(ctx); err != nil {
				return err
			}
			say(a, done)
			return nil
		}

	case "check-port":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: %s system check-port <port>", brand.BinaryName)
		}
		port, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("invalid port %q", fs.Arg(0))
		}
		if err := validation.ValidatePortNumber(port); err != nil {
			return err
		}
		fn = func(ctx context.Context, a *App) error {
			res, err := a.API.System.CheckPort(ctx, port)
			if err != nil {
				return err
			}
			return printRecords(a, res, []ui.Record{
				{Label: "Port", Value: strconv.Itoa(res.Port)},
				{Label: "TCP", Value: inUse(a, res.TCPInUse)},
				{Label: "UDP", Value: inUse(a, res.UDPInUse)},
			})
		}

	case "check-update":
		fn = func(ctx context.Context, a *App) error {
			info, err := a.API.System.CheckUpdate(ctx)
			if err != nil {
				return err
			}
			status := a.Printer.Sprintf("Up to date")
			if info.HasUpdate {
				status = a.Printer.Sprintf("Update available")
			}
			return printRecords(a, info, []ui.Record{
				{Label: "Version", Value: info.CurrentVersion},
				{Label: "Latest version", Value: info.LatestVersion + " (" + status + ")"},
				{Label: "Release", Value: info.ReleaseURL},
			})
		}

	case "config":
		fn = func(ctx context.Context, a *App) error {
			raw, err := a.API.System.Config(ctx)
			if err != nil {
				return err
			}
			var doc any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("panel returned an invalid Xray config: %w", err)
			}
			f := a.Format
			if f == FormatTable {
				f = FormatJSON
			}
			return writeData(a.Stdout, f, doc)
		}

	default:
		return unknownSubcommand("system", sub, "reload", "restart", "check-port", "check-update", "config")
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

func inUse(a *App, b bool) string {
	if b {
		return a.Printer.Sprintf("in use")
	}
	return a.Printer.Sprintf("free")
}
