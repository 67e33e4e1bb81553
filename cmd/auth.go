package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/y-ui/yuictl/internal/session"
	"github.com/y-ui/yuictl/internal/tui"
	"github.com/y-ui/yuictl/internal/ui"
	"github.com/y-ui/yuictl/internal/validation"
)

// Stdin is where passwords are read from with -password-stdin.
var Stdin io.Reader = os.Stdin

// interactive reports whether prompts can be shown.
var interactive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

type loginPrompt struct {
	Account  string `tui:"title=Username,desc=Username or email,validate=account"`
	Password string `tui:"title=Password,type=password,validate=required"`
}

type passwdPrompt struct {
	Current string `tui:"title=Current password,type=password,validate=required"`
	New     string `tui:"title=New password,type=password,validate=password"`
	Confirm string `tui:"title=Confirm password,type=password,validate=required"`
}

type initPrompt struct {
	Account  string `tui:"title=Username,validate=account"`
	Password string `tui:"title=New password,type=password,validate=password"`
	Confirm  string `tui:"title=Confirm password,type=password,validate=required"`
}

// prompt fills v with a huh form, or fails when stdin is not a terminal.
func prompt(a *App, v any) error {
	if !interactive() {
		return errors.New("stdin is not a terminal; pass credentials with flags and -password-stdin")
	}
	return tui.AutoForm(v, a.Printer).Run()
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// RunLogin authenticates and persists the session token.
func RunLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	opts := commonFlags(fs)

	var (
		account       string
		passwordStdin bool
	)
	fs.StringVar(&account, "user", "", "Username or email")
	fs.StringVar(&account, "u", "", "Username or email (short)")
	fs.BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		in := loginPrompt{Account: account}
		if passwordStdin {
			pw, err := readPassword(Stdin)
			if err != nil {
				return err
			}
			in.Password = pw
		}
		if in.Account == "" || in.Password == "" {
			if err := prompt(a, &in); err != nil {
				return err
			}
		}

		if err := validation.ValidateAccount(in.Account); err != nil {
			return err
		}
		snap, err := a.Session.Login(ctx, in.Account, in.Password)
		if err != nil {
			return err
		}
		if snap.Identity == nil {
			if err := a.Session.FetchProfile(ctx); err != nil {
				return err
			}
			snap = a.Session.Snapshot()
		}
		if a.Format != FormatTable {
			return writeData(a.Stdout, a.Format, newWhoami(snap, time.Now()))
		}
		say(a, "Logged in as %s (%s)", snap.Identity.Name(), snap.Role())
		return nil
	})
}

// RunLogout ends the session on the panel and locally.
func RunLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if !a.Session.Snapshot().IsAuthenticated() {
			say(a, "Not logged in")
			return nil
		}
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
		say(a, "Logged out")
		return nil
	})
}

type whoami struct {
	ID           uint                 `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email,omitempty"`
	Nickname     string               `json:"nickname,omitempty"`
	Role         session.Role         `json:"role"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	Expired      bool                 `json:"expired"`
	Capabilities []session.Capability `json:"capabilities"`
}

func newWhoami(snap session.Snapshot, now time.Time) whoami {
	w := whoami{Role: snap.Role(), Expired: snap.Expired(now), Capabilities: snap.Role().Capabilities()}
	if id := snap.Identity; id != nil {
		w.ID, w.Username, w.Email, w.Nickname = id.ID, id.Username, id.Email, id.Nickname
	}
	if !snap.ExpiresAt.IsZero() {
		t := snap.ExpiresAt
		w.ExpiresAt = &t
	}
	if w.Capabilities == nil {
		w.Capabilities = []session.Capability{}
	}
	return w
}

// RunWhoami validates the stored session and prints the identity.
func RunWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		now := time.Now()
		w := newWhoami(a.Session.Snapshot(), now)

		caps := make([]string, len(w.Capabilities))
		for i, c := range w.Capabilities {
			caps[i] = string(c)
		}
		expires := ui.Expiry(w.ExpiresAt, now, a.Printer)
		if w.Expired {
			expires += " (" + a.Printer.Sprintf("expired") + ")"
		}
		records := []ui.Record{
			{Label: "Username", Value: w.Username},
			{Label: "Email", Value: w.Email},
			{Label: "Role", Value: w.Role.String()},
			{Label: "Expires", Value: expires},
			{Label: "Capabilities", Value: strings.Join(caps, ", ")},
		}
		return printRecords(a, w, records)
	})
}

// RunPasswd changes the password of the logged-in account.
func RunPasswd(args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	opts := commonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		var in passwdPrompt
		if err := prompt(a, &in); err != nil {
			return err
		}
		if in.New != in.Confirm {
			return errors.New(a.Printer.Sprintf("Passwords do not match"))
		}
		account := ""
		if id := a.Session.Snapshot().Identity; id != nil {
			account = id.Username
		}
		if err := session.CheckPassword(in.New, account); err != nil {
			return err
		}
		if err := a.Session.ChangePassword(ctx, in.Current, in.New); err != nil {
			return err
		}
		say(a, "Password changed")
		return nil
	})
}

// RunInit creates the first administrator on a fresh panel.
func RunInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	opts := commonFlags(fs)

	var (
		account       string
		passwordStdin bool
	)
	fs.StringVar(&account, "user", "", "Administrator username")
	fs.StringVar(&account, "u", "", "Administrator username (short)")
	fs.BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return run(opts, func(ctx context.Context, a *App) error {
		ok, err := a.Session.CheckInitialized(ctx)
		if err != nil {
			return err
		}
		if ok {
			say(a, "Panel is already initialized")
			return nil
		}

		in := initPrompt{Account: account}
		if passwordStdin {
			if in.Password, err = readPassword(Stdin); err != nil {
				return err
			}
			in.Confirm = in.Password
		}
		if in.Account == "" || in.Password == "" {
			if err := prompt(a, &in); err != nil {
				return err
			}
		}
		if in.Password != in.Confirm {
			return errors.New(a.Printer.Sprintf("Passwords do not match"))
		}
		if err := validation.ValidateAccount(in.Account); err != nil {
			return err
		}
		if err := session.CheckPassword(in.Password, in.Account); err != nil {
			return err
		}

		if err := a.Session.InitAdmin(ctx, in.Account, in.Password); err != nil {
			return err
		}
		say(a, "Panel initialized, log in as %s", in.Account)
		return nil
	})
}
