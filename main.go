package main

import (
	"errors"
	"flag"
	"os"

	"github.com/y-ui/yuictl/cmd"
	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/i18n"
)

var printer = i18n.NewCLIPrinter(os.Getenv(brand.ConfigEnvPrefix + "_LANG"))

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error

	switch os.Args[1] {
	// Session
	case "login":
		err = cmd.RunLogin(args)
	case "logout":
		err = cmd.RunLogout(args)
	case "whoami":
		err = cmd.RunWhoami(args)
	case "passwd":
		err = cmd.RunPasswd(args)
	case "init":
		err = cmd.RunInit(args)
	case "route":
		err = cmd.RunRoute(args)

	// Panel
	case "status":
		err = cmd.RunStatus(args)
	case "clients":
		err = cmd.RunClients(args)
	case "inbounds":
		err = cmd.RunInbounds(args)
	case "outbounds":
		err = cmd.RunOutbounds(args)
	case "certificates", "certs":
		err = cmd.RunCertificates(args)
	case "users":
		err = cmd.RunUsers(args)
	case "audit":
		err = cmd.RunAudit(args)
	case "stats":
		err = cmd.RunStats(args)
	case "system":
		err = cmd.RunSystem(args)

	case "console":
		err = cmd.RunConsole(args)

	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	exit(err)
}

func exit(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case !cmd.Reported(err):
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Session Commands:
  login     Log in to the panel
            Options: --user (-u) <name>, --password-stdin
  logout    End the session on the panel and locally
  whoami    Show the logged-in account and its capabilities
  passwd    Change the password of the logged-in account
  init      Create the first administrator on a fresh panel
  route     Show where the console would land for a path

Panel Commands:
  status         Host health and traffic totals
  clients        list | links <id> | reset <id>
  inbounds       list | clients <id>
  outbounds      list
  certificates   list | renew <id>
  users          list (admin)
  audit          list [--user <id>] [--action <a>] [--resource <r>]
  stats          summary | daily [--days N] | client <id> | inbound <id>
  system         reload | restart | check-port <port> | check-update | config

Console:
  console   Interactive console
            Options: --landing <path>, --debug-log <file>, --metrics <addr>

Common Options:
  --config (-c) <file>   Configuration file (default %s)
  --server (-s) <url>    Panel URL (env %s_SERVER)
  --output (-o) <fmt>    table, json or yaml
  --insecure             Skip TLS certificate verification
  --ephemeral            Do not persist the session token
  --verbose (-v)         Debug logging on stderr

Other:
  version   Print version
  help      Show this help
`, brand.Name, brand.Description, brand.BinaryName, brand.GetConfigPath(), brand.ConfigEnvPrefix)
}
