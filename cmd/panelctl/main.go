// panelctl is a small CLI for talking to a running panel API through
// the client session store. The session survives between invocations
// via a state file under the user config directory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"opspanel.org/internal/session"
)

const usage = `usage: panelctl [-server URL] <command>

commands:
  login [-remember] <email>   sign in (password read from terminal)
  me                          show the current session
  logout                      sign out and clear the local session
`

func main() {
	server := flag.String("server", envOr("PANEL_SERVER", "http://localhost:8080"), "panel API origin")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	mgr, err := session.New(*server, session.WithStateFile(statePath()))
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "login":
		runLogin(ctx, mgr, flag.Args()[1:])
	case "me":
		runMe(ctx, mgr)
	case "logout":
		if err := mgr.Logout(ctx); err != nil {
			// Local state is already cleared; the server call is best effort.
			fmt.Fprintf(os.Stderr, "warning: logout request failed: %v\n", err)
		}
		fmt.Println("signed out")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func runLogin(ctx context.Context, mgr *session.Manager, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	remember := fs.Bool("remember", false, "keep the session for 30 days")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: panelctl login [-remember] <email>")
		os.Exit(2)
	}
	email := fs.Arg(0)

	password, err := readPassword()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}

	if err := mgr.Login(ctx, email, password, *remember); err != nil {
		log.Fatalf("login: %v", err)
	}
	st := mgr.Snapshot()
	fmt.Printf("signed in as %s (%s)\n", st.User.Email, st.User.Role)
}

func runMe(ctx context.Context, mgr *session.Manager) {
	st := mgr.Snapshot()
	if !st.Authenticated {
		fmt.Println("not signed in")
		os.Exit(1)
	}
	if err := mgr.Verify(ctx); err != nil {
		log.Fatalf("verify: %v", err)
	}
	st = mgr.Snapshot()
	if !st.Authenticated {
		fmt.Println("session expired; sign in again")
		os.Exit(1)
	}

	fmt.Printf("user:  %s <%s>\n", st.User.Name, st.User.Email)
	fmt.Printf("role:  %s\n", st.User.Role)
	perms := make([]string, len(st.Permissions))
	for i, p := range st.Permissions {
		perms[i] = string(p)
	}
	fmt.Printf("perms: %s\n", strings.Join(perms, ", "))
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "password: ")
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		return string(raw), err
	}
	// Piped input, e.g. in scripts.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func statePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".panelctl-session.json"
	}
	dir = filepath.Join(dir, "panelctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ".panelctl-session.json"
	}
	return filepath.Join(dir, "session.json")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
