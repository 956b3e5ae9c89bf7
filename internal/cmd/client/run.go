// Package client implements the "techwiki client" subcommand: the
// interactive knowledge-base shell.
package client

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"techwiki/internal/config"
	"techwiki/internal/kbapi"
	"techwiki/internal/logging"
	"techwiki/internal/session"
	"techwiki/internal/tui"
	"techwiki/internal/version"
)

// DefaultLogFile receives the shell's logs; the terminal belongs to the UI.
const DefaultLogFile = "techwiki.log"

type Options struct {
	ConfigPath string
	EnvFile    string
	Addr       string
	Insecure   bool
	LogLevel   string
	LogFile    string
}

func Run(args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to techwiki.yaml")
	fs.StringVar(&opt.EnvFile, "env", ".env", "dotenv file with TECHWIKI_* overrides")
	fs.StringVar(&opt.Addr, "addr", "", "backend address (overrides config)")
	fs.BoolVar(&opt.Insecure, "insecure", false, "skip TLS verification (self-signed backends only)")
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.StringVar(&opt.LogFile, "log-file", "", "append logs to this file (default "+DefaultLogFile+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := config.Resolve(opt.ConfigPath, opt.EnvFile)
	if err != nil {
		return err
	}
	// CLI overrides config.
	if strings.TrimSpace(opt.Addr) != "" {
		c.Client.Addr = opt.Addr
	}
	if opt.Insecure {
		c.Client.Insecure = true
	}
	if strings.TrimSpace(opt.LogLevel) != "" {
		c.Log.Level = opt.LogLevel
	}
	if opt.LogFile != "" {
		c.Log.File = opt.LogFile
	}

	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
	lg, closer, err := logging.New(logging.Options{Level: c.Log.Level, JSON: c.Log.JSON, File: c.Log.File})
	if err != nil {
		return err
	}
	defer closer.Close()

	api, err := kbapi.NewClient(kbapi.ClientOptions{
		Addr:      c.Client.Addr,
		Insecure:  c.Client.Insecure,
		Timeout:   c.Client.Timeout,
		UserAgent: c.Client.UserAgent + "/" + version.Version,
	})
	if err != nil {
		return err
	}

	// The first resize event only arrives once the program runs; start from
	// the real width so the sidebar does not flash expanded.
	width := 0
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lg.Info("client starting", "addr", redactAddr(api.BaseURL()), "width", width)
	m := tui.New(tui.Options{
		Backend:    api,
		Authority:  session.New(api, lg),
		Logger:     lg,
		Addr:       redactAddr(api.BaseURL()),
		Width:      width,
		Breakpoint: c.UI.NavBreakpoint,
		Context:    ctx,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

// redactAddr keeps scheme and host only, so credentials or paths in the
// address never reach the screen.
func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	return u.Scheme + "://" + u.Host
}
