// Package devserver implements "techwiki devserver": the reference backend
// on a local sqlite file.
package devserver

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"techwiki/internal/config"
	"techwiki/internal/db"
	"techwiki/internal/devserver"
	"techwiki/internal/logging"
	"techwiki/internal/version"
)

type Options struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	LogJSON      bool
	DBPath       string
	BindAddr     string
	Port         int
	LoginLimit   int
	SecureCookie bool
}

func Run(args []string) error {
	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	var opt Options
	var showVersion bool
	fs.StringVar(&opt.ConfigPath, "config", "", "path to techwiki.yaml")
	fs.StringVar(&opt.EnvFile, "env", ".env", "dotenv file with TECHWIKI_* overrides")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.BoolVar(&opt.LogJSON, "log-json", false, "log as JSON")
	fs.StringVar(&opt.DBPath, "db", "", "sqlite database path (overrides config)")
	fs.StringVar(&opt.BindAddr, "bind", "", "bind address (overrides config)")
	fs.IntVar(&opt.Port, "port", 0, "listen port (overrides config)")
	fs.IntVar(&opt.LoginLimit, "login-limit", 10, "login attempts per IP per minute, 0 disables")
	fs.BoolVar(&opt.SecureCookie, "secure-cookie", false, "mark the session cookie Secure (behind TLS)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("techwiki devserver %s\n", version.Version)
		return nil
	}

	c, err := config.Resolve(opt.ConfigPath, opt.EnvFile)
	if err != nil {
		return err
	}
	dbPath := c.Server.DBPath
	if opt.ConfigPath != "" {
		dbPath = resolvePath(filepath.Dir(opt.ConfigPath), dbPath)
	}
	// CLI overrides config.
	if strings.TrimSpace(opt.DBPath) != "" {
		dbPath = opt.DBPath
	}
	if strings.TrimSpace(opt.BindAddr) != "" {
		c.Server.Bind = opt.BindAddr
	}
	if opt.Port != 0 {
		c.Server.Port = opt.Port
	}
	if strings.TrimSpace(opt.LogLevel) != "" {
		c.Log.Level = opt.LogLevel
	}

	lg, closer, err := logging.New(logging.Options{
		Level:       c.Log.Level,
		JSON:        c.Log.JSON || opt.LogJSON,
		File:        c.Log.File,
		DefaultSlog: true,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer d.Close()

	lg.Info("devserver starting", "version", version.Version, "db", dbPath)
	s := &devserver.Server{
		DB:             d,
		Logger:         lg,
		BindAddr:       c.Server.Bind,
		Port:           c.Server.Port,
		MaxUploadBytes: int64(c.Server.MaxUploadMB) << 20,
		LoginLimit:     opt.LoginLimit,
		SecureCookie:   opt.SecureCookie,
	}
	return s.ListenAndServe(ctx)
}

// resolvePath makes p relative to the config file's directory.
func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
