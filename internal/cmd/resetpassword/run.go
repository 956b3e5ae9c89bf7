// Package resetpassword implements "techwiki reset-password". It rewrites a
// devserver account's password directly in the sqlite file, so it works
// while the server is down.
package resetpassword

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"techwiki/internal/auth"
	"techwiki/internal/db"
	"techwiki/internal/validate"
)

// EnvPassword is read when -password-env is given.
const EnvPassword = "TECHWIKI_NEW_PASSWORD"

// Options captures CLI flags. Password and PasswordEnv are mutually
// exclusive.
type Options struct {
	DBPath      string
	Username    string
	Password    string
	PasswordEnv bool
}

func Run(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.DBPath, "db", "./data/techwiki.db", "sqlite database path")
	fs.StringVar(&opt.Username, "user", "admin", "account to reset")
	fs.StringVar(&opt.Password, "password", "", "set the password non-interactively")
	fs.BoolVar(&opt.PasswordEnv, "password-env", false, "read the password from "+EnvPassword)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return Reset(context.Background(), opt)
}

// Reset performs the reset described by opt.
func Reset(ctx context.Context, opt Options) error {
	if err := validate.Username(opt.Username); err != nil {
		return err
	}
	if _, err := os.Stat(opt.DBPath); err != nil {
		return fmt.Errorf("database not found: %w", err)
	}
	pass, err := resolvePassword("New password for "+opt.Username, opt)
	if err != nil {
		return err
	}
	if err := validate.Password(pass); err != nil {
		return err
	}

	d, err := db.Open(ctx, opt.DBPath)
	if err != nil {
		return err
	}
	defer d.Close()

	h, err := auth.Hash(pass, auth.DefaultParams())
	if err != nil {
		return err
	}
	ok, err := d.ResetPassword(ctx, opt.Username, h)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no such user: %s", opt.Username)
	}
	fmt.Fprintf(os.Stderr, "password reset for %s; existing sessions ended\n", opt.Username)
	return nil
}

func resolvePassword(label string, opt Options) (string, error) {
	if opt.Password != "" && opt.PasswordEnv {
		return "", errors.New("choose one of -password or -password-env")
	}
	if opt.PasswordEnv {
		v := strings.TrimSpace(os.Getenv(EnvPassword))
		if v == "" {
			return "", errors.New(EnvPassword + " is empty")
		}
		return v, nil
	}
	if opt.Password != "" {
		return strings.TrimSpace(opt.Password), nil
	}
	return promptPassword(label)
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	for {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		p1, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		fmt.Fprint(os.Stderr, "Confirm password: ")
		p2, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		a, b := strings.TrimSpace(string(p1)), strings.TrimSpace(string(p2))
		if a == "" {
			fmt.Fprintln(os.Stderr, "password cannot be empty")
			continue
		}
		if a != b {
			fmt.Fprintln(os.Stderr, "passwords do not match")
			continue
		}
		return a, nil
	}
}
