// Package submit implements "techwiki submit": sign in and post one article
// without the interactive shell.
package submit

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"techwiki/internal/access"
	"techwiki/internal/config"
	"techwiki/internal/intake"
	"techwiki/internal/kbapi"
	"techwiki/internal/logging"
	"techwiki/internal/session"
	"techwiki/internal/version"
)

// EnvPassword supplies the password when stdin is not a terminal.
const EnvPassword = "TECHWIKI_PASSWORD"

type files []string

func (f *files) String() string     { return strings.Join(*f, ",") }
func (f *files) Set(v string) error { *f = append(*f, v); return nil }

type Options struct {
	ConfigPath string
	EnvFile    string
	Addr       string
	Username   string
	LogLevel   string

	Title       string
	Description string
	DescFile    string
	Category    string
	Tags        string
	Video       string
	Files       files
}

func Run(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to techwiki.yaml")
	fs.StringVar(&opt.EnvFile, "env", ".env", "dotenv file with TECHWIKI_* overrides")
	fs.StringVar(&opt.Addr, "addr", "", "backend address (overrides config)")
	fs.StringVar(&opt.Username, "user", "", "account to sign in with")
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.StringVar(&opt.Title, "title", "", "article title")
	fs.StringVar(&opt.Description, "description", "", "article body")
	fs.StringVar(&opt.DescFile, "description-file", "", "read the article body from this file")
	fs.StringVar(&opt.Category, "category", "", "category; a new one is created when unknown")
	fs.StringVar(&opt.Tags, "tags", "", "comma separated tags")
	fs.StringVar(&opt.Video, "video", "", "video link")
	fs.Var(&opt.Files, "file", "attachment path (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(opt.Username) == "" {
		return errors.New("-user is required")
	}

	c, err := config.Resolve(opt.ConfigPath, opt.EnvFile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opt.Addr) != "" {
		c.Client.Addr = opt.Addr
	}
	if strings.TrimSpace(opt.LogLevel) != "" {
		c.Log.Level = opt.LogLevel
	}
	lg, closer, err := logging.New(logging.Options{Level: c.Log.Level, JSON: c.Log.JSON, File: c.Log.File})
	if err != nil {
		return err
	}
	defer closer.Close()

	if opt.DescFile != "" {
		b, err := os.ReadFile(opt.DescFile)
		if err != nil {
			return err
		}
		opt.Description = string(b)
	}

	api, err := kbapi.NewClient(kbapi.ClientOptions{
		Addr:      c.Client.Addr,
		Insecure:  c.Client.Insecure,
		Timeout:   c.Client.Timeout,
		UserAgent: c.Client.UserAgent + "/" + version.Version,
	})
	if err != nil {
		return err
	}

	d, err := buildDraft(context.Background(), api, opt)
	if err != nil {
		return err
	}
	payload, err := intake.BuildPayload(d)
	if err != nil {
		return err
	}
	lg.Info("article ready", "title", d.Title, "category", d.EffectiveCategory(), "attachments", payload.AttachmentNames())

	pw, err := readPassword("Password for " + opt.Username)
	if err != nil {
		return err
	}

	ctx := context.Background()
	auth := session.New(api, lg)
	out, err := auth.SubmitCredentials(ctx, session.ModeLogin, opt.Username, pw)
	if err != nil {
		return err
	}
	if !out.Session.CanAccess(access.RouteCreateProblem) {
		_ = auth.Logout(ctx)
		return fmt.Errorf("%s may not create articles", opt.Username)
	}
	defer func() { _ = auth.Logout(ctx) }()

	for _, id := range d.VideoPreviews() {
		lg.Debug("video detected", "id", id)
	}
	p, err := intake.Submit(ctx, api, d)
	if err != nil {
		return err
	}
	fmt.Printf("created problem #%d %q in %s\n", p.ID, p.Title, p.Category)
	return nil
}

// buildDraft maps a category the backend does not know yet onto the
// new-category entry, as the interactive selector would. The draft is
// validated before the backend is asked for its categories.
func buildDraft(ctx context.Context, api *kbapi.Client, opt Options) (intake.Draft, error) {
	d := intake.Draft{
		Title:       opt.Title,
		Description: opt.Description,
		Category:    opt.Category,
		Tags:        opt.Tags,
		VideoLink:   opt.Video,
	}
	for _, f := range opt.Files {
		if !intake.Accepted(f) {
			return d, fmt.Errorf("%s: only %s are accepted", f, strings.Join(intake.AcceptExtensions, " "))
		}
		d.Attachments = append(d.Attachments, intake.OSAttachment(f))
	}

	if err := intake.Validate(d); err != nil {
		return d, err
	}

	known, err := api.ListCategories(ctx)
	if err != nil {
		return d, session.Classify(err)
	}
	if !slices.Contains(known, opt.Category) {
		d.Category, d.NewCategory = intake.NewCategory, opt.Category
	}
	return d, nil
}

func readPassword(label string) (string, error) {
	if v := os.Getenv(EnvPassword); v != "" {
		return v, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
