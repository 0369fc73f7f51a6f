package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/audit"
	"github.com/fwojciec/legalaudit/gojsonschema"
	"github.com/fwojciec/legalaudit/goquery"
	"github.com/fwojciec/legalaudit/htmltomarkdown"
	lahttp "github.com/fwojciec/legalaudit/http"
	"github.com/fwojciec/legalaudit/match"
	"github.com/fwojciec/legalaudit/pdf"
	"github.com/fwojciec/legalaudit/readability"
	"github.com/fwojciec/legalaudit/rod"
	laslog "github.com/fwojciec/legalaudit/slog"
	"github.com/fwojciec/legalaudit/sqlite"
	"github.com/fwojciec/legalaudit/trafilatura"
)

//go:embed manifest.json
var defaultManifest []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Fetcher is closed with the program when it holds resources.
	Fetcher io.Closer
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Fetcher != nil {
		_ = m.Fetcher.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("legalaudit"),
		kong.Description("Audit the legal pages a website publishes against reference templates."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Vars{
			"default_db":        defaultDBPath(),
			"default_templates": defaultTemplatesDir(),
		},
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'legalaudit --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	deps.Logger = newLogger(stderr, cli.LogLevel, cli.LogFormat)

	deps.Manifest, err = loadManifest(cli.ManifestPath)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Set LEGALAUDIT_MANIFEST to use a different manifest")
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if cmd == "manifest" {
		return kongCtx.Run(deps)
	}

	m.DB = sqlite.NewDB(cli.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set LEGALAUDIT_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
	}
	defer m.Close()

	reader := pdf.NewReader(
		pdf.WithTextCache(sqlite.NewTextCache(m.DB)),
		pdf.WithLogger(deps.Logger),
	)
	deps.Templates = laslog.NewLoggingTemplateService(match.NewTemplateService(cli.TemplatesDir, reader), deps.Logger)
	deps.Reports = sqlite.NewReportService(m.DB)

	if cmd == "serve" || cmd == "audit" {
		fetcher, err := m.newFetcher(cli, deps.Manifest.Limits)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed to use --browser")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		deps.Closers = []io.Closer{fetcher, m.DB}

		sitemapOpts := []lahttp.SitemapOption{}
		if cli.UserAgent != "" {
			sitemapOpts = append(sitemapOpts, lahttp.WithSitemapUserAgent(cli.UserAgent))
		}

		deps.Auditor = &audit.Auditor{
			Fetcher:     laslog.NewLoggingFetcher(fetcher, deps.Logger),
			Extractor:   newExtractor(cli.Extractor),
			Converter:   htmltomarkdown.NewConverter(),
			Links:       goquery.NewLinkFinder(),
			Sitemaps:    laslog.NewLoggingSitemapService(lahttp.NewSitemapService(nil, sitemapOpts...), deps.Logger),
			Consent:     goquery.NewDetector(),
			Templates:   deps.Templates,
			Matcher:     match.NewMatcher(0),
			Reports:     deps.Reports,
			RateLimiter: audit.NewDomainLimiter(cli.RPS, 1),
			Logger:      deps.Logger,
		}
	}

	return kongCtx.Run(deps)
}

func (m *Main) newFetcher(cli *CLI, limits legalaudit.ManifestLimits) (legalaudit.Fetcher, error) {
	if cli.Browser {
		opts := []rod.Option{rod.WithMaxBytes(limits.MaxHTMLSizeBytes)}
		if cli.UserAgent != "" {
			opts = append(opts, rod.WithUserAgent(cli.UserAgent))
		}
		f, err := rod.NewFetcher(opts...)
		if err != nil {
			return nil, err
		}
		m.Fetcher = f
		return f, nil
	}

	opts := []lahttp.Option{lahttp.WithMaxBytes(int64(limits.MaxHTMLSizeBytes))}
	if cli.UserAgent != "" {
		opts = append(opts, lahttp.WithUserAgent(cli.UserAgent))
	}
	f := lahttp.NewFetcher(opts...)
	m.Fetcher = f
	return f, nil
}

func newExtractor(name string) legalaudit.TextExtractor {
	switch name {
	case "trafilatura":
		return trafilatura.NewExtractor(0)
	case "readability":
		return readability.NewExtractor(0)
	}
	return goquery.NewTextExtractor()
}

// loadManifest reads the manifest at path, or the built-in one when path is
// empty.
func loadManifest(path string) (*legalaudit.Manifest, error) {
	if path != "" {
		return gojsonschema.LoadManifest(path)
	}
	return gojsonschema.ParseManifest(defaultManifest, ".")
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "legalaudit.db"
	}
	return filepath.Join(home, ".legalaudit", "legalaudit.db")
}

func defaultTemplatesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "templates"
	}
	return filepath.Join(home, ".legalaudit", "templates")
}
