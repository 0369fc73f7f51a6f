package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/audit"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Manifest  *legalaudit.Manifest
	Auditor   *audit.Auditor
	Templates legalaudit.TemplateService
	Reports   legalaudit.ReportService

	// Closers are released when the serve command shuts down.
	Closers []io.Closer
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	DB           string  `name:"db" env:"LEGALAUDIT_DB" default:"${default_db}" help:"SQLite database path"`
	ManifestPath string  `name:"manifest" env:"LEGALAUDIT_MANIFEST" help:"Manifest path (built-in manifest when unset)"`
	TemplatesDir string  `name:"templates-dir" env:"LEGALAUDIT_TEMPLATES" default:"${default_templates}" help:"Directory holding PP.pdf, TOS.pdf and CS.pdf"`
	Browser      bool    `help:"Fetch pages with headless Chrome"`
	Extractor    string  `default:"goquery" enum:"goquery,trafilatura,readability" help:"Text extractor (goquery, trafilatura, readability)"`
	UserAgent    string  `name:"user-agent" help:"User-Agent sent with requests"`
	RPS          float64 `name:"rps" default:"2" help:"Requests per second per host"`

	Serve     ServeCmd     `cmd:"" help:"Serve JSON-RPC tools on stdin/stdout"`
	Audit     AuditCmd     `cmd:"" help:"Audit the legal pages of a site"`
	Templates TemplatesCmd `cmd:"" help:"Show reference templates"`
	Reports   ReportsCmd   `cmd:"" help:"Show stored audit reports"`
	Manifest  ManifestCmd  `cmd:"" help:"Validate the manifest and list its tools"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	MaxBodySize int `name:"max-body-size" help:"Largest Content-Length accepted from the peer in bytes (0 means unbounded)"`
}

// AuditCmd is the "audit" subcommand.
type AuditCmd struct {
	URL          string   `arg:"" help:"Site URL"`
	Kinds        []string `short:"k" help:"Policy kinds to audit (privacy, terms, cookies)"`
	SameHostOnly bool     `name:"same-host-only" help:"Ignore candidate links on other hosts"`
	JSON         bool     `name:"json" help:"Print the report as JSON"`
}

// TemplatesCmd is the "templates" subcommand.
type TemplatesCmd struct {
	Names []string `arg:"" optional:"" help:"Template file names"`
}

// ReportsCmd is the "reports" subcommand.
type ReportsCmd struct {
	ID      string `arg:"" optional:"" help:"Report ID to show"`
	SiteURL string `name:"site-url" help:"Only show reports for this site"`
	Limit   int    `default:"20" help:"Maximum reports to list"`
	JSON    bool   `name:"json" help:"Print as JSON"`
}

// ManifestCmd is the "manifest" subcommand.
type ManifestCmd struct{}
