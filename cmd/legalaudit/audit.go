package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/audit"
)

// Run executes the audit command.
func (c *AuditCmd) Run(deps *Dependencies) error {
	kinds, err := audit.ParseKinds(c.Kinds)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", legalaudit.ErrorMessage(err))
		return err
	}

	report, err := deps.Auditor.AuditSite(deps.Ctx, c.URL, kinds, legalaudit.LinkOptions{SameHostOnly: c.SameHostOnly})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", legalaudit.ErrorMessage(err))
		return err
	}

	if c.JSON {
		return writeJSON(deps, report)
	}
	printReport(deps, report)
	return nil
}

func printReport(deps *Dependencies, r *legalaudit.Report) {
	fmt.Fprintf(deps.Stdout, "Report %s for %s\n", r.ID, r.SiteURL)
	if r.ConsentPlatform != legalaudit.ConsentUnknown {
		fmt.Fprintf(deps.Stdout, "Consent platform: %s\n", r.ConsentPlatform)
	}

	rows := make([][]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		link := p.Link
		if p.FinalURL != "" {
			link = p.FinalURL
		}
		rows = append(rows, []string{
			string(p.Kind),
			link,
			p.Template,
			formatScore(p),
			p.BestLabel,
			p.Error,
		})
	}
	writeTable(deps.Stdout, []string{"Kind", "URL", "Template", "Score", "Best", "Error"}, rows, 3)
}

func formatScore(p *legalaudit.PageReport) string {
	if p.Error != "" {
		return "-"
	}
	return strconv.FormatFloat(p.Score, 'f', 1, 64)
}

func writeJSON(deps *Dependencies, v any) error {
	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
