package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fwojciec/legalaudit"
)

// Run executes the reports command. With an ID it shows that report,
// otherwise it lists reports newest first.
func (c *ReportsCmd) Run(deps *Dependencies) error {
	if c.ID != "" {
		report, err := deps.Reports.FindReportByID(deps.Ctx, c.ID)
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

	filter := legalaudit.ReportFilter{Limit: c.Limit}
	if c.SiteURL != "" {
		filter.SiteURL = &c.SiteURL
	}
	reports, err := deps.Reports.FindReports(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", legalaudit.ErrorMessage(err))
		return err
	}

	if c.JSON {
		return writeJSON(deps, reports)
	}
	if len(reports) == 0 {
		fmt.Fprintln(deps.Stdout, "No reports found. Use 'legalaudit audit' to create one.")
		return nil
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.ID,
			r.SiteURL,
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(len(r.Pages)),
			r.ContentHash,
		}
	}
	writeTable(deps.Stdout, []string{"ID", "Site", "Created", "Pages", "Hash"}, rows, 3)
	return nil
}
