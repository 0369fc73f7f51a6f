package legalaudit

import (
	"context"
	"time"
)

// PageReport is the audit outcome for one policy kind.
type PageReport struct {
	Kind PolicyKind `json:"kind"`
	// Link is the candidate URL found on the site, empty when none was found.
	Link      string         `json:"link,omitempty"`
	FinalURL  string         `json:"final_url,omitempty"`
	Status    int            `json:"status,omitempty"`
	Chars     int            `json:"chars"`
	Template  string         `json:"template"`
	Score     float64        `json:"score"`
	Scores    []LabeledScore `json:"scores,omitempty"`
	BestLabel string         `json:"best_label,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Report is a stored site audit.
type Report struct {
	ID      string `json:"id"`
	SiteURL string `json:"site_url"`
	// ConsentPlatform is the cookie consent platform embedded in the home page.
	ConsentPlatform ConsentPlatform `json:"consent_platform,omitempty"`
	Pages           []*PageReport   `json:"pages"`
	// ContentHash fingerprints the audited page texts so that policy changes
	// show up between audits of the same site.
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate returns an error if the report contains invalid fields.
func (r *Report) Validate() error {
	if r.SiteURL == "" {
		return Errorf(EINVALID, "report site URL required")
	}
	return nil
}

// ReportFilter represents a filter for FindReports.
type ReportFilter struct {
	SiteURL *string `json:"site_url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ReportService persists site audits.
type ReportService interface {
	// CreateReport stores a report, assigning ID and CreatedAt.
	CreateReport(ctx context.Context, report *Report) error

	// FindReportByID returns ENOTFOUND if the report does not exist.
	FindReportByID(ctx context.Context, id string) (*Report, error)

	// FindReports returns reports newest first.
	FindReports(ctx context.Context, filter ReportFilter) ([]*Report, error)
}
