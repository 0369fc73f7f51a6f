package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/legalaudit"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ legalaudit.ReportService = (*ReportService)(nil)

// ReportService implements legalaudit.ReportService using SQLite.
type ReportService struct {
	db *DB
}

// NewReportService creates a new ReportService.
func NewReportService(db *DB) *ReportService {
	return &ReportService{db: db}
}

// CreateReport stores a report and its pages in one transaction.
func (s *ReportService) CreateReport(ctx context.Context, report *legalaudit.Report) error {
	if err := report.Validate(); err != nil {
		return err
	}

	report.ID = uuid.New().String()
	report.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reports (id, site_url, consent_platform, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, report.ID, report.SiteURL, string(report.ConsentPlatform), report.ContentHash, formatTime(report.CreatedAt)); err != nil {
		return err
	}

	for i, p := range report.Pages {
		scores, err := json.Marshal(p.Scores)
		if err != nil {
			return fmt.Errorf("encoding scores: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO report_pages (report_id, position, kind, link, final_url, status, chars, template, score, scores, best_label, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.ID, i, string(p.Kind), p.Link, p.FinalURL, p.Status, p.Chars, p.Template, p.Score,
			string(scores), p.BestLabel, p.Error); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindReportByID retrieves a report with its pages.
func (s *ReportService) FindReportByID(ctx context.Context, id string) (*legalaudit.Report, error) {
	report, err := scanReport(s.db.QueryRowContext(ctx, `
		SELECT id, site_url, consent_platform, content_hash, created_at
		FROM reports
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, legalaudit.Errorf(legalaudit.ENOTFOUND, "report not found")
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachPages(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// FindReports retrieves reports matching the filter, newest first.
func (s *ReportService) FindReports(ctx context.Context, filter legalaudit.ReportFilter) ([]*legalaudit.Report, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, site_url, consent_platform, content_hash, created_at FROM reports WHERE 1=1")

	if filter.SiteURL != nil {
		query.WriteString(" AND site_url = ?")
		args = append(args, *filter.SiteURL)
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}

	var reports []*legalaudit.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the single connection before loading pages.
	rows.Close()

	for _, r := range reports {
		if err := s.attachPages(ctx, r); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (s *ReportService) attachPages(ctx context.Context, report *legalaudit.Report) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, link, final_url, status, chars, template, score, scores, best_label, error
		FROM report_pages
		WHERE report_id = ?
		ORDER BY position ASC
	`, report.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	report.Pages = []*legalaudit.PageReport{}
	for rows.Next() {
		var p legalaudit.PageReport
		var kind, scores string
		if err := rows.Scan(&kind, &p.Link, &p.FinalURL, &p.Status, &p.Chars, &p.Template,
			&p.Score, &scores, &p.BestLabel, &p.Error); err != nil {
			return err
		}
		p.Kind = legalaudit.PolicyKind(kind)
		if err := json.Unmarshal([]byte(scores), &p.Scores); err != nil {
			return fmt.Errorf("failed to parse scores: %w", err)
		}
		report.Pages = append(report.Pages, &p)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*legalaudit.Report, error) {
	var r legalaudit.Report
	var consent, createdAt string
	if err := row.Scan(&r.ID, &r.SiteURL, &consent, &r.ContentHash, &createdAt); err != nil {
		return nil, err
	}
	r.ConsentPlatform = legalaudit.ConsentPlatform(consent)

	var err error
	r.CreatedAt, err = parseTime(createdAt, "created_at")
	if err != nil {
		return nil, err
	}
	return &r, nil
}
