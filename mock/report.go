package mock

import (
	"context"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.ReportService = (*ReportService)(nil)

// ReportService is a mock implementation of legalaudit.ReportService.
type ReportService struct {
	CreateReportFn   func(ctx context.Context, report *legalaudit.Report) error
	FindReportByIDFn func(ctx context.Context, id string) (*legalaudit.Report, error)
	FindReportsFn    func(ctx context.Context, filter legalaudit.ReportFilter) ([]*legalaudit.Report, error)
}

func (s *ReportService) CreateReport(ctx context.Context, report *legalaudit.Report) error {
	return s.CreateReportFn(ctx, report)
}

func (s *ReportService) FindReportByID(ctx context.Context, id string) (*legalaudit.Report, error) {
	return s.FindReportByIDFn(ctx, id)
}

func (s *ReportService) FindReports(ctx context.Context, filter legalaudit.ReportFilter) ([]*legalaudit.Report, error) {
	return s.FindReportsFn(ctx, filter)
}
