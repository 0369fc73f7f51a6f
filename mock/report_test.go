package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_CreateReport(t *testing.T) {
	t.Parallel()

	t.Run("delegates to CreateReportFn", func(t *testing.T) {
		t.Parallel()

		var calledWith *legalaudit.Report
		s := &mock.ReportService{
			CreateReportFn: func(_ context.Context, r *legalaudit.Report) error {
				calledWith = r
				return nil
			},
		}

		report := &legalaudit.Report{
			SiteURL: "https://example.com",
			Pages: []*legalaudit.PageReport{
				{Kind: legalaudit.PolicyPrivacy, Link: "https://example.com/privacy", Template: "PP.pdf"},
			},
		}

		err := s.CreateReport(context.Background(), report)

		require.NoError(t, err)
		assert.Equal(t, report, calledWith)
	})
}
