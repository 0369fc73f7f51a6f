package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkCreateReport compares report writes between WAL and rollback
// journal modes.
func BenchmarkCreateReport(b *testing.B) {
	b.Run("rollback_journal", func(b *testing.B) {
		benchmarkCreateReport(b, "DELETE")
	})

	b.Run("wal_mode", func(b *testing.B) {
		benchmarkCreateReport(b, "WAL")
	})
}

func benchmarkCreateReport(b *testing.B, journalMode string) {
	b.Helper()

	dbPath := filepath.Join(b.TempDir(), "bench.db")
	db := sqlite.NewDB(dbPath)
	require.NoError(b, db.Open())
	defer func() {
		db.Close()
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+journalMode)
	require.NoError(b, err)

	svc := sqlite.NewReportService(db)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		report := &legalaudit.Report{SiteURL: fmt.Sprintf("https://site%d.example.com", i)}
		for _, kind := range legalaudit.DefaultPolicyKinds() {
			report.Pages = append(report.Pages, &legalaudit.PageReport{
				Kind:     kind,
				Link:     fmt.Sprintf("https://site%d.example.com/%s", i, kind),
				Status:   200,
				Chars:    5000,
				Template: kind.Template(),
				Score:    42.0,
				Scores:   []legalaudit.LabeledScore{{Name: kind.Template(), Score: 42.0}},
			})
		}
		if err := svc.CreateReport(ctx, report); err != nil {
			b.Fatal(err)
		}
	}
}
