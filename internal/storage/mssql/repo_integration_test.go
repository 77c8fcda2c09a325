//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
	msddl "dwetl/internal/storage/mssql/ddl"
)

// getTestDSN reads the DWETL_TEST_MSSQL_DSN environment variable.
// If it is empty, the test is skipped.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("DWETL_TEST_MSSQL_DSN")
	if dsn == "" {
		t.Skip("DWETL_TEST_MSSQL_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestPublishIntegration creates a table through the guarded DDL twice and
// bulk copies a small dataset into it.
func TestPublishIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewRepository(ctx, dsn)
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	dest := storage.NewTable("mssql", msddl.Dialect, repo, convert, storage.Config{BatchSize: 2})
	defer dest.Close()
	defer repo.Exec(context.Background(), "IF OBJECT_ID(N'dbo.dwetl_it_people', N'U') IS NOT NULL DROP TABLE dbo.dwetl_it_people")

	ds := dataset.MustNew(
		dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2), int64(3)}},
		dataset.Column{Name: "name", Type: dataset.TypeText, Values: []any{"alice", nil, "carol"}},
		dataset.Column{Name: "wait", Type: dataset.TypeInterval, Values: []any{time.Second, nil, nil}},
	)
	for i := 0; i < 2; i++ {
		plan, err := dest.Plan(ctx, storage.Target{Table: "dbo.dwetl_it_people"}, ds)
		if err != nil {
			t.Fatalf("Plan() error = %v", err)
		}
		n, err := plan.Publish(ctx)
		if err != nil {
			t.Fatalf("Publish() #%d error = %v", i, err)
		}
		if n != 3 {
			t.Fatalf("Publish() #%d inserted = %d, want 3", i, n)
		}
	}
}
