package all

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dwetl/internal/ddl"
	"dwetl/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	want := []string{"dremio", "mssql", "mysql", "postgres", "silver", "sqlite"}
	if diff := cmp.Diff(want, storage.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	for _, k := range want {
		if k == "silver" {
			continue
		}
		if _, err := ddl.Lookup(k); err != nil {
			t.Errorf("no dialect for %s: %v", k, err)
		}
	}
	if err := ddl.CheckAll(); err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
}
