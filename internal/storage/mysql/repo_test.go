package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"dwetl/internal/dataset"
	"dwetl/internal/storage"
)

// --- Test driver plumbing for exercising Exec and CopyFrom without a real DB --

// recorder collects the statements one fake connection executes.
type recorder struct {
	mu        sync.Mutex
	queries   []string
	args      [][]driver.NamedValue
	commits   int
	rollbacks int
	failOn    string
}

type recDriver struct{}

type recConn struct{ rec *recorder }

type recTx struct{ rec *recorder }

var (
	recMu         sync.Mutex
	recorders     = map[string]*recorder{}
	recOnce       sync.Once
	recDriverName = "mysql_test_rec"
)

func (recDriver) Open(name string) (driver.Conn, error) {
	recMu.Lock()
	defer recMu.Unlock()
	rec, ok := recorders[name]
	if !ok {
		return nil, errors.New("unknown recorder " + name)
	}
	return &recConn{rec: rec}, nil
}

func (c *recConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("unexpected Prepare call")
}

func (c *recConn) Close() error { return nil }

func (c *recConn) Begin() (driver.Tx, error) {
	return nil, errors.New("begin (legacy) should not be called")
}

func (c *recConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &recTx{rec: c.rec}, nil
}

// ExecContext records the statement and reports one affected row per tuple.
func (c *recConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	if c.rec.failOn != "" && strings.Contains(query, c.rec.failOn) {
		return nil, errors.New("exec failed")
	}
	c.rec.queries = append(c.rec.queries, query)
	c.rec.args = append(c.rec.args, args)
	return driver.RowsAffected(strings.Count(query, "(?")), nil
}

func (t *recTx) Commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.commits++
	return nil
}

func (t *recTx) Rollback() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.rollbacks++
	return nil
}

// newRecRepo returns a Repository backed by a fresh recorder.
func newRecRepo(t *testing.T) (*Repository, *recorder) {
	t.Helper()

	recOnce.Do(func() { sql.Register(recDriverName, recDriver{}) })
	rec := &recorder{}
	recMu.Lock()
	recorders[t.Name()] = rec
	recMu.Unlock()

	db, err := sql.Open(recDriverName, t.Name())
	if err != nil {
		t.Fatalf("sql.Open(%q) error = %v", recDriverName, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Repository{db: db}, rec
}

// --- Tests ---

func TestCopyFrom_MultiRowInsert(t *testing.T) {
	t.Parallel()

	r, rec := newRecRepo(t)
	n, err := r.CopyFrom(context.Background(), "lake.people", []string{"id", "name"}, [][]any{
		{int64(1), "alice"},
		{int64(2), nil},
	})
	if err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("CopyFrom() = %d, want 2", n)
	}
	want := "INSERT INTO `lake`.`people` (`id`, `name`) VALUES (?, ?), (?, ?)"
	if len(rec.queries) != 1 || rec.queries[0] != want {
		t.Fatalf("queries = %q, want [%q]", rec.queries, want)
	}
	if len(rec.args[0]) != 4 || rec.args[0][3].Value != nil {
		t.Fatalf("args = %+v", rec.args[0])
	}
	if rec.commits != 1 || rec.rollbacks != 0 {
		t.Fatalf("commits=%d rollbacks=%d", rec.commits, rec.rollbacks)
	}
}

// TestCopyFrom_SplitsAtPlaceholderLimit verifies no statement binds more than
// maxPlaceholders values.
func TestCopyFrom_SplitsAtPlaceholderLimit(t *testing.T) {
	t.Parallel()

	r, rec := newRecRepo(t)
	cols := []string{"a", "b", "c"}
	rows := make([][]any, maxPlaceholders/3+5)
	for i := range rows {
		rows[i] = []any{int64(i), int64(i), int64(i)}
	}
	n, err := r.CopyFrom(context.Background(), "t", cols, rows)
	if err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("CopyFrom() = %d, want %d", n, len(rows))
	}
	if len(rec.queries) != 2 {
		t.Fatalf("statements = %d, want 2", len(rec.queries))
	}
	for i, a := range rec.args {
		if len(a) > maxPlaceholders {
			t.Fatalf("statement %d binds %d values", i, len(a))
		}
	}
}

func TestCopyFrom_RowLengthMismatchRollsBack(t *testing.T) {
	t.Parallel()

	r, rec := newRecRepo(t)
	_, err := r.CopyFrom(context.Background(), "t", []string{"a", "b"}, [][]any{{1, 2}, {3}})
	if err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Fatalf("CopyFrom() error = %v, want row length error", err)
	}
	if rec.rollbacks != 1 || len(rec.queries) != 0 {
		t.Fatalf("rollbacks=%d queries=%d", rec.rollbacks, len(rec.queries))
	}
}

func TestNormalizeDSN(t *testing.T) {
	t.Parallel()

	got, err := NormalizeDSN("etl:secret@tcp(db:3306)/lake")
	if err != nil {
		t.Fatalf("NormalizeDSN() error = %v", err)
	}
	cfg, err := mysql.ParseDSN(got)
	if err != nil {
		t.Fatalf("ParseDSN(%q) error = %v", got, err)
	}
	if !cfg.ParseTime || cfg.DBName != "lake" || cfg.Addr != "db:3306" {
		t.Fatalf("normalized config = %+v", cfg)
	}

	if _, err := NormalizeDSN("not a dsn"); err == nil {
		t.Fatal("NormalizeDSN() error = nil for malformed DSN")
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	at := time.Date(0, 1, 1, 5, 6, 7, 0, time.UTC)
	if got, _ := convert(dataset.TypeTime, at); got != "05:06:07" {
		t.Fatalf("convert(time) = %v", got)
	}
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if got, _ := convert(dataset.TypeDate, day); got != day {
		t.Fatalf("convert(date) = %v", got)
	}
	if got, _ := convert(dataset.TypeInterval, time.Minute); got != int64(time.Minute) {
		t.Fatalf("convert(interval) = %v", got)
	}
}

// TestRegistration_PlanAndPublish runs the registered destination against the
// recording driver.
func TestRegistration_PlanAndPublish(t *testing.T) {
	repo, rec := newRecRepo(t)

	orig := newRepository
	defer func() { newRepository = orig }()
	newRepository = func(context.Context, string) (storage.Repository, error) { return repo, nil }

	ctx := context.Background()
	dest, err := storage.New(ctx, storage.Config{Kind: "mysql", DSN: "u:p@tcp(db)/lake", BatchSize: 2})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer dest.Close()

	ds := dataset.MustNew(dataset.Column{Name: "id", Type: dataset.TypeInteger, Values: []any{int64(1), int64(2), int64(3)}})
	plan, err := dest.Plan(ctx, storage.Target{Table: "lake.ids"}, ds)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	n, err := plan.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 3 {
		t.Fatalf("Publish = %d, want 3", n)
	}
	if len(rec.queries) != 3 {
		t.Fatalf("statements = %d, want create plus two inserts", len(rec.queries))
	}
	if !strings.HasPrefix(rec.queries[0], "CREATE TABLE IF NOT EXISTS `lake`.`ids`") {
		t.Fatalf("first statement = %q", rec.queries[0])
	}
	if rec.commits != 2 {
		t.Fatalf("commits = %d, want 2", rec.commits)
	}
}
