package dremio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeDremio is a minimal Dremio REST server.
type fakeDremio struct {
	mu      sync.Mutex
	logins  int
	sql     []string
	reject  string // statements containing this substring fail with 400
	states  []string
	badAuth bool
}

func (f *fakeDremio) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/apiv2/login", func(w http.ResponseWriter, r *http.Request) {
		var in loginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserName != "etl" || in.Password != "secret" {
			http.Error(w, `{"errorMessage":"Login failed"}`, http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(loginResponse{Token: "tok"})
	})
	mux.HandleFunc("/api/v3/sql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "_dremiotok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var in sqlRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode sql: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.reject != "" && strings.Contains(in.SQL, f.reject) {
			http.Error(w, `{"errorMessage":"Table not found"}`, http.StatusBadRequest)
			return
		}
		f.sql = append(f.sql, in.SQL)
		json.NewEncoder(w).Encode(sqlResponse{ID: "job-1"})
	})
	mux.HandleFunc("/api/v3/job/job-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		state := f.states[0]
		if len(f.states) > 1 {
			f.states = f.states[1:]
		}
		json.NewEncoder(w).Encode(jobResponse{JobState: state, ErrorMessage: "bad cast"})
	})
	return mux
}

/*
newTestClient starts a fake server and a client against it with instant
polling.
*/
func newTestClient(t *testing.T, f *fakeDremio, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	if cfg.Username == "" {
		cfg.Username, cfg.Password = "etl", "secret"
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestExecute_LogsInOnceAndSends(t *testing.T) {
	t.Parallel()

	f := &fakeDremio{}
	c := newTestClient(t, f, Config{})
	ctx := context.Background()

	for _, stmt := range []string{`CREATE TABLE "s"."t" ("a" BIGINT)`, `insert into "s"."t" ("a") VALUES (1)`} {
		id, err := c.Execute(ctx, stmt)
		if err != nil {
			t.Fatalf("Execute(%q): %v", stmt, err)
		}
		if id != "job-1" {
			t.Fatalf("job id=%q", id)
		}
	}
	if f.logins != 1 || len(f.sql) != 2 {
		t.Fatalf("logins=%d sql=%d, want 1/2", f.logins, len(f.sql))
	}
}

func TestExecute_RemoteErrorCarriesBody(t *testing.T) {
	t.Parallel()

	f := &fakeDremio{reject: "missing"}
	c := newTestClient(t, f, Config{})

	_, err := c.Execute(context.Background(), `INSERT INTO "missing" ("a") VALUES (1)`)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err=%v, want *RemoteError", err)
	}
	if re.Status != http.StatusBadRequest || !strings.Contains(re.Body, "Table not found") {
		t.Fatalf("RemoteError=%+v", re)
	}
}

func TestLogin_Rejected(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeDremio{}, Config{Username: "etl", Password: "wrong"})
	err := c.Login(context.Background())
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusUnauthorized {
		t.Fatalf("err=%v, want 401 RemoteError", err)
	}
}

func TestExecute_UnsupportedStatementNeverSent(t *testing.T) {
	t.Parallel()

	f := &fakeDremio{}
	c := newTestClient(t, f, Config{})
	for _, stmt := range []string{"DROP TABLE t", "  SELECT 1", ""} {
		if _, err := c.Execute(context.Background(), stmt); !errors.Is(err, ErrUnsupportedStatement) {
			t.Errorf("Execute(%q) err=%v, want ErrUnsupportedStatement", stmt, err)
		}
	}
	if f.logins != 0 || len(f.sql) != 0 {
		t.Fatalf("rejected statements reached the server")
	}
}

func TestExecute_WaitJob(t *testing.T) {
	t.Parallel()

	ok := &fakeDremio{states: []string{"RUNNING", "RUNNING", "COMPLETED"}}
	c := newTestClient(t, ok, Config{WaitJobs: true})
	if _, err := c.Execute(context.Background(), "CREATE TABLE t (a INT)"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	failed := &fakeDremio{states: []string{"ENQUEUED", "FAILED"}}
	c = newTestClient(t, failed, Config{WaitJobs: true})
	_, err := c.Execute(context.Background(), "CREATE TABLE t (a INT)")
	var je *JobError
	if !errors.As(err, &je) || je.State != "FAILED" || je.Message != "bad cast" {
		t.Fatalf("err=%v, want failed JobError", err)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "localhost:9047", "://x"} {
		if _, err := NewClient(Config{URL: u}); err == nil {
			t.Errorf("NewClient(%q) accepted", u)
		}
	}
}
