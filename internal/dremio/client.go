// Package dremio talks to the Dremio REST API: session login, SQL
// submission, optional job polling, and the paced Publisher that sends
// assembled batches.
package dremio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dwetl/internal/datasource/httpds"
)

// ErrUnsupportedStatement rejects statements other than CREATE and INSERT.
var ErrUnsupportedStatement = errors.New("dremio: unsupported statement")

// RemoteError is a non-2xx answer from Dremio. Body is the server's message,
// kept whole for the operator.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("dremio: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// JobError reports a job that ended in FAILED or CANCELED.
type JobError struct {
	JobID   string
	State   string
	Message string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("dremio: job %s %s: %s", e.JobID, strings.ToLower(e.State), e.Message)
}

// Config configures a Client.
type Config struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration

	// LoginRetries applies to login only. SQL statements are never retried.
	LoginRetries int

	// WaitJobs polls each submitted job until it reaches a final state.
	WaitJobs     bool
	PollInterval time.Duration
}

// Client is a per-run Dremio session. It is not safe for concurrent use.
type Client struct {
	base     string
	username string
	password string
	wait     bool
	poll     time.Duration

	auth *httpds.Client
	sql  *httpds.Client

	token string
	sleep httpds.SleepFunc
}

// NewClient validates cfg and builds a client. No request is made until the
// first Login or Execute.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("dremio: invalid url %q", cfg.URL)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	base := httpds.Config{Timeout: cfg.Timeout, InsecureSkipVerify: cfg.InsecureSkipVerify}
	login := base
	login.MaxRetries = cfg.LoginRetries
	return &Client{
		base:     strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		wait:     cfg.WaitJobs,
		poll:     cfg.PollInterval,
		auth:     httpds.NewClient(login),
		sql:      httpds.NewClient(base),
		sleep:    httpds.Sleep,
	}, nil
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login opens a session and keeps its token.
func (c *Client) Login(ctx context.Context) error {
	var out loginResponse
	err := c.auth.DoJSON(ctx, http.MethodPost, c.base+"/apiv2/login",
		loginRequest{UserName: c.username, Password: c.password}, &out, nil)
	if err != nil {
		return remote("login", err)
	}
	if out.Token == "" {
		return fmt.Errorf("dremio: login: empty token in response")
	}
	c.token = out.Token
	return nil
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type sqlResponse struct {
	ID string `json:"id"`
}

// Execute submits one statement and returns its job id. Only CREATE and
// INSERT are accepted. With WaitJobs set the call returns once the job
// completes, and a failed job is an error.
func (c *Client) Execute(ctx context.Context, stmt string) (string, error) {
	if err := CheckStatement(stmt); err != nil {
		return "", err
	}
	if c.token == "" {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
	}
	var out sqlResponse
	if err := c.sql.DoJSON(ctx, http.MethodPost, c.base+"/api/v3/sql", sqlRequest{SQL: stmt}, &out, c.authHeader()); err != nil {
		return "", remote("sql", err)
	}
	if c.wait && out.ID != "" {
		if err := c.WaitJob(ctx, out.ID); err != nil {
			return out.ID, err
		}
	}
	return out.ID, nil
}

type jobResponse struct {
	JobState     string `json:"jobState"`
	ErrorMessage string `json:"errorMessage"`
}

// WaitJob polls the job until COMPLETED, FAILED or CANCELED.
func (c *Client) WaitJob(ctx context.Context, id string) error {
	u := c.base + "/api/v3/job/" + url.PathEscape(id)
	for {
		var out jobResponse
		if err := c.auth.DoJSON(ctx, http.MethodGet, u, nil, &out, c.authHeader()); err != nil {
			return remote("job "+id, err)
		}
		switch out.JobState {
		case "COMPLETED":
			return nil
		case "FAILED", "CANCELED", "CANCELLED":
			return &JobError{JobID: id, State: out.JobState, Message: out.ErrorMessage}
		}
		if err := c.sleep(ctx, c.poll); err != nil {
			return err
		}
	}
}

func (c *Client) authHeader() http.Header {
	return http.Header{"Authorization": {"_dremio" + c.token}}
}

// CheckStatement accepts statements starting with CREATE or INSERT, ignoring
// case and leading whitespace.
func CheckStatement(stmt string) error {
	s := strings.TrimSpace(stmt)
	for _, kw := range []string{"CREATE", "INSERT"} {
		if len(s) >= len(kw) && strings.EqualFold(s[:len(kw)], kw) {
			return nil
		}
	}
	head := s
	if len(head) > 40 {
		head = head[:40] + "..."
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedStatement, head)
}

func remote(op string, err error) error {
	var se *httpds.StatusError
	if errors.As(err, &se) {
		return &RemoteError{Op: op, Status: se.Status, Body: se.Body}
	}
	return fmt.Errorf("dremio: %s: %w", op, err)
}
