// Package ledger records which source files finished processing. A file is
// marked only after its result was published, and a marked file is skipped
// on every later run. The record is a single id per file, never mutated and
// only removed by an explicit purge.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// ErrLookup matches every *LookupError.
var ErrLookup = errors.New("ledger: lookup failed")

// LookupError is a backing-store fault while checking an id. It is distinct
// from "not processed".
type LookupError struct {
	ID  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("ledger: lookup %q: %v", e.ID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLookup) hold for any LookupError.
func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// Store is a ledger backing store. Put must be idempotent.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Put(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Policy decides what a lookup fault means for the file being checked.
type Policy string

const (
	// PolicyFailOpen logs the fault and processes the file anyway.
	PolicyFailOpen Policy = "fail-open"
	// PolicyFailClosed aborts the file.
	PolicyFailClosed Policy = "fail-closed"
)

// ParsePolicy accepts "fail-open" and "fail-closed"; empty means fail-open.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFailOpen, nil
	case PolicyFailOpen, PolicyFailClosed:
		return p, nil
	}
	return "", fmt.Errorf("ledger: unknown policy %q (want %s or %s)", s, PolicyFailOpen, PolicyFailClosed)
}

// Ledger wraps a Store with the lookup policy.
type Ledger struct {
	store  Store
	policy Policy
	log    *slog.Logger
}

// New returns a ledger over store.
func New(store Store, policy Policy, log *slog.Logger) *Ledger {
	if policy == "" {
		policy = PolicyFailOpen
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{store: store, policy: policy, log: log}
}

// Policy returns the configured lookup policy.
func (l *Ledger) Policy() Policy { return l.policy }

// IsProcessed reports whether id was marked. A store fault is returned as a
// *LookupError regardless of policy.
func (l *Ledger) IsProcessed(ctx context.Context, id string) (bool, error) {
	ok, err := l.store.Exists(ctx, id)
	if err != nil {
		return false, &LookupError{ID: id, Err: err}
	}
	return ok, nil
}

// ShouldSkip applies the policy on top of IsProcessed. Under fail-open a
// lookup fault is logged and the file is processed; under fail-closed the
// *LookupError is returned and the file must be aborted.
func (l *Ledger) ShouldSkip(ctx context.Context, id string) (bool, error) {
	ok, err := l.IsProcessed(ctx, id)
	if err == nil {
		return ok, nil
	}
	if l.policy == PolicyFailClosed || ctx.Err() != nil {
		return false, err
	}
	l.log.Warn("ledger: lookup failed, treating as not processed", "id", id, "policy", string(l.policy), "err", err)
	return false, nil
}

// MarkProcessed records id. Marking an existing id is a no-op.
func (l *Ledger) MarkProcessed(ctx context.Context, id string) error {
	if err := l.store.Put(ctx, id); err != nil {
		return fmt.Errorf("ledger: mark %q: %w", id, err)
	}
	return nil
}

// List returns every recorded id, sorted.
func (l *Ledger) List(ctx context.Context) ([]string, error) {
	ids, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Purge removes the records of ids so the files are processed again. It is
// an operator action and never happens during a run.
func (l *Ledger) Purge(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := l.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("ledger: purge %q: %w", id, err)
		}
		l.log.Info("ledger: purged", "id", id)
	}
	return nil
}

// Close releases the store.
func (l *Ledger) Close() error { return l.store.Close() }
