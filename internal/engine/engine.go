// Package engine applies validated mutations to the program registry and
// keeps the cached usage flags reconciled after each one.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"plurianual/internal/config"
	"plurianual/internal/events"
	"plurianual/internal/reconcile"
	"plurianual/internal/repo"
)

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Config     *config.Config
	Reconciler *reconcile.Reconciler
	Log        *slog.Logger
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: db}
	return Engine{
		DB:         db,
		Repo:       r,
		Events:     events.Writer{DB: db},
		Config:     cfg,
		Reconciler: reconcile.New(r, logger),
		Log:        logger.With("component", "engine"),
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ErrInUse is matched by InUseError.
var ErrInUse = errors.New("in use")

// InUseError blocks deleting an idea or axis that programs still reference.
type InUseError struct {
	Kind     string
	Name     string
	Programs []string
}

func (e *InUseError) Error() string {
	if len(e.Programs) == 0 {
		return fmt.Sprintf("%s %q is in use", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q is in use by %s", e.Kind, e.Name, strings.Join(e.Programs, ", "))
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Result carries the outcome of a mutation. Warnings describe reconciliation
// steps that failed after the mutation itself was committed; the cached usage
// flags stay stale until the next resync.
type Result struct {
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) warn(err error) {
	for _, e := range flatten(err) {
		var remote *reconcile.RemoteOperationError
		if errors.As(e, &remote) {
			r.Warnings = append(r.Warnings, remote.Error())
			continue
		}
		r.Warnings = append(r.Warnings, "could not reconcile usage flags")
	}
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func (e Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
