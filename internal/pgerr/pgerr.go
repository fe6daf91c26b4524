// Package pgerr classifies errors arising at the boundaries of the
// coordination engine into the typed kinds described in spec.md §7:
// Validation, NotFound, Constraint, DatabaseUnavailable, Filesystem,
// ExternalProcess, and VersionMismatch.
package pgerr

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies the category of a coordination-engine error so that
// callers (daemons, the Admin API, the CLI) can branch on handling policy
// without inspecting error strings.
type Kind int

const (
	// KindUnknown is the zero value; treated like an unclassified internal error.
	KindUnknown Kind = iota
	// KindValidation is a bad input at the Admin API boundary. No state change.
	KindValidation
	// KindNotFound is an entity lookup failure. Idempotent deletes still succeed.
	KindNotFound
	// KindConstraint is an attempt to delete an entity still referenced elsewhere.
	KindConstraint
	// KindDatabaseUnavailable is a transient catalog connectivity failure.
	KindDatabaseUnavailable
	// KindFilesystem is a crontab/artifact write failure.
	KindFilesystem
	// KindExternalProcess is a pg_dump/pg_restore non-zero exit.
	KindExternalProcess
	// KindVersionMismatch is a software/catalog schema version disagreement.
	KindVersionMismatch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConstraint:
		return "constraint"
	case KindDatabaseUnavailable:
		return "database_unavailable"
	case KindFilesystem:
		return "filesystem"
	case KindExternalProcess:
		return "external_process"
	case KindVersionMismatch:
		return "version_mismatch"
	default:
		return "unknown"
	}
}

// Error is a typed, wrapped error. Use errors.As to recover it and Kind() to
// branch on handling policy.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// New constructs a Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap constructs a Error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// Is reports whether err is a Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or KindUnknown if it isn't a Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// Classify inspects a raw error returned by the pgx driver and maps it onto
// a Error. pgx.ErrNoRows becomes KindNotFound; connection-level failures
// (network errors, pgconn.ConnectError, pgconn.PgError with a class-08
// "connection exception" code) become KindDatabaseUnavailable;
// unique/foreign-key violations become KindConstraint; everything else is
// wrapped as KindUnknown so the caller can still log and retry-on-unknown if
// that's the locally correct policy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(KindNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation, pgerrcode.ExclusionViolation:
			return Wrap(KindConstraint, op, err)
		case pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.SQLclientUnableToEstablishSQLconnection,
			pgerrcode.SQLserverRejectedEstablishmentOfSQLconnection:
			return Wrap(KindDatabaseUnavailable, op, err)
		}
		return Wrap(KindUnknown, op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Wrap(KindDatabaseUnavailable, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(KindDatabaseUnavailable, op, err)
	}

	return Wrap(KindUnknown, op, err)
}
