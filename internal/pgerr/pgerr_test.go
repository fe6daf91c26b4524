package pgerr

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyUniqueViolation(t *testing.T) {
	raw := &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "dup"}
	err := Classify("insert backup_server", raw)
	if !Is(err, KindConstraint) {
		t.Fatalf("expected KindConstraint, got %v", KindOf(err))
	}
}

func TestClassifyConnectionFailure(t *testing.T) {
	raw := &pgconn.PgError{Code: pgerrcode.ConnectionFailure, Message: "conn lost"}
	err := Classify("poll job queue", raw)
	if !Is(err, KindDatabaseUnavailable) {
		t.Fatalf("expected KindDatabaseUnavailable, got %v", KindOf(err))
	}
}

func TestClassifyConnectError(t *testing.T) {
	raw := &pgconn.ConnectError{Config: &pgconn.Config{}, Err: errors.New("refused")}
	err := Classify("dial catalog", raw)
	if !Is(err, KindDatabaseUnavailable) {
		t.Fatalf("expected KindDatabaseUnavailable, got %v", KindOf(err))
	}
}

func TestClassifyNilIsNil(t *testing.T) {
	if Classify("noop", nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestNewAndWrap(t *testing.T) {
	err := New(KindValidation, "bad cron field")
	if KindOf(err) != KindValidation {
		t.Fatalf("unexpected kind: %v", KindOf(err))
	}

	wrapped := Wrap(KindNotFound, "backup_server 7", errors.New("no rows"))
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("unexpected kind: %v", KindOf(wrapped))
	}
	if errors.Unwrap(wrapped) == nil {
		t.Fatal("expected wrapped error to unwrap")
	}
}
