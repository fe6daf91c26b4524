package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateOperationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateOperationID()
	id2 := GenerateOperationID()

	if id1 == "" {
		t.Error("expected non-empty operation ID")
	}
	if len(id1) != 8 {
		t.Errorf("expected 8-character operation ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique operation IDs")
	}
}

func TestOperationIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	id := OperationIDFromContext(ctx)
	if id != "" {
		t.Errorf("expected empty operation ID, got %s", id)
	}

	ctx = ContextWithOperationID(ctx, "test-123")
	id = OperationIDFromContext(ctx)
	if id != "test-123" {
		t.Errorf("expected 'test-123', got '%s'", id)
	}
}

func TestContextWithNewOperationID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = ContextWithNewOperationID(ctx)

	id := OperationIDFromContext(ctx)
	if id == "" {
		t.Error("expected operation ID to be generated")
	}
	if len(id) != 8 {
		t.Errorf("expected 8-character operation ID, got %d", len(id))
	}
}

func TestJobIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := JobIDFromContext(ctx); ok {
		t.Error("expected no job id present")
	}

	ctx = ContextWithJobID(ctx, 42)
	id, ok := JobIDFromContext(ctx)
	if !ok {
		t.Fatal("expected job id present")
	}
	if id != 42 {
		t.Errorf("expected job id 42, got %d", id)
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, customLogger)

	retrievedLogger := LoggerFromContext(ctx)
	retrievedLogger.Info().Msg("test")

	output := buf.String()
	if !strings.Contains(output, "custom") {
		t.Errorf("expected custom field in output: %s", output)
	}
}

func TestLoggerFromContext_NoLogger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := LoggerFromContext(ctx)

	// Should return global logger without panic
	if logger.GetLevel() == zerolog.Disabled {
		t.Error("expected valid logger")
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := context.Background()
	ctx = ContextWithOperationID(ctx, "op-123")
	ctx = ContextWithJobID(ctx, 7)

	Ctx(ctx).Info().Msg("context test")

	output := buf.String()
	if !strings.Contains(output, "op-123") {
		t.Errorf("expected operation_id in output: %s", output)
	}
	if !strings.Contains(output, `"job_id":7`) {
		t.Errorf("expected job_id in output: %s", output)
	}
}

func TestCtxUsesLoggerStoredInContext(t *testing.T) {
	var buf bytes.Buffer
	daemonLogger := zerolog.New(&buf).With().Str("daemon", "control").Logger()

	ctx := ContextWithLogger(context.Background(), daemonLogger)
	ctx = ContextWithJobID(ctx, 9)

	Ctx(ctx).Info().Msg("job done")

	output := buf.String()
	if !strings.Contains(output, `"daemon":"control"`) {
		t.Errorf("expected daemon field in output: %s", output)
	}
	if !strings.Contains(output, `"job_id":9`) {
		t.Errorf("expected job_id in output: %s", output)
	}
}

func TestCtxWith(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := context.Background()
	ctx = ContextWithOperationID(ctx, "op-789")

	logger := CtxWith(ctx).Str("extra", "field").Logger()
	logger.Info().Msg("ctxwith test")

	output := buf.String()
	if !strings.Contains(output, "op-789") {
		t.Errorf("expected operation_id in output: %s", output)
	}
	if !strings.Contains(output, "extra") {
		t.Errorf("expected extra field in output: %s", output)
	}
}

func TestCtxShortcuts(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx := context.Background()
	ctx = ContextWithOperationID(ctx, "short-123")

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"CtxDebug", func() { CtxDebug(ctx).Msg("debug") }, "debug"},
		{"CtxInfo", func() { CtxInfo(ctx).Msg("info") }, "info"},
		{"CtxWarn", func() { CtxWarn(ctx).Msg("warn") }, "warn"},
		{"CtxError", func() { CtxError(ctx).Msg("error") }, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		output := buf.String()
		if !strings.Contains(output, tt.level) {
			t.Errorf("%s: expected level '%s' in output: %s", tt.name, tt.level, output)
		}
		if !strings.Contains(output, "short-123") {
			t.Errorf("%s: expected operation_id in output: %s", tt.name, output)
		}
	}
}

func TestCtxErr(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := context.Background()
	ctx = ContextWithOperationID(ctx, "err-123")

	testErr := &testError{msg: "test error"}
	CtxErr(ctx, testErr).Msg("error with context")

	output := buf.String()
	if !strings.Contains(output, "err-123") {
		t.Errorf("expected operation_id in output: %s", output)
	}
	if !strings.Contains(output, "test error") {
		t.Errorf("expected error in output: %s", output)
	}
}

func TestWithDaemon(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	logger := WithDaemon("maintenance")
	logger.Info().Msg("maintenance tick")

	output := buf.String()
	if !strings.Contains(output, `"daemon":"maintenance"`) {
		t.Errorf("expected daemon field in output: %s", output)
	}
}
