package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("json", &buf); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}

	Get().Info(context.Background(), "training finished",
		String("run", "abc"),
		Int("epochs", 5),
		Duration("took", 2*time.Second),
	)

	out := buf.String()
	for _, want := range []string{`"msg":"training finished"`, `"run":"abc"`, `"epochs":5`, `"source":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got %s", want, out)
		}
	}
}

func TestLoggerUnknownFormat(t *testing.T) {
	if err := InitWithFormat("xml", nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("text", &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("trainer").Warn(context.Background(), "loss is nan")
	if !strings.Contains(buf.String(), "component=trainer") {
		t.Errorf("expected component attribute, got %s", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("text", &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestApplyLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("text", &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	ApplyLevel(ctx, "error", Get())
	if levelVar.Level() != slog.LevelError {
		t.Fatalf("expected error level, got %v", levelVar.Level())
	}

	ApplyLevel(ctx, "loud", Get())
	if levelVar.Level() != slog.LevelInfo {
		t.Errorf("expected fallback to info, got %v", levelVar.Level())
	}
	if !strings.Contains(buf.String(), "invalid log_level") || !strings.Contains(buf.String(), "log_level=loud") {
		t.Errorf("expected a warning naming the bad level, got %s", buf.String())
	}
}
