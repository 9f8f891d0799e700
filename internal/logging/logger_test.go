package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campuscove.log")

	logger, closer := New(Options{Level: "info", JSON: true, File: path})
	logger.Info("sweep finished", "deleted", 3)
	logger.Debug("not written")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, `"msg":"sweep finished"`) || !strings.Contains(out, `"deleted":3`) {
		t.Errorf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "not written") {
		t.Error("debug record written at info level")
	}
}
