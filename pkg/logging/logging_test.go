package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		if result := test.level.SlogLevel(); result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Info("test-subsystem", "test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("expected log message to appear in output")
	}
	if !strings.Contains(output, "test-subsystem") {
		t.Error("expected subsystem to appear in output")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered out at INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("info message should appear at INFO level")
	}
}

func TestTruncateSessionID(t *testing.T) {
	short := "abc123"
	if got := TruncateSessionID(short); got != short {
		t.Errorf("TruncateSessionID(%q) = %q, want unchanged", short, got)
	}

	long := "abcdefgh-ijkl-mnop-qrst-uvwxyz012345"
	want := "abcdefgh..."
	if got := TruncateSessionID(long); got != want {
		t.Errorf("TruncateSessionID(%q) = %q, want %q", long, got, want)
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Audit(AuditEvent{
		Action:     "tools.call",
		Outcome:    "success",
		SessionID:  "abcdefgh-ijkl-mnop",
		UpstreamID: "echo",
		Target:     "ping",
	})

	output := buf.String()
	for _, want := range []string{"[AUDIT]", "action=tools.call", "outcome=success", "session=abcdefgh...", "upstream=echo", "target=ping"} {
		if !strings.Contains(output, want) {
			t.Errorf("audit output missing %q: %s", want, output)
		}
	}
}
