package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger resets the logger to default state for test isolation
func resetLogger() {
	Init(Options{})
}

// --- Level Tests ---

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		logged    []string
		notLogged []string
	}{
		{
			name:      "default is info",
			logged:    []string{"info line", "warn line", "error line"},
			notLogged: []string{"debug line"},
		},
		{
			name:   "debug enables everything",
			opts:   Options{Debug: true},
			logged: []string{"debug line", "info line", "warn line", "error line"},
		},
		{
			name:      "quiet keeps errors only",
			opts:      Options{Quiet: true},
			logged:    []string{"error line"},
			notLogged: []string{"debug line", "info line", "warn line"},
		},
		{
			name:      "quiet overrides debug",
			opts:      Options{Quiet: true, Debug: true},
			logged:    []string{"error line"},
			notLogged: []string{"debug line", "info line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := tt.opts
			opts.Output = buf
			Init(opts)
			defer resetLogger()

			Debug("debug line")
			Info("info line")
			Warn("warn line")
			Error("error line")

			out := buf.String()
			for _, want := range tt.logged {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.notLogged {
				if strings.Contains(out, unwanted) {
					t.Errorf("did not expect %q in output:\n%s", unwanted, out)
				}
			}
		})
	}
}

// --- Format Tests ---

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("test message", "count", 42)

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Errorf("JSON format should produce JSON output, got %q", out)
	}
	if !strings.Contains(out, `"msg":"test message"`) {
		t.Error("JSON output should contain the message")
	}
	if !strings.Contains(out, `"count":42`) {
		t.Error("JSON output should contain structured args")
	}
}

func TestInit_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("test message", "name", "search")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Error("Text output should contain the message")
	}
	if !strings.Contains(strings.ToUpper(out), "INFO") {
		t.Error("Text output should contain level INFO")
	}
	if !strings.Contains(out, "name") || !strings.Contains(out, "search") {
		t.Error("Text output should contain structured args")
	}
}

// --- Custom Logger Tests ---

func TestSetLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, nil)))
	defer resetLogger()

	Info("through custom logger")

	if !strings.Contains(buf.String(), "through custom logger") {
		t.Error("expected message written by custom logger")
	}
}

func TestInit_LoggerOptionWins(t *testing.T) {
	custom := &bytes.Buffer{}
	ignored := &bytes.Buffer{}
	Init(Options{Output: ignored, Logger: slog.New(slog.NewJSONHandler(custom, nil))})
	defer resetLogger()

	Info("custom wins")

	if ignored.Len() != 0 {
		t.Error("Output should be ignored when Logger is set")
	}
	if !strings.Contains(custom.String(), "custom wins") {
		t.Error("expected message in custom logger output")
	}
}

// --- With / Context Tests ---

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	l := With("op", "fetch_post")
	l.Info("test with attrs")

	out := buf.String()
	if !strings.Contains(out, "op") || !strings.Contains(out, "fetch_post") {
		t.Errorf("expected attributes in output, got %q", out)
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "debug with context")
	InfoContext(ctx, "info with context")
	WarnContext(ctx, "warn with context")
	ErrorContext(ctx, "error with context")

	for _, want := range []string{"debug with context", "info with context", "warn with context", "error with context"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
