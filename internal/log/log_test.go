package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		logFunc  func(l Logger)
		want     string
		dontWant string
	}{
		{
			name:    "text format includes message",
			cfg:     Config{Level: slog.LevelInfo},
			logFunc: func(l Logger) { l.Info("chunk written", "count", 2) },
			want:    "chunk written",
		},
		{
			name:    "json format includes quoted key",
			cfg:     Config{Level: slog.LevelInfo, JSON: true},
			logFunc: func(l Logger) { l.Info("ingested", "content_id", "c1") },
			want:    `"content_id":"c1"`,
		},
		{
			name:     "level filtering drops debug",
			cfg:      Config{Level: slog.LevelInfo},
			logFunc:  func(l Logger) { l.Debug("too noisy") },
			dontWant: "too noisy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFunc(logger)

			out := buf.String()
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
			if tt.dontWant != "" && strings.Contains(out, tt.dontWant) {
				t.Errorf("output %q should not contain %q", out, tt.dontWant)
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop returned nil")
	}
	// Must not panic
	logger.Info("discarded")
	logger.Error("also discarded", "key", "value")
}
