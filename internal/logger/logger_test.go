package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	if got := FromContext(ctx); got != L {
		t.Fatal("expected global logger for bare context")
	}

	scoped := slog.Default().With(slog.String("test", "scoped"))
	ctx = WithContext(ctx, scoped)
	if got := FromContext(ctx); got != scoped {
		t.Fatal("expected scoped logger from context")
	}
}
