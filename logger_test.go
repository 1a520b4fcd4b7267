package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("shown", "template", "logo.png")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %q", out)
	}
	for _, want := range []string{`"msg":"shown"`, `"template":"logo.png"`, `"app":"planetrack"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}
