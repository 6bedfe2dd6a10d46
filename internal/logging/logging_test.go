package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestConfigure_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	if err := Configure(logger, "debug", "json", &buf); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	logger.WithField("rows", 5).Debug("built")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %q", buf.String())
	}
	if entry["msg"] != "built" || entry["rows"] != float64(5) {
		t.Errorf("entry: %v", entry)
	}
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	if err := Configure(logger, "warn", "text", &buf); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output: %q", out)
	}
}

func TestConfigure_BadLevel(t *testing.T) {
	if err := Configure(log.New(), "loud", "text", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}
