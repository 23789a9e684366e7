package utils

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTeeLoggerWritesToBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(&buf, zapcore.InfoLevel)

	logger.Info("Uploaded object", zap.String("key", "users.csv"))
	logger.Debug("not captured")

	output := buf.String()
	if !strings.Contains(output, "Uploaded object") || !strings.Contains(output, "users.csv") {
		t.Errorf("expected the info entry in the buffer, got: %q", output)
	}
	if strings.Contains(output, "not captured") {
		t.Errorf("debug entry must be filtered out, got: %q", output)
	}
}
