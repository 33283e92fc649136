package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithoutDirectoryLogsToStderrHandler(t *testing.T) {
	log := New(Config{})
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestWithServiceTagsRecordsWithTheServiceName(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	log := WithService(base, "ARGOS_TX")
	log.Info("hello")

	if got := buf.String(); !strings.Contains(got, `service=ARGOS_TX`) {
		t.Errorf("got log line %q, want it to contain service=ARGOS_TX", got)
	}
}

func TestWithServiceOnNilLoggerFallsBackToDefault(t *testing.T) {
	log := WithService(nil, "ARGOS_RX")
	if log == nil {
		t.Fatal("expected a non-nil logger even when given nil")
	}
}

func TestFormatStartupBannerIncludesBothIdentifiers(t *testing.T) {
	banner := FormatStartupBanner(42, 1234)
	if !strings.Contains(banner, "dec_id=42") || !strings.Contains(banner, "hex_id=1234") {
		t.Errorf("got banner %q, want both identifiers present", banner)
	}
}
