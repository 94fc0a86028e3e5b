package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetOutputSharesGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	restoreLevel(t)

	log.Info().Str("upload_id", "u-1").Msg("processed")
	if !strings.Contains(buf.String(), `"upload_id":"u-1"`) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	restoreLevel(t)

	SetLevel("warn")
	Log.Info().Msg("hidden")
	Log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output = %q", buf.String())
	}

	SetLevel("loud")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
}

func restoreLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}
