package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	assert.NotContains(t, out.String(), "debug 1")
	assert.NotContains(t, out.String(), "info 2")
	assert.Contains(t, out.String(), "warn 3")
	assert.Contains(t, errOut.String(), "error 4")
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, " warn ": LevelWarn,
		"warning": LevelWarn, "error": LevelError, "": LevelInfo, "loud": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
}
