package log

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldLog(t *testing.T) {
	assert.True(t, ShouldLog(InfoLevel, DebugLevel))
	assert.True(t, ShouldLog(ErrorLevel, InfoLevel))
	assert.False(t, ShouldLog(TraceLevel, InfoLevel))
	assert.False(t, ShouldLog(ErrorLevel, DisabledLevel))
	assert.False(t, ShouldLog("bogus", InfoLevel))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(" DEBUG ")
	assert.NoError(t, err)
	assert.Equal(t, LogLevel(DebugLevel), level)

	level, err = ParseLevel("warning")
	assert.NoError(t, err)
	assert.Equal(t, LogLevel(WarningLevel), level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestOutputFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)
	defer SetLevel(InfoLevel)

	assert.NoError(t, SetLevel(InfoLevel))
	Debug("hidden")
	Infof("deq - bucket - id: %s", "b1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "-  info - deq - bucket - id: b1")

	assert.NoError(t, SetLevel(TraceLevel))
	Trace("visible")
	assert.Contains(t, buf.String(), "visible")

	assert.Error(t, SetLevel("bogus"))
}

func TestLogWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)

	w := NewLogWriter(InfoLevel)
	n, err := fmt.Fprintln(w, "from writer")
	assert.NoError(t, err)
	assert.Equal(t, len("from writer\n"), n)
	assert.Contains(t, buf.String(), "from writer")
}

func TestDebugError(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)
	defer SetLevel(InfoLevel)

	assert.NoError(t, SetLevel(DebugLevel))
	DebugError(fmt.Errorf("commit: %w", fmt.Errorf("write journal: %w", fmt.Errorf("disk full"))))
	assert.Contains(t, buf.String(), "commit: write journal: disk full")
	assert.Contains(t, buf.String(), "| 1: write journal: disk full")
	assert.Contains(t, buf.String(), "| 2: disk full")
}
