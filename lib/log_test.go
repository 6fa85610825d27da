package lib

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNullLogger(t *testing.T) {
	// pre-define expected
	expected := NewLogger(LoggerConfig{
		Level: DebugLevel,
		Out:   io.Discard,
	})
	// execute the function call
	got := NewNullLogger()
	// compare got vs expected
	require.Equal(t, expected, got)
}

func TestLoggerLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	log := NewLogger(LoggerConfig{Level: WarnLevel, Out: buf})
	// below the configured level
	log.Debug("hidden debug")
	log.Infof("hidden %s", "info")
	require.Zero(t, buf.Len())
	// at or above the configured level
	log.Warnf("shown %d", 1)
	log.Error("shown error")
	require.Contains(t, buf.String(), "WARN: shown 1")
	require.Contains(t, buf.String(), "ERROR: shown error")
}

func TestLoggerWithModule(t *testing.T) {
	buf := new(bytes.Buffer)
	log := NewLogger(LoggerConfig{Level: DebugLevel, Out: buf}).WithModule("vdf")
	log.Info("solved")
	require.Contains(t, buf.String(), "INFO: [vdf] solved")
}

func TestLoggerFileOutput(t *testing.T) {
	// pre-define the data-dir path for easy cleanup
	path := "./logger_test"
	defer os.RemoveAll(path)
	// no writer configured: log to stdout and a rotating file
	log := NewLogger(LoggerConfig{Level: InfoLevel}, path)
	log.Info("to file")
	bz, err := os.ReadFile(filepath.Join(path, LogDirectory, LogFileName))
	require.NoError(t, err)
	require.Contains(t, string(bz), "to file")
}
