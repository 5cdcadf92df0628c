package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRenamesStandardKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "yieldd", "test", slog.LevelInfo)
	logger.Info("protocol updated", slog.String("protocol", "myprotocol"))
	logger.Debug("dropped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "protocol updated", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "yieldd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "myprotocol", line["protocol"])
	require.Contains(t, line, "timestamp")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestSetupWithFileSink(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "yieldd.log")
	logger, closer := SetupWithOptions("yieldd", "", Options{File: path, MaxSizeMB: 1})
	logger.Info("hello")
	require.NoError(t, closer.Close())
	require.FileExists(t, path)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("authorization", "Bearer abc").Value.String())
	require.Equal(t, "myprotocol", MaskField("protocol", "myprotocol").Value.String())
	require.Equal(t, "", MaskField("token", "").Value.String())
	require.Contains(t, RedactionAllowlist(), "contract")
}
