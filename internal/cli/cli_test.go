package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kaleido.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.PrintIR)
	assert.True(t, cfg.Evaluate)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
Verbose = true
LogFormat = "json"
PrintIR = false
StopOnError = true
FillDeclarations = true
MaxSteps = 500
RequiresVersion = ">= 0.1.0"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.PrintIR)
	assert.True(t, cfg.Evaluate, "unset keys keep their defaults")
	assert.True(t, cfg.StopOnError)
	assert.True(t, cfg.FillDeclarations)
	assert.Equal(t, 500, cfg.MaxSteps)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "Optimise = true\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Optimise")
	assert.True(t, strings.HasPrefix(err.Error(), path), err.Error())
}

func TestLoadConfigValidates(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `LogFormat = "xml"`+"\n"))
	assert.ErrorContains(t, err, "unknown log format")

	_, err = LoadConfig(writeConfig(t, `RequiresVersion = ">= 99.0.0"`+"\n"))
	assert.ErrorContains(t, err, "does not satisfy")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.EmitLLVM = "out.ll"

	path := filepath.Join(t.TempDir(), "saved.toml")
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, CheckVersion(""))
	assert.NoError(t, CheckVersion("^0.3"))
	assert.Error(t, CheckVersion("< 0.1"))
	assert.ErrorContains(t, CheckVersion("not a constraint"), "invalid version constraint")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintVersion(&buf, "kaleido", false))
	assert.True(t, strings.HasPrefix(buf.String(), "kaleido v"+Version+"\n"))

	buf.Reset()
	require.NoError(t, PrintVersion(&buf, "kaleido", true))
	var decoded struct {
		Tool        string      `json:"tool"`
		VersionInfo VersionInfo `json:"version_info"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "kaleido", decoded.Tool)
	assert.Equal(t, Version, decoded.VersionInfo.Version)
}

func TestLoggerWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "json", true, false)

	l.Info("generated %d functions", 3)
	l.Debug("hidden")
	l.Error(errors.New("boom"), "run failed")

	out := buf.String()
	assert.Contains(t, out, "generated 3 functions")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "boom")
	assert.NotNil(t, l.Context())
}
