package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateConfigWritesTemplate(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := executeCommand(t, "generate-config", "--output", outputPath)
	require.NoError(t, err)

	echoed := strings.TrimSpace(out)
	assert.True(t, filepath.IsAbs(echoed), "echoed path should be absolute: %s", echoed)

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<REQUIRED>")
	assert.Contains(t, string(content), "bootstrap_servers:")
}

func TestGenerateConfigRefusesOverwrite(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outputPath, []byte("keep me"), 0o644))

	_, err := executeCommand(t, "generate-config", "--output", outputPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already exists")

	content, readErr := os.ReadFile(outputPath)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(content))
}
