package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/at-ishikawa/dictcache/internal/testutil"
)

// setConfigFile sets the global configFile variable and registers a cleanup to restore it.
func setConfigFile(t *testing.T, cfgPath string) {
	t.Helper()
	oldConfigFile := configFile
	configFile = cfgPath
	t.Cleanup(func() { configFile = oldConfigFile })
}

// setBackend sets the global --backend value and registers a cleanup to restore it.
func setBackend(t *testing.T, value Backend) {
	t.Helper()
	oldBackend := backend
	backend = value
	t.Cleanup(func() { backend = oldBackend })
}

// setupBrokenConfigFile creates a config file with invalid YAML that causes Load() to fail.
func setupBrokenConfigFile(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{{invalid yaml content"), 0644))
	return cfgPath
}

// setupDictionaryService starts a fake dictionary service and points the config at it.
func setupDictionaryService(t *testing.T) (*testutil.DictionaryServer, string) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	server := testutil.NewDictionaryServer(t, map[string][]dictionary.Entry{
		"GENDER": {
			{Code: "GENDER", Label: "男", Value: "1"},
			{Code: "GENDER", Label: "女", Value: "2"},
		},
		"STATUS": {
			{Code: "STATUS", Label: "正常", Value: "0"},
		},
	})
	tmpDir := t.TempDir()
	setConfigFile(t, testutil.SetupTestConfig(t, tmpDir, server.URL))
	return server, tmpDir
}

// execute runs a command with args and returns its standard output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
