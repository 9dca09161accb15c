package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/dictcache/internal/config"
	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/at-ishikawa/dictcache/internal/dictionary/restapi"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir, "http://localhost:8080")

	assert.Equal(t, filepath.Join(tmpDir, "config.yml"), got)

	info, err := os.Stat(filepath.Join(tmpDir, "dictionaries"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Gateway.BaseURL)
	assert.Equal(t, config.PersistenceBackendFile, cfg.Persistence.Backend)
	assert.Equal(t, filepath.Join(tmpDir, "dictionaries"), cfg.Persistence.Directory)
	assert.Zero(t, cfg.Gateway.RetryAttempts)
}

func TestDictionaryServer(t *testing.T) {
	server := NewDictionaryServer(t, map[string][]dictionary.Entry{
		"GENDER": {
			{Code: "GENDER", Label: "男", Value: "1"},
			{Code: "GENDER", Label: "女", Value: "2"},
		},
		"STATUS": {
			{Code: "STATUS", Label: "正常", Value: "0"},
		},
	})
	client := restapi.NewClient(restapi.Config{BaseURL: server.URL})
	defer client.Close()
	ctx := context.Background()

	entries, err := client.FetchDictionary(ctx, "GENDER")
	require.NoError(t, err)
	assert.Equal(t, []dictionary.Entry{
		{Code: "GENDER", Label: "男", Value: "1"},
		{Code: "GENDER", Label: "女", Value: "2"},
	}, entries)

	entries, err = client.FetchDictionary(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, entries)

	codes, err := client.FetchTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GENDER", "STATUS"}, codes)

	batch, err := client.FetchBatch(ctx, []string{"STATUS", "UNKNOWN"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]dictionary.Entry{
		"STATUS": {{Code: "STATUS", Label: "正常", Value: "0"}},
	}, batch)

	changes, err := client.FetchChanges(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	label, err := client.FetchLabel(ctx, "GENDER", "2")
	require.NoError(t, err)
	assert.Equal(t, "女", label)

	assert.Equal(t, 2, server.Requests("dictionary"))
	assert.Equal(t, 1, server.Requests("batch"))
	assert.Equal(t, 1, server.Requests("types"))
}
