package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points the global config at a fresh directory for one test.
func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "citewise", "config.json")

	oldDir, oldPath := getConfigDirFunc, getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return filepath.Dir(configPath), nil }
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldDir
		getConfigPathFunc = oldPath
	})

	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")
	return configPath
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "citewise"))
}

func TestLoadGlobalConfig_Missing(t *testing.T) {
	useTempConfig(t)

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_RoundTripAndPermissions(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "alice-token", APIURL: "http://rag:8080"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "alice-token", cfg.APIKey)
	assert.Equal(t, "http://rag:8080", cfg.APIURL)
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestDeleteGlobalConfig(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, DeleteGlobalConfig(), "deleting a missing config is not an error")

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "k"}))
	require.NoError(t, DeleteGlobalConfig())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestGetCredentialSource(t *testing.T) {
	tests := []struct {
		name       string
		flagKey    string
		flagURL    string
		envKey     string
		envURL     string
		global     *GlobalConfig
		wantSource CredentialSource
		wantKey    string
		wantURL    string
	}{
		{
			name:       "flag wins over env and config",
			flagKey:    "flag-key",
			flagURL:    "http://flag:8080",
			envKey:     "env-key",
			global:     &GlobalConfig{APIKey: "global-key"},
			wantSource: SourceFlag,
			wantKey:    "flag-key",
			wantURL:    "http://flag:8080",
		},
		{
			name:       "env wins over config",
			envKey:     "env-key",
			envURL:     "http://env:8080",
			global:     &GlobalConfig{APIKey: "global-key", APIURL: "http://global:8080"},
			wantSource: SourceEnv,
			wantKey:    "env-key",
			wantURL:    "http://env:8080",
		},
		{
			name:       "env key alone uses default url",
			envKey:     "env-key",
			wantSource: SourceEnv,
			wantKey:    "env-key",
			wantURL:    defaultAPIURL,
		},
		{
			name:       "global config",
			global:     &GlobalConfig{APIKey: "global-key", APIURL: "http://global:8080"},
			wantSource: SourceGlobalConfig,
			wantKey:    "global-key",
			wantURL:    "http://global:8080",
		},
		{
			name:       "nothing configured",
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTempConfig(t)
			t.Setenv(envAPIKey, tt.envKey)
			t.Setenv(envAPIURL, tt.envURL)
			if tt.global != nil {
				require.NoError(t, SaveGlobalConfig(tt.global))
			}

			source, key, url := GetCredentialSource(tt.flagKey, tt.flagURL)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}
