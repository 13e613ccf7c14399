package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sp2s3.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sharepoint_url = "https://contoso.sharepoint.com/sites/eng"
sharepoint_username = "svc@contoso.com"
sharepoint_password = "hunter2"
sharepoint_folder = "Shared Documents"
s3_bucket = "backups"
s3_prefix = "sharepoint"
aws_profile = "prod"
concurrency = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://contoso.sharepoint.com/sites/eng", cfg.SharePointURL)
	assert.Equal(t, "svc@contoso.com", cfg.SharePointUsername)
	assert.Equal(t, "hunter2", cfg.SharePointPassword)
	assert.Equal(t, "Shared Documents", cfg.SharePointFolder)
	assert.Equal(t, "backups", cfg.S3Bucket)
	assert.Equal(t, "sharepoint", cfg.S3Prefix)
	assert.Equal(t, "prod", cfg.AWSProfile)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoad_Partial(t *testing.T) {
	path := writeConfig(t, `s3_bucket = "backups"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backups", cfg.S3Bucket)
	assert.Empty(t, cfg.SharePointURL)
	assert.Zero(t, cfg.Concurrency)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `sharepoint_pasword = "typo"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "sharepoint_pasword")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, `sharepoint_url = [broken`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}
