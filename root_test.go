package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRootCmd rebinding resets the flag globals, so tests must set them
// after it returns. resetFlags restores the zero values on cleanup.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfigPath = ""
		flagSiteURL = ""
		flagUsername = ""
		flagPassword = ""
		flagFolder = ""
		flagBucket = ""
		flagPrefix = ""
		flagProfile = ""
		flagConcurrency = 1
		flagVerbose = false
		flagQuiet = false
	})
}

func TestResolveSettings_FlagsOnly(t *testing.T) {
	resetFlags(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--sharepoint-url", "https://contoso.sharepoint.com/sites/eng",
		"--sharepoint-username", "svc@contoso.com",
		"--sharepoint-password", "hunter2",
		"--sharepoint-folder", "Shared Documents",
		"--s3-bucket", "backups",
		"--s3-prefix", "sp",
		"--concurrency", "4",
	}))

	s, err := resolveSettings(cmd)
	require.NoError(t, err)

	assert.Equal(t, "https://contoso.sharepoint.com/sites/eng", s.SiteURL)
	assert.Equal(t, "svc@contoso.com", s.Username)
	assert.Equal(t, "hunter2", s.Password)
	assert.Equal(t, "Shared Documents", s.Folder)
	assert.Equal(t, "backups", s.Bucket)
	assert.Equal(t, "sp", s.Prefix)
	assert.Empty(t, s.Profile)
	assert.Equal(t, 4, s.Concurrency)
}

func TestResolveSettings_MissingRequired(t *testing.T) {
	resetFlags(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--sharepoint-url", "https://contoso.sharepoint.com/sites/eng",
		"--s3-bucket", "backups",
	}))

	_, err := resolveSettings(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--sharepoint-username")
}

func TestResolveSettings_ConfigFileFallback(t *testing.T) {
	resetFlags(t)

	cfgPath := filepath.Join(t.TempDir(), "sp2s3.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
sharepoint_url = "https://contoso.sharepoint.com/sites/eng"
sharepoint_username = "file-user@contoso.com"
sharepoint_password = "file-pass"
sharepoint_folder = "Shared Documents"
s3_bucket = "file-bucket"
concurrency = 8
`), 0o600))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", cfgPath,
		// Flags override the file where given.
		"--sharepoint-username", "flag-user@contoso.com",
	}))

	s, err := resolveSettings(cmd)
	require.NoError(t, err)

	assert.Equal(t, "flag-user@contoso.com", s.Username)
	assert.Equal(t, "file-pass", s.Password)
	assert.Equal(t, "file-bucket", s.Bucket)
	// Concurrency flag left at default, so the file value wins.
	assert.Equal(t, 8, s.Concurrency)
}

func TestResolveSettings_ConfigFileError(t *testing.T) {
	resetFlags(t)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
	}))

	_, err := resolveSettings(cmd)
	require.Error(t, err)
}

func TestBuildLogger_Default(t *testing.T) {
	resetFlags(t)
	newRootCmd()

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Verbose(t *testing.T) {
	resetFlags(t)
	newRootCmd()
	flagVerbose = true

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Quiet(t *testing.T) {
	resetFlags(t)
	newRootCmd()
	flagQuiet = true

	logger := buildLogger()

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	resetFlags(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"unexpected"})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Empty(t, firstNonEmpty("", ""))
}
