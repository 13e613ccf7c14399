package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sp2s3/internal/config"
	"github.com/tonimelisma/sp2s3/internal/copier"
	"github.com/tonimelisma/sp2s3/internal/s3store"
	"github.com/tonimelisma/sp2s3/internal/sharepoint"
)

// version is set at build time via ldflags.
var version = "dev"

// errPartialFailure signals that the run finished but at least one file
// failed. The report has already been printed; main maps this to a non-zero
// exit without a second error message.
var errPartialFailure = errors.New("some files failed to copy")

// CLI flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagSiteURL     string
	flagUsername    string
	flagPassword    string
	flagFolder      string
	flagBucket      string
	flagPrefix      string
	flagProfile     string
	flagConcurrency int
	flagVerbose     bool
	flagQuiet       bool
)

// newRootCmd builds the single sp2s3 command. No subcommands: one
// invocation is one copy run.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sp2s3",
		Short: "Copy a SharePoint folder tree to an S3 bucket",
		Long: `sp2s3 recursively copies the files of a SharePoint document-library
folder to an S3 bucket, preserving the relative directory structure as
object-key prefixes. One-shot and one-directional: no diffing, no delta
transfer, no state between runs.

Exits zero only when every discovered file was copied.`,
		Version: version,
		Args:    cobra.NoArgs,
		// Errors and usage are printed by main, not by cobra.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runCopy,
	}

	cmd.Flags().StringVar(&flagConfigPath, "config", "", "TOML config file supplying flag defaults")
	cmd.Flags().StringVar(&flagSiteURL, "sharepoint-url", "", "SharePoint site URL")
	cmd.Flags().StringVar(&flagUsername, "sharepoint-username", "", "SharePoint username")
	cmd.Flags().StringVar(&flagPassword, "sharepoint-password", "", "SharePoint password")
	cmd.Flags().StringVar(&flagFolder, "sharepoint-folder", "", "site-relative path of the folder to copy")
	cmd.Flags().StringVar(&flagBucket, "s3-bucket", "", "destination S3 bucket name")
	cmd.Flags().StringVar(&flagPrefix, "s3-prefix", "", "prefix prepended to destination keys")
	cmd.Flags().StringVar(&flagProfile, "aws-profile", "", "named AWS credential profile (default: ambient resolution)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 1, "parallel uploads per folder")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational logging")

	return cmd
}

// settings is the effective configuration for one run after merging the
// optional config file under the CLI flags.
type settings struct {
	SiteURL     string
	Username    string
	Password    string
	Folder      string
	Bucket      string
	Prefix      string
	Profile     string
	Concurrency int
}

// resolveSettings merges config-file values under CLI flags (flags win) and
// validates that all required settings are present.
func resolveSettings(cmd *cobra.Command) (*settings, error) {
	fileCfg := &config.File{}

	if flagConfigPath != "" {
		loaded, err := config.Load(flagConfigPath)
		if err != nil {
			return nil, err
		}

		fileCfg = loaded
	}

	s := &settings{
		SiteURL:     firstNonEmpty(flagSiteURL, fileCfg.SharePointURL),
		Username:    firstNonEmpty(flagUsername, fileCfg.SharePointUsername),
		Password:    firstNonEmpty(flagPassword, fileCfg.SharePointPassword),
		Folder:      firstNonEmpty(flagFolder, fileCfg.SharePointFolder),
		Bucket:      firstNonEmpty(flagBucket, fileCfg.S3Bucket),
		Prefix:      firstNonEmpty(flagPrefix, fileCfg.S3Prefix),
		Profile:     firstNonEmpty(flagProfile, fileCfg.AWSProfile),
		Concurrency: flagConcurrency,
	}

	if !cmd.Flags().Changed("concurrency") && fileCfg.Concurrency > 0 {
		s.Concurrency = fileCfg.Concurrency
	}

	required := []struct {
		name  string
		value string
	}{
		{"sharepoint-url", s.SiteURL},
		{"sharepoint-username", s.Username},
		{"sharepoint-password", s.Password},
		{"sharepoint-folder", s.Folder},
		{"s3-bucket", s.Bucket},
	}

	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("required setting --%s not provided (flag or config file)", r.name)
		}
	}

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// buildLogger creates an slog.Logger from the verbosity flags. Default
// level is Info; --verbose raises to Debug, --quiet drops to Error.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// defaultHTTPClient returns the HTTP client used for SharePoint calls.
// No overall timeout: file downloads stream for as long as they need, and
// cancellation comes from the command context.
func defaultHTTPClient() *http.Client {
	return &http.Client{}
}

// runCopy is the whole run: sign in, probe the bucket, walk the tree,
// report. Setup failures return before any upload is attempted.
func runCopy(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	cfg, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	sp, err := sharepoint.NewClient(cfg.SiteURL, defaultHTTPClient(), logger)
	if err != nil {
		return err
	}

	if err := sp.SignIn(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("signing in to %s: %w", cfg.SiteURL, err)
	}

	writer, err := s3store.New(ctx, cfg.Bucket, cfg.Profile, logger)
	if err != nil {
		return err
	}

	if err := writer.CheckBucket(ctx); err != nil {
		return err
	}

	logger.Info("starting copy",
		slog.String("folder", cfg.Folder),
		slog.String("bucket", cfg.Bucket),
		slog.String("prefix", cfg.Prefix),
		slog.Int("concurrency", cfg.Concurrency),
	)

	c := copier.New(sp, writer, cfg.Prefix, cfg.Concurrency, logger)

	summary, err := c.Run(ctx, cfg.Folder)
	if err != nil {
		return err
	}

	summary.WriteReport(os.Stdout)

	if summary.Failed > 0 {
		return errPartialFailure
	}

	return nil
}
