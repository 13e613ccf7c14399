// Package copier walks a SharePoint folder tree depth-first and streams
// every file it finds to an object-store writer, mapping relative paths to
// destination keys. Per-file failures are recorded, never fatal: one bad
// file must not prevent copying the rest of the tree.
package copier

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/sp2s3/internal/sharepoint"
)

// Source lists remote folders and streams file content. Implemented by
// *sharepoint.Client.
type Source interface {
	ListFolder(ctx context.Context, folderPath string) ([]sharepoint.Entry, error)
	OpenFile(ctx context.Context, serverRelativePath string) (io.ReadCloser, error)
}

// Destination uploads a byte stream to a key. Implemented by *s3store.Writer.
type Destination interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}

// Copier copies a remote folder tree to a destination, one attempt per file
// per run. Files within a folder may be uploaded by up to concurrency
// workers; folder recursion is sequential so the directory walk order is
// stable.
type Copier struct {
	src         Source
	dst         Destination
	prefix      string
	concurrency int
	logger      *slog.Logger
}

// New creates a Copier. Keys are computed as prefix + site-relative path.
// A concurrency below 1 is treated as 1 (the sequential baseline).
func New(src Source, dst Destination, prefix string, concurrency int, logger *slog.Logger) *Copier {
	if logger == nil {
		logger = slog.Default()
	}

	if concurrency < 1 {
		concurrency = 1
	}

	return &Copier{
		src:         src,
		dst:         dst,
		prefix:      prefix,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run copies the tree rooted at the given site-relative folder path and
// returns the run summary. A listing failure of the root folder itself is a
// setup error and returns before any upload is attempted. Every failure
// below the root is recorded in the summary instead. On context
// cancellation the walk stops between operations and the partial summary is
// returned as the truthful record of work done.
func (c *Copier) Run(ctx context.Context, folderPath string) (*Summary, error) {
	entries, err := c.src.ListFolder(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("listing root folder %q: %w", folderPath, err)
	}

	sum := &Summary{}
	c.processEntries(ctx, entries, sum)

	return sum, nil
}

// walk lists one sub-folder and processes its entries. A failed listing is
// recorded as a failure of that folder and does not abort sibling folders.
func (c *Copier) walk(ctx context.Context, folderPath string, sum *Summary) {
	entries, err := c.src.ListFolder(ctx, folderPath)
	if err != nil {
		c.logger.Error("folder listing failed",
			slog.String("folder", folderPath),
			slog.String("error", err.Error()),
		)
		sum.noteFailure(folderPath, err)

		return
	}

	c.processEntries(ctx, entries, sum)
}

// processEntries copies the file entries of one folder, then recurses into
// its sub-folders. File uploads are dispatched through a bounded worker
// pool; the pool drains before recursion starts.
func (c *Copier) processEntries(ctx context.Context, entries []sharepoint.Entry, sum *Summary) {
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)

	for _, entry := range entries {
		if entry.IsFolder || ctx.Err() != nil {
			continue
		}

		sum.noteDiscovered()

		g.Go(func() error {
			c.copyFile(ctx, entry, sum)
			return nil
		})
	}

	// Errors are recorded in the summary, never returned by the workers.
	_ = g.Wait()

	for _, entry := range entries {
		if !entry.IsFolder || ctx.Err() != nil {
			continue
		}

		c.walk(ctx, entry.RelPath, sum)
	}
}

// copyFile streams one file from source to destination and records the
// outcome.
func (c *Copier) copyFile(ctx context.Context, entry sharepoint.Entry, sum *Summary) {
	key := JoinKey(c.prefix, entry.RelPath)

	body, err := c.src.OpenFile(ctx, entry.ServerRelativePath)
	if err != nil {
		c.logger.Error("copy failed",
			slog.String("source", entry.RelPath),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		sum.noteFailure(entry.RelPath, err)

		return
	}
	defer body.Close()

	if err := c.dst.Put(ctx, key, body, entry.Size); err != nil {
		c.logger.Error("copy failed",
			slog.String("source", entry.RelPath),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		sum.noteFailure(entry.RelPath, err)

		return
	}

	c.logger.Info("copied file",
		slog.String("source", entry.RelPath),
		slog.String("key", key),
		slog.Int64("size", entry.Size),
	)
	sum.noteCopied(entry.Size)
}
