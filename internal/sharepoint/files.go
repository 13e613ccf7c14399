package sharepoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// OpenFile streams the content of a file given its server-relative path.
// The caller must close the returned reader. Only the HTTP request/response
// cycle is retried by the underlying client; a failure mid-stream surfaces
// as a read error on the returned reader.
func (c *Client) OpenFile(ctx context.Context, serverRelativePath string) (io.ReadCloser, error) {
	c.logger.Debug("opening file", slog.String("file", serverRelativePath))

	apiPath := fmt.Sprintf("/_api/web/GetFileByServerRelativeUrl('%s')/$value", encodeAPIPathArg(serverRelativePath))

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: opening file %s: %w", serverRelativePath, err)
	}

	return resp.Body, nil
}
