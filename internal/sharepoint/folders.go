package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// systemFolders are SharePoint library-internal folders that hold form
// templates rather than user documents. They are skipped during listing.
var systemFolders = map[string]bool{
	"Forms": true,
}

// Entry is one item of a folder listing.
type Entry struct {
	Name     string
	IsFolder bool
	// ServerRelativePath is the full server-relative URL of the item,
	// e.g. "/sites/eng/Shared Documents/docs/readme.txt".
	ServerRelativePath string
	// RelPath is the path relative to the site, with no leading slash,
	// e.g. "Shared Documents/docs/readme.txt".
	RelPath string
	// Size is the file length in bytes. Zero for folders.
	Size int64
}

// spLength is the file Length field, which SharePoint serializes as a JSON
// number or, in verbose OData mode, as a quoted string (Edm.Int64).
type spLength int64

func (l *spLength) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*l = 0
		return nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing file length %s: %w", string(data), err)
	}

	*l = spLength(v)

	return nil
}

// fileResponse mirrors the SharePoint REST file JSON.
type fileResponse struct {
	Name              string   `json:"Name"`
	ServerRelativeURL string   `json:"ServerRelativeUrl"` //nolint:tagliatelle // SharePoint REST key
	Length            spLength `json:"Length"`
}

type folderResponse struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"` //nolint:tagliatelle // SharePoint REST key
	ItemCount         int    `json:"ItemCount"`         //nolint:tagliatelle // SharePoint REST key
}

type fileListResponse struct {
	Value []fileResponse `json:"value"`
}

type folderListResponse struct {
	Value []folderResponse `json:"value"`
}

// ListFolder returns the immediate files and sub-folders of a folder given
// by its site-relative path (e.g. "Shared Documents/reports"). Files come
// first, in the order the API returns them, then folders. SharePoint system
// folders are skipped. Fails with ErrNotFound when the path does not exist.
func (c *Client) ListFolder(ctx context.Context, folderPath string) ([]Entry, error) {
	serverRel := c.serverRelative(folderPath)

	c.logger.Info("listing folder", slog.String("folder", serverRel))

	files, err := c.listFiles(ctx, serverRel)
	if err != nil {
		return nil, err
	}

	folders, err := c.listFolders(ctx, serverRel)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files)+len(folders))

	for _, f := range files {
		entries = append(entries, Entry{
			Name:               f.Name,
			ServerRelativePath: f.ServerRelativeURL,
			RelPath:            c.relPath(f.ServerRelativeURL),
			Size:               int64(f.Length),
		})
	}

	for _, f := range folders {
		if systemFolders[f.Name] {
			c.logger.Debug("skipping system folder", slog.String("folder", f.ServerRelativeURL))
			continue
		}

		entries = append(entries, Entry{
			Name:               f.Name,
			IsFolder:           true,
			ServerRelativePath: f.ServerRelativeURL,
			RelPath:            c.relPath(f.ServerRelativeURL),
		})
	}

	c.logger.Debug("folder listed",
		slog.String("folder", serverRel),
		slog.Int("files", len(files)),
		slog.Int("folders", len(folders)),
	)

	return entries, nil
}

func (c *Client) listFiles(ctx context.Context, serverRel string) ([]fileResponse, error) {
	apiPath := fmt.Sprintf("/_api/web/GetFolderByServerRelativeUrl('%s')/Files", encodeAPIPathArg(serverRel))

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: listing files of %s: %w", serverRel, err)
	}
	defer resp.Body.Close()

	var list fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding file listing of %s: %w", serverRel, err)
	}

	return list.Value, nil
}

func (c *Client) listFolders(ctx context.Context, serverRel string) ([]folderResponse, error) {
	apiPath := fmt.Sprintf("/_api/web/GetFolderByServerRelativeUrl('%s')/Folders", encodeAPIPathArg(serverRel))

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, fmt.Errorf("sharepoint: listing sub-folders of %s: %w", serverRel, err)
	}
	defer resp.Body.Close()

	var list folderListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding folder listing of %s: %w", serverRel, err)
	}

	return list.Value, nil
}

// serverRelative converts a site-relative path to a server-relative URL by
// prepending the site path. Already server-relative paths (leading slash)
// pass through cleaned.
func (c *Client) serverRelative(folderPath string) string {
	if strings.HasPrefix(folderPath, "/") {
		return path.Clean(folderPath)
	}

	return path.Clean(c.sitePath + "/" + folderPath)
}

// relPath strips the site path prefix and the leading slash from a
// server-relative URL, yielding a site-relative path.
func (c *Client) relPath(serverRelativeURL string) string {
	p := serverRelativeURL
	if c.sitePath != "" && strings.HasPrefix(p, c.sitePath) {
		p = p[len(c.sitePath):]
	}

	return strings.TrimPrefix(p, "/")
}

// encodeAPIPathArg prepares a server-relative path for interpolation into a
// quoted REST API argument: apostrophes are doubled per OData rules and
// each path segment is URL-encoded.
func encodeAPIPathArg(p string) string {
	p = strings.ReplaceAll(p, "'", "''")

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
