package sharepoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newListTestServer serves canned Files/Folders listings for one folder.
func newListTestServer(t *testing.T, filesJSON, foldersJSON string) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/Files"):
			fmt.Fprint(w, filesJSON)
		case strings.HasSuffix(r.URL.Path, "/Folders"):
			fmt.Fprint(w, foldersJSON)
		default:
			t.Errorf("unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return newTestClient(t, srv.URL+"/sites/test")
}

func TestListFolder_FilesAndFolders(t *testing.T) {
	filesJSON := `{"value":[
		{"Name":"a.txt","ServerRelativeUrl":"/sites/test/Shared Documents/a.txt","Length":123},
		{"Name":"b.pdf","ServerRelativeUrl":"/sites/test/Shared Documents/b.pdf","Length":"4567"}
	]}`
	foldersJSON := `{"value":[
		{"Name":"Forms","ServerRelativeUrl":"/sites/test/Shared Documents/Forms","ItemCount":4},
		{"Name":"reports","ServerRelativeUrl":"/sites/test/Shared Documents/reports","ItemCount":2}
	]}`

	client := newListTestServer(t, filesJSON, foldersJSON)

	entries, err := client.ListFolder(context.Background(), "Shared Documents")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Files come first, in API order.
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.False(t, entries[0].IsFolder)
	assert.Equal(t, "/sites/test/Shared Documents/a.txt", entries[0].ServerRelativePath)
	assert.Equal(t, "Shared Documents/a.txt", entries[0].RelPath)
	assert.Equal(t, int64(123), entries[0].Size)

	// Length serialized as a string still parses.
	assert.Equal(t, int64(4567), entries[1].Size)

	// The Forms system folder is skipped.
	assert.Equal(t, "reports", entries[2].Name)
	assert.True(t, entries[2].IsFolder)
	assert.Equal(t, "Shared Documents/reports", entries[2].RelPath)
}

func TestListFolder_Empty(t *testing.T) {
	client := newListTestServer(t, `{"value":[]}`, `{"value":[]}`)

	entries, err := client.ListFolder(context.Background(), "Empty Folder")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListFolder_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"odata.error":{"message":"File Not Found."}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/sites/test")

	_, err := client.ListFolder(context.Background(), "No Such Folder")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFolder_EncodesPathArgument(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.EscapedPath()
		mu.Unlock()
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/sites/test")

	_, err := client.ListFolder(context.Background(), "Bob's Files")
	require.NoError(t, err)

	// Apostrophes doubled per OData then percent-encoded, spaces encoded.
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, gotPath, "GetFolderByServerRelativeUrl('/sites/test/Bob%27%27s%20Files')")
}

func TestServerRelative(t *testing.T) {
	client := newTestClient(t, "https://contoso.sharepoint.com/sites/test")

	tests := []struct {
		in   string
		want string
	}{
		{"Shared Documents", "/sites/test/Shared Documents"},
		{"/sites/test/Shared Documents", "/sites/test/Shared Documents"},
		{"Shared Documents/sub/", "/sites/test/Shared Documents/sub"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, client.serverRelative(tt.in))
	}
}

func TestRelPath(t *testing.T) {
	client := newTestClient(t, "https://contoso.sharepoint.com/sites/test")

	assert.Equal(t, "Shared Documents/a.txt", client.relPath("/sites/test/Shared Documents/a.txt"))
	assert.Equal(t, "Other/a.txt", client.relPath("/Other/a.txt"))

	rootSite := newTestClient(t, "https://contoso.sharepoint.com")
	assert.Equal(t, "Shared Documents/a.txt", rootSite.relPath("/Shared Documents/a.txt"))
}

func TestOpenFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.EscapedPath(), "GetFileByServerRelativeUrl('/sites/test/docs/readme.txt')/$value")
		fmt.Fprint(w, "file bytes")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/sites/test")

	body, err := client.OpenFile(context.Background(), "/sites/test/docs/readme.txt")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "file bytes", string(data))
}

func TestOpenFile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/sites/test")

	_, err := client.OpenFile(context.Background(), "/sites/test/docs/missing.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}
