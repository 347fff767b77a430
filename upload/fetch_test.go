package upload

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	content := []byte("the stored object")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "object.bin", time.Now(), bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "fetched.bin")
	err := Fetch(context.Background(), FetchParams{
		DurableReference: server.URL + "/objects/abc",
		DownloadPath:     dest,
	}, log.NewLogger())

	require.NoError(t, err)
	fetched, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, fetched)
}

func TestFetchObjectNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	err := Fetch(context.Background(), FetchParams{
		DurableReference: server.URL + "/objects/gone",
		DownloadPath:     filepath.Join(t.TempDir(), "fetched.bin"),
	}, log.NewLogger())

	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFetchValidatesParams(t *testing.T) {
	logger := log.NewLogger()

	err := Fetch(context.Background(), FetchParams{DownloadPath: "/tmp/x"}, logger)
	require.Error(t, err)

	err = Fetch(context.Background(), FetchParams{DurableReference: "https://example.com/o"}, logger)
	require.Error(t, err)
}
