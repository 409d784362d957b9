package runclient

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workflow/build/run", r.URL.Path)
		writeJSON(t, w, []Run{
			{RunID: 43, HeadCommit: "def456", Status: StatusRunning},
			{RunID: 42, HeadCommit: "abc123", Status: StatusCompleted},
		})
	}))
	defer srv.Close()

	client := Client{APIURL: srv.URL}
	runs, err := client.ListRuns("build")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, uint(43), runs[0].RunID, "order from the API must be kept")
	assert.Equal(t, StatusCompleted, runs[1].Status)
}

func TestListRunsErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := Client{APIURL: srv.URL}
	_, err := client.ListRuns("build")
	assert.Error(t, err)
}

func TestDownloadArtifactsMergesBundles(t *testing.T) {
	bundles := map[string]map[string]string{
		"1": {"a.bin": "from first", "b.bin": "bbb"},
		"2": {"a.bin": "from second"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/run/42/artifact":
			writeJSON(t, w, []Artifact{
				{ArtifactID: 1, Name: "linux-bundle"},
				{ArtifactID: 2, Name: "windows-bundle"},
			})
		case "/api/run/42/artifact/1":
			writeTar(t, w, bundles["1"])
		case "/api/run/42/artifact/2":
			writeTar(t, w, bundles["2"])
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := Client{APIURL: srv.URL}
	files, err := client.DownloadArtifacts(42, dir)
	require.NoError(t, err)

	wantFiles := []string{
		filepath.Join(dir, "a.bin"),
		filepath.Join(dir, "b.bin"),
	}
	assert.Equal(t, wantFiles, files, "merged list must be sorted and free of duplicates")

	data, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "from second", string(data), "bundle extracted last must win")
}

func TestDownloadArtifactsFailsOnBrokenBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/run/42/artifact":
			writeJSON(t, w, []Artifact{{ArtifactID: 1, Name: "bundle"}})
		case "/api/run/42/artifact/1":
			w.Write([]byte("this is not a tarball"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := Client{APIURL: srv.URL}
	_, err := client.DownloadArtifacts(42, t.TempDir())
	assert.Error(t, err)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeTar(t *testing.T, w http.ResponseWriter, files map[string]string) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0664,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	_, err := w.Write(buf.Bytes())
	require.NoError(t, err)
}
