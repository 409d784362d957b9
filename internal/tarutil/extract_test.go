package tarutil

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	archive := tarFromMap(t, map[string]string{
		"a.bin":          "aaa",
		"nested/b.bin":   "bbb",
		"nested/deeper/": "",
	})

	files, err := Extract(dir, archive)
	require.NoError(t, err)

	wantFiles := []string{
		filepath.Join(dir, "a.bin"),
		filepath.Join(dir, "nested", "b.bin"),
	}
	assert.ElementsMatch(t, wantFiles, files)
	assertFileContent(t, filepath.Join(dir, "a.bin"), "aaa")
	assertFileContent(t, filepath.Join(dir, "nested", "b.bin"), "bbb")
	assert.DirExists(t, filepath.Join(dir, "nested", "deeper"))
}

func TestExtractMergeLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	_, err := Extract(dir, tarFromMap(t, map[string]string{
		"a.bin": "first",
		"b.bin": "only",
	}))
	require.NoError(t, err)
	_, err = Extract(dir, tarFromMap(t, map[string]string{
		"a.bin": "second",
	}))
	require.NoError(t, err)

	assertFileContent(t, filepath.Join(dir, "a.bin"), "second")
	assertFileContent(t, filepath.Join(dir, "b.bin"), "only")
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	_, err := Extract(dir, tarFromMap(t, map[string]string{
		"../escaped.bin": "nope",
	}))
	assert.Error(t, err)
}

func tarFromMap(t *testing.T, files map[string]string) *bytes.Buffer {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		if name[len(name)-1] == '/' {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name,
				Mode:     0775,
			}))
			continue
		}
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
	return &buf
}

func assertFileContent(t *testing.T, path, want string) {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data), path)
}
