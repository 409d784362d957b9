package tarutil

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const dirFileMode fs.FileMode = 0775

// Extract untars an archive into a directory and returns the paths of the
// regular files it wrote. Existing files are overwritten, so extracting
// multiple archives into the same directory merges them, where the archive
// extracted last wins on duplicate file names.
func Extract(dir string, r io.Reader) ([]string, error) {
	tr := tar.NewReader(r)
	var files []string
	for {
		head, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		path, err := joinInsideDir(dir, head.Name)
		if err != nil {
			return nil, err
		}
		switch head.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, dirFileMode); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), dirFileMode); err != nil {
				return nil, err
			}
			if err := writeFile(path, tr, head.FileInfo().Mode()); err != nil {
				return nil, err
			}
			files = append(files, path)
		}
	}
	return files, nil
}

func joinInsideDir(dir, name string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if path != filepath.Clean(dir) &&
		!strings.HasPrefix(path, filepath.Clean(dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes destination dir: %q", name)
	}
	return path, nil
}

func writeFile(path string, r io.Reader, mode fs.FileMode) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(file, r)
	closeErr := file.Close()
	if err != nil {
		return err
	}
	return closeErr
}
