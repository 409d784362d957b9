package lastpublish

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"
)

// Record holds what the most recent successful publish uploaded.
type Record struct {
	Tag    string   `yaml:"tag"`
	RunID  uint     `yaml:"runId"`
	Assets []string `yaml:"assets"`
}

// Load returns the last recorded publish. The boolean is false when nothing
// has been recorded yet.
func Load() (Record, bool, error) {
	path, err := Path()
	if err != nil {
		return Record{}, false, err
	}
	data, err := lockedfile.Read(path)
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Save overwrites the recorded publish. It locks the record file while
// writing, in case multiple publishes run at once on the same machine.
func Save(rec Record) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return lockedfile.Write(path, bytes.NewReader(data), 0664)
}

// Path returns the path to the file that contains the last publish record.
func Path() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "iver-wharf", "wharf-release-publish", "last-publish.yml"), nil
}
