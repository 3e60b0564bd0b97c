// Package world reads the metadata file that sits next to a map's block
// store and names the backend holding it.
package world

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MetadataFile is the name of the metadata file inside a world directory.
const MetadataFile = "world.mt"

// Setting keys used by the block store.
const (
	KeyBackend      = "backend"
	KeyPgConnection = "pgsql_connection"
)

// ErrSettingNotFound is returned by Metadata.Require for a missing key.
var ErrSettingNotFound = errors.New("setting not found")

// Metadata holds the settings of world.mt.
type Metadata struct {
	settings map[string]string
}

// Load reads world.mt from dir.
func Load(dir string) (Metadata, error) {
	f, err := os.Open(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{}, fmt.Errorf("read %s: %w", MetadataFile, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads "key = value" lines. Text after '#' is a comment, lines
// without '=' are ignored, and a repeated key keeps its first value.
func Parse(r io.Reader) (Metadata, error) {
	m := Metadata{settings: make(map[string]string)}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, dup := m.settings[key]; dup {
			continue
		}
		m.settings[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return Metadata{}, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}
	return m, nil
}

// GetDefault returns the value of key, or def when unset.
func (m Metadata) GetDefault(key, def string) string {
	if v, ok := m.settings[key]; ok {
		return v
	}
	return def
}

// Require returns the value of key or ErrSettingNotFound.
func (m Metadata) Require(key string) (string, error) {
	v, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return v, nil
}

// Backend returns the declared backend name, defaulting to sqlite3 as
// worlds created before the setting existed do.
func (m Metadata) Backend() string {
	return m.GetDefault(KeyBackend, "sqlite3")
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key, value string) Metadata {
	out := Metadata{settings: make(map[string]string, len(m.settings)+1)}
	for k, v := range m.settings {
		out.settings[k] = v
	}
	out.settings[key] = value
	return out
}
