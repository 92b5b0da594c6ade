// SPDX-License-Identifier: MIT
package spectral

import (
	"datawave/internal/log"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry records the backend chosen for one transform size.
type Entry struct {
	Backend    string    `yaml:"backend"`
	NsPerOp    float64   `yaml:"ns_per_op"`
	MeasuredAt time.Time `yaml:"measured_at"`
}

type wisdomFile struct {
	Sizes map[int]Entry `yaml:"sizes"`
}

// Wisdom is the on-disk tuning cache, keyed by transform size. It is safe for
// concurrent use but is only touched during startup and shutdown.
type Wisdom struct {
	mu      sync.Mutex
	path    string
	entries map[int]Entry
	dirty   bool
}

// NewWisdom returns an empty cache that will be saved to path.
func NewWisdom(path string) *Wisdom {
	return &Wisdom{path: path, entries: make(map[int]Entry)}
}

// LoadWisdom reads the cache at path. A missing file is not an error: it is logged
// together with the command that creates it and an empty cache is returned. A file
// that exists but cannot be parsed is an error.
func LoadWisdom(path string, size int) (*Wisdom, error) {
	w := NewWisdom(path)
	if path == "" {
		return w, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.With("component", "spectral").Warnf("no tuning cache found at %s, please run:\n# datawave tune --size %d --wisdom %s", path, size, path)
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning cache: %w", err)
	}

	var file wisdomFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tuning cache %s: %w", path, err)
	}
	for n, e := range file.Sizes {
		w.entries[n] = e
	}
	log.Debugf("Spectral: loaded %d tuning entries from %s", len(w.entries), path)
	return w, nil
}

// Lookup returns the entry for size n.
func (w *Wisdom) Lookup(n int) (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[n]
	return e, ok
}

// Record stores the entry for size n and marks the cache dirty.
func (w *Wisdom) Record(n int, e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[n] = e
	w.dirty = true
}

// Dirty reports whether the cache holds unsaved entries.
func (w *Wisdom) Dirty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

func (w *Wisdom) Path() string { return w.path }

// Save writes the cache if it is dirty and has a path. The file is replaced
// atomically through a temporary file in the same directory.
func (w *Wisdom) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirty || w.path == "" {
		return nil
	}

	data, err := yaml.Marshal(wisdomFile{Sizes: w.entries})
	if err != nil {
		return fmt.Errorf("failed to encode tuning cache: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tuning cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wisdom-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create tuning cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tuning cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write tuning cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace tuning cache: %w", err)
	}

	w.dirty = false
	log.Infof("Spectral: saved %d tuning entries to %s", len(w.entries), w.path)
	return nil
}
