package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Artifact is one downloaded file.
type Artifact struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

// Manifest describes the contents of an offline bundle.
type Manifest struct {
	CreatedAt time.Time  `yaml:"created_at"`
	Packages  []string   `yaml:"packages"`
	Debs      []Artifact `yaml:"debs"`
	Wheels    []Artifact `yaml:"wheels"`
}

// TotalSize sums the size of every artifact.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, a := range m.Debs {
		n += a.Size
	}
	for _, a := range m.Wheels {
		n += a.Size
	}
	return n
}

// WriteFile stores the manifest as YAML.
func (m *Manifest) WriteFile(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads a manifest written by WriteFile.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return &m, nil
}

// describe hashes every file in paths, sorted by name.
func describe(paths []string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := hashFile(p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func hashFile(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Artifact{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return Artifact{
		Name:   filepath.Base(path),
		Size:   n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}
