package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ManifestEntry lists the web paths of one property's converted photos.
type ManifestEntry struct {
	AssetFolder string   `yaml:"asset_folder"`
	ImageCount  int      `yaml:"image_count"`
	Images      []string `yaml:"images"`
}

// Manifest is keyed by property name.
type Manifest map[string]ManifestEntry

// BuildManifest collects the outputs of every folder that maps to a known
// property. Unmapped folders are left out.
func BuildManifest(results []FolderResult, props PropertyMap, urlPrefix string) Manifest {
	m := make(Manifest)
	for _, res := range results {
		name, ok := props.Lookup(res.Folder)
		if !ok {
			continue
		}

		images := make([]string, 0, len(res.Outputs))
		for _, out := range res.Outputs {
			images = append(images, path.Join("/", urlPrefix, res.Folder, filepath.Base(out)))
		}
		m[name] = ManifestEntry{
			AssetFolder: res.Folder,
			ImageCount:  len(images),
			Images:      images,
		}
	}
	return m
}

// WriteManifest marshals m as YAML and replaces dst atomically.
func WriteManifest(dst string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.yaml")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
