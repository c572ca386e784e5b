package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"heicconv/logger"

	"github.com/stretchr/testify/require"
)

// writePhoto stores a small PNG under a .heic name. Tests decode it with
// png.Decode in place of the HEIC codec.
func writePhoto(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 180, G: 90, B: 30, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// writeCorrupt stores a truncated file that no decoder accepts.
func writeCorrupt(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("\x00\x00\x00\x18ftypheic"), 0o644))
}

// copyFixture copies a real HEIC file from testdata to path. A positive
// keep truncates the copy to that many bytes.
func copyFixture(t *testing.T, name, path string, keep int) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	if keep > 0 {
		data = data[:keep]
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func testConverter() *Converter {
	return &Converter{
		Decode:  png.Decode,
		Format:  FormatJPEG,
		Quality: defaultQuality,
		Console: logger.Discard(),
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
