package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{" avif ", FormatAVIF, false},
		{"webp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputFormatExtension(t *testing.T) {
	assert.Equal(t, ".jpg", FormatJPEG.Extension())
	assert.Equal(t, ".avif", FormatAVIF.Extension())
}

func TestCommandMissingAssetsDir(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t,
		"--assets-dir", filepath.Join(dir, "missing"),
		"--output-dir", filepath.Join(dir, "out"))

	require.ErrorIs(t, err, ErrAssetsDirMissing)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestCommandMissingFolder(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	_, err := execute(t,
		"--assets-dir", cfg.AssetsDir,
		"--output-dir", cfg.OutputDir,
		"--folder", "Sky Lounge")

	require.ErrorIs(t, err, ErrFolderNotFound)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestCommandUnsupportedFormat(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	_, err := execute(t, "--assets-dir", cfg.AssetsDir, "--format", "gif")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCommandDryRunListsFolders(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	out, err := execute(t,
		"--assets-dir", cfg.AssetsDir,
		"--output-dir", cfg.OutputDir,
		"--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "City Zen (3 files) → Zen Suite")
	assert.Contains(t, out, "Rooftop (1 files) → Unknown")
	assert.Contains(t, out, "IMG_0003.heic → "+filepath.Join(cfg.OutputDir, "City Zen", "IMG_0003.jpg"))
	assert.Contains(t, out, "Dry run - no files will be converted")
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestCommandConfigFileProperties(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	cfgFile := filepath.Join(t.TempDir(), "heicconv.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
assets-dir: `+cfg.AssetsDir+`
dry-run: true
properties:
  - folder: Rooftop
    name: Rooftop Studio
`), 0o644))

	out, err := execute(t, "--config", cfgFile, "--output-dir", cfg.OutputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Rooftop (1 files) → Rooftop Studio")
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestCommandConfigFilePropertiesForms(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		want       []string
		wantErr    string
	}{
		{
			name: "map keeps folder case",
			properties: `
  Rooftop: Rooftop Studio
  City Zen: Zen Suite Deluxe
`,
			want: []string{"Rooftop (1 files) → Rooftop Studio", "City Zen (3 files) → Zen Suite Deluxe"},
		},
		{
			name: "list",
			properties: `
  - folder: City Zen
    name: Zen Suite Deluxe
`,
			want: []string{"City Zen (3 files) → Zen Suite Deluxe", "Rooftop (1 files) → Unknown"},
		},
		{
			name:       "scalar",
			properties: " Rooftop Studio\n",
			wantErr:    "expected a list or a map",
		},
		{
			name: "list entry without folder",
			properties: `
  - name: Rooftop Studio
`,
			wantErr: "entry without folder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			seedAssets(t, cfg)

			cfgFile := filepath.Join(t.TempDir(), "heicconv.yaml")
			require.NoError(t, os.WriteFile(cfgFile, []byte(
				"assets-dir: "+cfg.AssetsDir+"\ndry-run: true\nproperties:"+tt.properties), 0o644))

			out, err := execute(t, "--config", cfgFile, "--output-dir", cfg.OutputDir)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestCommandFolderMustBeName(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	// Each value resolves to an existing directory that is not an asset folder.
	for _, folder := range []string{"../" + filepath.Base(cfg.AssetsDir), ".."} {
		t.Run(folder, func(t *testing.T) {
			_, err := execute(t,
				"--assets-dir", cfg.AssetsDir,
				"--output-dir", cfg.OutputDir,
				"--folder", folder)

			require.ErrorIs(t, err, ErrFolderNotFound)
			assert.NoDirExists(t, cfg.OutputDir)
		})
	}
}

func TestCommandMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestCommandEnvironment(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)
	t.Setenv("HEICCONV_ASSETS_DIR", cfg.AssetsDir)
	t.Setenv("HEICCONV_DRY_RUN", "true")

	out, err := execute(t, "--output-dir", cfg.OutputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 asset folders")
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestCommandJSONLogs(t *testing.T) {
	cfg := testConfig(t)
	seedAssets(t, cfg)

	out, err := execute(t,
		"--assets-dir", cfg.AssetsDir,
		"--output-dir", cfg.OutputDir,
		"--dry-run", "--log-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `Zen Suite`)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "Git commit: unknown")
}
