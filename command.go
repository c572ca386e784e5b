package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"heicconv/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatAVIF OutputFormat = "avif"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseOutputFormat accepts jpeg, jpg and avif in any case.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "avif":
		return FormatAVIF, nil
	}
	return "", fmt.Errorf("%w: %q (want jpeg or avif)", ErrUnsupportedFormat, s)
}

// Extension returns the file extension written for the format.
func (f OutputFormat) Extension() string {
	if f == FormatAVIF {
		return ".avif"
	}
	return ".jpg"
}

type Config struct {
	AssetsDir  string
	OutputDir  string
	Folder     string
	Quality    int
	Speed      int
	Format     OutputFormat
	DryRun     bool
	Manifest   string
	URLPrefix  string
	LogJSON    bool
	NoColor    bool
	Properties map[string]string
}

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	defaultQuality   = 85
	defaultSpeed     = 6
	defaultAssetsDir = "src/assets"
	defaultOutputDir = "public/assets"
	defaultURLPrefix = "/assets"
)

// PropertyOverride is one entry of the list form of the config file's
// properties section.
type PropertyOverride struct {
	Folder string `mapstructure:"folder"`
	Name   string `mapstructure:"name"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "heicconv",
		Short: "Convert HEIC property photos into web-ready JPEG files",
		Long: `heicconv walks every top-level folder of the assets directory, converts
the HEIC photos it finds and mirrors the folder layout under the output
directory. Each folder is reported with the property it belongs to.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return loadConfigFile(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromViper(v)
			if err != nil {
				return err
			}

			console := newConsole(cfg, cmd.OutOrStdout())
			if cfg.Quality < 1 || cfg.Quality > 100 {
				console.Warn("Quality %d is outside 1-100; the encoder will clamp it", cfg.Quality)
			}

			_, err = NewRunner(cfg, console).Run(cmd.Context())
			return err
		},
	}

	flags := cmd.Flags()
	flags.Int("quality", defaultQuality, "output quality (1-100)")
	flags.String("folder", "", "convert this asset folder only")
	flags.Bool("dry-run", false, "show what would be converted without writing anything")
	flags.String("assets-dir", defaultAssetsDir, "directory holding one folder per property")
	flags.String("output-dir", defaultOutputDir, "directory receiving the converted folders")
	flags.String("format", string(FormatJPEG), "output format: jpeg or avif")
	flags.Int("speed", defaultSpeed, "AVIF encoding speed (0-10, lower is slower and better)")
	flags.String("manifest", "", "write a YAML asset manifest to this path")
	flags.String("url-prefix", defaultURLPrefix, "web path prefix used for manifest image URLs")
	flags.Bool("log-json", false, "emit log records as JSON")
	flags.Bool("no-color", false, "disable coloured output")
	cmd.PersistentFlags().String("config", "", "config file (default: ./heicconv.yaml or ~/.config/heicconv/config.yaml)")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("HEICCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfigFile reads an explicit config file, or the first heicconv.yaml
// found in the working directory or ~/.config/heicconv. Only an explicit
// file is required to exist.
func loadConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("heicconv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "heicconv"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func configFromViper(v *viper.Viper) (*Config, error) {
	format, err := ParseOutputFormat(v.GetString("format"))
	if err != nil {
		return nil, err
	}

	properties, err := readProperties(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		AssetsDir:  v.GetString("assets-dir"),
		OutputDir:  v.GetString("output-dir"),
		Folder:     v.GetString("folder"),
		Quality:    v.GetInt("quality"),
		Speed:      v.GetInt("speed"),
		Format:     format,
		DryRun:     v.GetBool("dry-run"),
		Manifest:   v.GetString("manifest"),
		URLPrefix:  v.GetString("url-prefix"),
		LogJSON:    v.GetBool("log-json"),
		NoColor:    v.GetBool("no-color"),
		Properties: properties,
	}, nil
}

// readProperties accepts the properties section either as a list of
// folder/name pairs or as a folder: name map.
func readProperties(v *viper.Viper) (map[string]string, error) {
	switch raw := v.Get("properties").(type) {
	case nil:
		return map[string]string{}, nil
	case []any:
		var overrides []PropertyOverride
		if err := v.UnmarshalKey("properties", &overrides); err != nil {
			return nil, fmt.Errorf("parse properties: %w", err)
		}
		properties := make(map[string]string, len(overrides))
		for _, o := range overrides {
			if o.Folder == "" {
				return nil, fmt.Errorf("parse properties: entry without folder (name %q)", o.Name)
			}
			properties[o.Folder] = o.Name
		}
		return properties, nil
	case map[string]any:
		// Viper lowercases map keys and folder names are case-sensitive,
		// so the map is read again from the file itself.
		return readPropertiesMap(v.ConfigFileUsed())
	default:
		return nil, fmt.Errorf("parse properties: expected a list or a map, got %T", raw)
	}
}

func readPropertiesMap(cfgFile string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(cfgFile)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("parse properties: map form needs a YAML or JSON config file, got %q", cfgFile)
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	var doc struct {
		Properties map[string]string `yaml:"properties"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return doc.Properties, nil
}

func newConsole(cfg *Config, out io.Writer) *logger.Console {
	opts := logger.DefaultOptions()
	opts.Output = out
	tty := logger.IsTerminal(out)
	opts.EnableColors = tty && !cfg.NoColor
	opts.Interactive = tty
	opts.EnableJSON = cfg.LogJSON
	return logger.NewConsole(opts)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The root pre-run loads config files; version needs none.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			console := logger.NewConsole(&logger.RichLoggerOptions{Output: cmd.OutOrStdout()})
			console.Box("heicconv version information", fmt.Sprintf(
				"Version: %s\nBuild date: %s\nGit commit: %s",
				Version, BuildDate, GitCommit,
			))
		},
	}
}
