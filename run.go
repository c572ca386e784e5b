package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"heicconv/logger"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
)

const lockFileName = ".heicconv.lock"

var (
	ErrAssetsDirMissing = errors.New("assets directory not found")
	ErrFolderNotFound   = errors.New("asset folder not found")
	ErrOutputLocked     = errors.New("output directory is locked by another heicconv run")
)

// AssetFolder is one top-level folder of the assets directory.
type AssetFolder struct {
	Name     string
	Path     string
	Property string
	Files    []string
}

type RunSummary struct {
	Folders      []FolderResult
	Successful   int
	Failed       int
	BytesWritten int64
	OutputDir    string
	Elapsed      time.Duration
	DryRun       bool
}

type Runner struct {
	cfg        *Config
	console    *logger.Console
	converter  *Converter
	properties PropertyMap
}

func NewRunner(cfg *Config, console *logger.Console) *Runner {
	return &Runner{
		cfg:        cfg,
		console:    console,
		converter:  NewConverter(cfg, console),
		properties: NewPropertyMap(cfg.Properties),
	}
}

// Run converts every asset folder, or only the configured one, and prints
// a summary. Setup problems are returned as errors; per-file failures only
// show up in the summary counts.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	timer := r.console.StartTimer("Conversion")

	info, err := os.Stat(r.cfg.AssetsDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrAssetsDirMissing, r.cfg.AssetsDir)
	}

	folders, err := r.collectFolders()
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{OutputDir: r.cfg.OutputDir, DryRun: r.cfg.DryRun}

	r.console.Info("HEIC to %s converter", strings.ToUpper(string(r.cfg.Format)))
	r.console.Info("Found %d asset folders:", len(folders))
	for _, f := range folders {
		r.console.Log("   • %s (%d files) → %s", f.Name, len(f.Files), f.Property)
	}

	if r.cfg.DryRun {
		r.printPlan(folders)
		r.console.Info("Dry run - no files will be converted")
		return summary, nil
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(r.cfg.OutputDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, r.cfg.OutputDir)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	r.console.Info("Starting conversion (quality: %d)...", r.cfg.Quality)

	for _, f := range folders {
		if ctx.Err() != nil {
			break
		}

		res := r.converter.ConvertFolder(ctx, f.Path, filepath.Join(r.cfg.OutputDir, f.Name))
		res.Property = f.Property
		if res.Successful > 0 {
			r.console.Success("%d files converted successfully", res.Successful)
		}
		if res.Failed > 0 {
			r.console.Error("%d files failed to convert", res.Failed)
		}

		summary.Folders = append(summary.Folders, res)
		summary.Successful += res.Successful
		summary.Failed += res.Failed
		summary.BytesWritten += res.BytesWritten
	}

	summary.Elapsed = timer.End()
	r.printSummary(summary)

	if r.cfg.Manifest != "" {
		manifest := BuildManifest(summary.Folders, r.properties, r.cfg.URLPrefix)
		if err := WriteManifest(r.cfg.Manifest, manifest); err != nil {
			return summary, err
		}
		r.console.Success("Wrote asset manifest: %s (%d properties)", r.cfg.Manifest, len(manifest))
	}

	if err := ctx.Err(); err != nil {
		r.console.Warn("Conversion interrupted")
		return summary, err
	}
	return summary, nil
}

// collectFolders lists the immediate subdirectories of the assets directory,
// sorted by name, or just the configured folder.
func (r *Runner) collectFolders() ([]AssetFolder, error) {
	var names []string

	if r.cfg.Folder != "" {
		if !isFolderName(r.cfg.Folder) {
			return nil, fmt.Errorf("%w: %s (expected a folder name, not a path)", ErrFolderNotFound, r.cfg.Folder)
		}
		info, err := os.Stat(filepath.Join(r.cfg.AssetsDir, r.cfg.Folder))
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, r.cfg.Folder)
		}
		names = []string{r.cfg.Folder}
	} else {
		entries, err := os.ReadDir(r.cfg.AssetsDir)
		if err != nil {
			return nil, fmt.Errorf("read assets directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
	}

	// Warnings wait for the spinner so they never share its line.
	var warnings []string
	spinner := r.console.StartSpinner("Scanning asset folders")

	folders := make([]AssetFolder, 0, len(names))
	for _, name := range names {
		path := filepath.Join(r.cfg.AssetsDir, name)
		files, skipped, err := scanHEICFiles(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Error scanning %s: %v", name, err))
		}
		for _, err := range skipped {
			warnings = append(warnings, fmt.Sprintf("Skipped unreadable entry: %v", err))
		}
		folders = append(folders, AssetFolder{
			Name:     name,
			Path:     path,
			Property: r.properties.Name(name),
			Files:    files,
		})
	}

	spinner.Stop()
	for _, w := range warnings {
		r.console.Warn("%s", w)
	}
	return folders, nil
}

// isFolderName reports whether name is a single path element naming a
// child of the assets directory.
func isFolderName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (r *Runner) printPlan(folders []AssetFolder) {
	ext := r.cfg.Format.Extension()
	for _, f := range folders {
		if len(f.Files) == 0 {
			continue
		}
		r.console.Info("%s (%d files):", f.Name, len(f.Files))
		dst := filepath.Join(r.cfg.OutputDir, f.Name)
		for _, src := range f.Files {
			r.console.Log("   Convert: %s → %s", filepath.Base(src), filepath.Join(dst, outputName(src, ext)))
		}
	}
}

func (r *Runner) printSummary(s *RunSummary) {
	t := r.console.NewTable([]string{"Folder", "Property", "Successful", "Failed", "Written"})
	for _, f := range s.Folders {
		t.AddRow(f.Folder, f.Property,
			fmt.Sprintf("%d", f.Successful),
			fmt.Sprintf("%d", f.Failed),
			humanize.Bytes(uint64(f.BytesWritten)))
	}
	t.AddRow("Total", "",
		fmt.Sprintf("%d", s.Successful),
		fmt.Sprintf("%d", s.Failed),
		humanize.Bytes(uint64(s.BytesWritten)))

	r.console.Info("Conversion Summary:")
	t.Print()
	r.console.Success("Successful: %d", s.Successful)
	if s.Failed > 0 {
		r.console.Error("Failed: %d", s.Failed)
	} else {
		r.console.Log("Failed: 0")
	}
	r.console.Info("Output directory: %s", s.OutputDir)

	if s.Successful == 0 {
		r.console.Warn("No files were converted successfully. Check the error messages above")
	}
}
