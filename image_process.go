package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"heicconv/logger"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/heic"
	"golang.org/x/image/draw"
)

// Decoder turns an encoded source image into pixels.
type Decoder func(r io.Reader) (image.Image, error)

type Converter struct {
	Decode  Decoder
	Format  OutputFormat
	Quality int
	Speed   int
	Console *logger.Console
}

type FolderResult struct {
	Folder       string
	Property     string
	Discovered   int
	Successful   int
	Failed       int
	BytesWritten int64
	Outputs      []string
}

func NewConverter(cfg *Config, console *logger.Console) *Converter {
	return &Converter{
		Decode:  heic.Decode,
		Format:  cfg.Format,
		Quality: cfg.Quality,
		Speed:   cfg.Speed,
		Console: console,
	}
}

// ConvertFolder converts every HEIC file under srcDir into dstDir. A file
// that fails is logged and counted; the remaining files are still
// processed. Cancelling ctx stops the loop before the next file.
func (c *Converter) ConvertFolder(ctx context.Context, srcDir, dstDir string) FolderResult {
	result := FolderResult{Folder: filepath.Base(srcDir)}

	files, skipped, err := scanHEICFiles(srcDir)
	if err != nil {
		c.Console.Error("Error scanning %s: %v", srcDir, err)
		return result
	}
	for _, err := range skipped {
		c.Console.Warn("Skipped unreadable entry: %v", err)
	}
	result.Discovered = len(files)

	c.Console.Info("Processing folder: %s", result.Folder)
	c.Console.Log("   Found %d HEIC files", len(files))

	bar := c.Console.NewProgressBar(int64(len(files)), result.Folder)
	defer bar.Complete()

	ext := c.Format.Extension()
	for _, src := range files {
		if ctx.Err() != nil {
			return result
		}

		name := outputName(src, ext)
		dst := filepath.Join(dstDir, name)
		if !c.Console.Interactive {
			c.Console.Log("   Converting: %s → %s", filepath.Base(src), name)
		}

		n, err := c.ConvertFile(src, dst)
		if err != nil {
			result.Failed++
			c.Console.Error("Error converting %s: %v", filepath.Base(src), err)
		} else {
			result.Successful++
			result.BytesWritten += n
			result.Outputs = append(result.Outputs, dst)
		}
		bar.Increment(1)
	}

	return result
}

// ConvertFile decodes src, flattens alpha and palette images to opaque RGB
// and writes the encoded result to dst. The destination only appears once
// encoding has succeeded. It returns the size of the written file.
func (c *Converter) ConvertFile(src, dst string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	img, err := c.decode(f)
	if err != nil {
		return 0, fmt.Errorf("error decoding image: %w", err)
	}

	if needsFlatten(img) {
		img = flattenToRGB(img)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("error creating output directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst))
	tempFile, err := os.CreateTemp(dir, "."+stem+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("error creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	committed := false
	defer func() {
		if !committed {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if err := c.encode(tempFile, img); err != nil {
		return 0, fmt.Errorf("error encoding to %s: %w", c.Format, err)
	}
	if err := tempFile.Close(); err != nil {
		return 0, fmt.Errorf("error closing temporary file: %w", err)
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to get output file info: %w", err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		return 0, fmt.Errorf("error renaming file: %w", err)
	}
	committed = true

	return info.Size(), nil
}

// decode runs the configured decoder and turns a codec panic into an error.
func (c *Converter) decode(r io.Reader) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("codec panic: %v", p)
		}
	}()

	decode := c.Decode
	if decode == nil {
		decode = heic.Decode
	}
	return decode(r)
}

// encode writes img in the configured format. image/jpeg has no
// Huffman-table optimisation switch, so JPEG output is plain baseline.
func (c *Converter) encode(w io.Writer, img image.Image) error {
	switch c.Format {
	case FormatAVIF:
		return avif.Encode(w, img, avif.Options{
			Quality:           c.Quality,
			QualityAlpha:      c.Quality,
			Speed:             c.Speed,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: c.Quality})
	}
}

// needsFlatten reports whether img carries an alpha channel or a palette.
func needsFlatten(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return false
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64,
		*image.Paletted, *image.Alpha, *image.Alpha16, *image.NYCbCrA:
		return true
	}

	model := img.ColorModel()
	if _, ok := model.(color.Palette); ok {
		return true
	}
	switch model {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	}
	return false
}

// flattenToRGB drops alpha without compositing: every pixel keeps its
// straight (non-premultiplied) colour and becomes fully opaque.
func flattenToRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(bounds)
	if src, ok := img.(*image.NRGBA); ok {
		// Straight copy keeps the colour of fully transparent pixels,
		// which a premultiplied draw would zero.
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			copy(nrgba.Pix[nrgba.PixOffset(bounds.Min.X, y):nrgba.PixOffset(bounds.Max.X, y)],
				src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)])
		}
	} else {
		draw.Draw(nrgba, bounds, img, bounds.Min, draw.Src)
	}

	for i := 3; i < len(nrgba.Pix); i += 4 {
		nrgba.Pix[i] = 0xff
	}

	return &image.RGBA{Pix: nrgba.Pix, Stride: nrgba.Stride, Rect: nrgba.Rect}
}
