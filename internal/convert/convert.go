package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedFormat is returned for any target format other than webp.
	ErrUnsupportedFormat = errors.New("only conversion to WEBP is supported (use --to webp)")
	// ErrNotPNG is returned when a single input file is not a .png.
	ErrNotPNG = errors.New("input must be a .png file or a directory containing .png files")
)

// Conversion records one converted file.
type Conversion struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Converter turns PNG images into lossless WEBP.
type Converter struct {
	Concurrency int
	Log         *slog.Logger
}

func New(concurrency int, log *slog.Logger) *Converter {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Converter{
		Concurrency: concurrency,
		Log:         log,
	}
}

// Convert converts path, a .png file or a directory of them, to the target
// format. Directories are not walked recursively. Results follow directory
// order.
func (c *Converter) Convert(ctx context.Context, path, to string) ([]Conversion, error) {
	if strings.ToLower(strings.TrimSpace(to)) != "webp" {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedFormat, to)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var sources []string
	if info.IsDir() {
		sources, err = pngFiles(abs)
		if err != nil {
			return nil, err
		}
	} else {
		if !isPNG(abs) {
			return nil, ErrNotPNG
		}
		sources = []string{abs}
	}
	if len(sources) == 0 {
		return []Conversion{}, nil
	}

	results := make([]Conversion, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".webp"
			if err := c.convertOne(gctx, src, dst); err != nil {
				return fmt.Errorf("convert %s: %w", filepath.Base(src), err)
			}
			results[i] = Conversion{Src: src, Dst: dst}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Converter) convertOne(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	img, err := png.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("not a valid png: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeWebP(dst, img); err != nil {
		os.Remove(dst)
		return err
	}
	b := img.Bounds()
	c.Log.Debug("converted image", "src", src, "dst", dst, "width", b.Dx(), "height", b.Dy())
	return nil
}

func writeWebP(dst string, img image.Image) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dst), err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(dst), cerr)
		}
	}()

	// nativewebp ignores short writes; the buffered writer surfaces them on Flush.
	w := bufio.NewWriter(out)
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// pngFiles lists regular .png files in dir, following symlinks.
func pngFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !isPNG(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func isPNG(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".png")
}
