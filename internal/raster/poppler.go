package raster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PopplerEngine shells out to pdftoppm, the same renderer the service's
// predecessor used through pdf2image. It needs poppler-utils on the image.
type PopplerEngine struct {
	bin string
}

func NewPopplerEngine(bin string) *PopplerEngine {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &PopplerEngine{bin: bin}
}

func (e *PopplerEngine) Render(ctx context.Context, pdf []byte, opts RenderOptions) ([][]byte, error) {
	workDir, err := os.MkdirTemp("", "pdf-converter-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(inputPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	prefix := filepath.Join(workDir, "page")
	args := []string{
		"-jpeg",
		"-r", strconv.Itoa(opts.DPI),
		"-jpegopt", fmt.Sprintf("quality=%d", opts.JPEGQuality),
	}
	if opts.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(opts.MaxPages))
	}
	args = append(args, inputPath, prefix)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pdftoppm: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}

	return collectPages(prefix)
}

// collectPages reads the numbered JPEG files pdftoppm left next to prefix,
// in page order.
func collectPages(prefix string) ([][]byte, error) {
	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages")
	}

	sort.Slice(matches, func(i, j int) bool {
		return pageNumberOf(matches[i]) < pageNumberOf(matches[j])
	})

	pages := make([][]byte, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", filepath.Base(path), err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

// pageNumberOf parses the page number out of a pdftoppm output name like
// page-07.jpg. Lexical order is wrong past page 9 when pdftoppm pads
// inconsistently, so sort numerically.
func pageNumberOf(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
