package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Renderer rasters a single PDF page to an image for vision-based extraction.
type Renderer interface {
	// RenderPage renders the given 1-based page to PNG bytes.
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// CommandRunner executes an external command and returns its combined output.
// Kept as an interface so tests can stub the poppler dependency.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// PopplerRenderer renders pages by shelling out to pdftoppm.
type PopplerRenderer struct {
	Binary string // pdftoppm path
	DPI    int
	Runner CommandRunner
}

// NewPopplerRenderer creates a renderer using the given pdftoppm binary.
func NewPopplerRenderer(binary string, dpi int) *PopplerRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &PopplerRenderer{Binary: binary, DPI: dpi, Runner: ExecRunner{}}
}

// RenderPage renders one page to PNG via pdftoppm -png -f N -l N.
func (r *PopplerRenderer) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "pagerender-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	pageArg := strconv.Itoa(page)

	out, err := r.Runner.Run(ctx, r.Binary,
		"-png",
		"-r", strconv.Itoa(r.DPI),
		"-f", pageArg,
		"-l", pageArg,
		path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, string(out))
	}

	// pdftoppm suffixes the page number; the exact zero padding depends on
	// the document's page count, so glob for it.
	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", page)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return data, nil
}

var _ Renderer = (*PopplerRenderer)(nil)
