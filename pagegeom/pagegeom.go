// CLAUDE:SUMMARY Per-page design dimensions for paginated documents via pdfcpu.
// Package pagegeom reads the native page dimensions of paginated documents.
// Paginated targets are normalized against a single page's design size, so
// resolution needs the dimensions of the page a target's pageIndex names.
package pagegeom

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/pinmark/geom"
)

// ErrPageOutOfRange reports a pageIndex beyond the document's page count.
var ErrPageOutOfRange = errors.New("pagegeom: page index out of range")

// pxPerPoint converts PDF points (1/72 in) to CSS pixels (1/96 in), the
// unit the rest of the pipeline's design space uses.
const pxPerPoint = 96.0 / 72.0

// Dims returns per-page design sizes in CSS pixels, one entry per page,
// in page order (index 0 = first page).
func Dims(r io.ReadSeeker) ([]geom.Size, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(r, conf)
	if err != nil {
		return nil, fmt.Errorf("pagegeom: read: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("pagegeom: page dims: %w", err)
	}

	sizes := make([]geom.Size, len(dims))
	for i, d := range dims {
		sizes[i] = geom.Size{
			Width:  d.Width * pxPerPoint,
			Height: d.Height * pxPerPoint,
		}
	}
	return sizes, nil
}

// DimsFile reads per-page design sizes from a document on disk.
func DimsFile(path string) ([]geom.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pagegeom: open: %w", err)
	}
	defer f.Close()
	return Dims(f)
}

// DesignFor picks the design size for one page.
func DesignFor(sizes []geom.Size, pageIndex int) (geom.Size, error) {
	if pageIndex < 0 || pageIndex >= len(sizes) {
		return geom.Size{}, fmt.Errorf("%w: %d of %d pages", ErrPageOutOfRange, pageIndex, len(sizes))
	}
	return sizes[pageIndex], nil
}
