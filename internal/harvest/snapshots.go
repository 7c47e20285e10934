package harvest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/zyniel/westie/internal/page"
	"github.com/zyniel/westie/internal/site"
)

// SnapshotOptions configures a SnapshotCapturer.
type SnapshotOptions struct {
	// Dir receives one <index>.png per item.
	Dir string
	// RowSelector, when set, crops to this child of the item instead of
	// the item itself.
	RowSelector string
	// IndexAttribute names the attribute holding an item's stable
	// position. Defaults to site.IndexAttribute.
	IndexAttribute string
	Metrics        *Metrics
}

// SnapshotCapturer saves a cropped screenshot of each item.
type SnapshotCapturer struct {
	page      page.Adapter
	opts      SnapshotOptions
	attr      string
	lastIndex int
	saved     map[int]string
}

// NewSnapshotCapturer creates opts.Dir when missing.
func NewSnapshotCapturer(p page.Adapter, opts SnapshotOptions) (*SnapshotCapturer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if opts.IndexAttribute == "" {
		opts.IndexAttribute = site.IndexAttribute
	}
	return &SnapshotCapturer{
		page:      p,
		opts:      opts,
		attr:      opts.IndexAttribute,
		lastIndex: -1,
		saved:     make(map[int]string),
	}, nil
}

// LastIndex implements Processor.
func (s *SnapshotCapturer) LastIndex() int { return s.lastIndex }

// Saved returns the path written for each index.
func (s *SnapshotCapturer) Saved() map[int]string {
	out := make(map[int]string, len(s.saved))
	for k, v := range s.saved {
		out[k] = v
	}
	return out
}

// Process implements Processor. Indices saved earlier in the run succeed
// without a new capture.
func (s *SnapshotCapturer) Process(ctx context.Context, item Item) bool {
	logger := zerolog.Ctx(ctx)

	idx, err := readIndex(ctx, s.page, item.Handle, s.attr)
	if err != nil {
		s.opts.Metrics.observeFailure(err)
		logger.Warn().Err(err).Str("item", item.Handle.String()).Msg("Skipping item without a usable index")
		return false
	}
	s.lastIndex = idx

	if _, ok := s.saved[idx]; ok {
		return true
	}

	rect := s.cropRect(ctx, item)

	surface, err := s.page.CaptureSurface(ctx)
	if err != nil {
		s.fail(ctx, idx, NewError(CodeCaptureFailure, "surface capture failed", err))
		return false
	}

	cropped, err := Crop(surface, rect)
	if err != nil {
		s.fail(ctx, idx, err)
		return false
	}

	path := filepath.Join(s.opts.Dir, strconv.Itoa(idx)+".png")
	if err := os.WriteFile(path, cropped, 0o644); err != nil {
		s.fail(ctx, idx, NewError(CodeCaptureFailure, "failed to write snapshot", err))
		return false
	}

	s.saved[idx] = path
	logger.Debug().Int("index", idx).Str("path", path).Msg("Snapshot saved")
	return true
}

func (s *SnapshotCapturer) cropRect(ctx context.Context, item Item) page.Rect {
	if s.opts.RowSelector == "" {
		return item.Rect
	}
	row, err := s.page.Find(ctx, s.opts.RowSelector, item.Handle)
	if err != nil {
		return item.Rect
	}
	r, err := s.page.Geometry(ctx, row)
	if err != nil || r.Empty() {
		return item.Rect
	}
	return r
}

func (s *SnapshotCapturer) fail(ctx context.Context, idx int, err error) {
	s.opts.Metrics.observeFailure(err)
	zerolog.Ctx(ctx).Warn().Err(err).Int("index", idx).Msg("Snapshot failed")
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop cuts r out of a PNG surface and re-encodes it as PNG. The rectangle is
// clipped to the surface; an empty intersection is an error.
func Crop(surface []byte, r page.Rect) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(surface))
	if err != nil {
		return nil, NewError(CodeCaptureFailure, "surface is not a PNG", err)
	}

	area := image.Rect(r.X, r.Y, r.X+r.Width, r.Bottom()).Intersect(img.Bounds())
	if area.Empty() {
		return nil, NewError(CodeCaptureFailure, "crop area is outside the surface", nil).
			WithDetail("rect", r)
	}

	si, ok := img.(subImager)
	if !ok {
		return nil, NewError(CodeCaptureFailure, fmt.Sprintf("cannot crop %T", img), nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(area)); err != nil {
		return nil, NewError(CodeCaptureFailure, "failed to encode snapshot", err)
	}
	return buf.Bytes(), nil
}
