// Package charts renders report chart data to PNG or SVG with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

var (
	// ErrNoPanels is returned when a gender chart has no hospitals to draw.
	ErrNoPanels = errors.New("gender chart has no panels")
	// ErrUnsupportedFormat is returned for formats other than png and svg.
	ErrUnsupportedFormat = errors.New("unsupported chart format")
)

// Options control the rendered image size.
type Options struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions is a 10x4 inch canvas.
func DefaultOptions() Options {
	return Options{Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

// OptionsInches builds Options from inch dimensions, falling back to the
// defaults for non-positive values.
func OptionsInches(width, height float64) Options {
	opts := DefaultOptions()
	if width > 0 {
		opts.Width = vg.Length(width) * vg.Inch
	}
	if height > 0 {
		opts.Height = vg.Length(height) * vg.Inch
	}
	return opts
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	return o
}

// NormalizeFormat lower-cases format and checks it is supported.
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	switch f {
	case FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type of a supported format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// render draws fn onto a canvas of the given format and writes it to w.
func render(w io.Writer, format string, opts Options, fn func(dc draw.Canvas) error) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()

	c, err := draw.NewFormattedCanvas(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("failed to create %s canvas: %w", format, err)
	}
	if err := fn(draw.New(c)); err != nil {
		return err
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write %s chart: %w", format, err)
	}
	return nil
}
