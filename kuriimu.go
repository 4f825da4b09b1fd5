/*
Package kuriimu is a library for converting images to and from tiled
indexed-color textures and for keeping a catalog of converted textures.
*/
package kuriimu

import (
	"image"
	"image/color"
	"log"

	"github.com/cegfdb/Kuriimu/container"
	"github.com/cegfdb/Kuriimu/palette"
	"github.com/cegfdb/Kuriimu/texture"
)

const defaultWorkers = 10

// Options control how images are converted.
type Options struct {
	// Settings used for every texture, the width and height are taken from
	// each image
	Settings texture.Settings
	Format   palette.Format
	// Quantize reduces images with too many colors instead of failing
	Quantize bool
	Workers  int
}

// DefaultOptions returns 4-bit, BGR555 options with the default layout.
func DefaultOptions() Options {
	return Options{
		Settings: texture.NewSettings(0, 0, texture.Bit4),
		Format:   palette.BGR555,
		Workers:  defaultWorkers,
	}
}

// EncodeImage converts m into a texture record named name. The palette is
// built from the colors of m; if there are more than the bit depth allows
// and opts.Quantize is set the image is reduced to fit first.
func EncodeImage(name string, m image.Image, opts Options) (*container.Record, error) {
	n, err := opts.Settings.BitsPerIndex.Colors()
	if err != nil {
		return nil, err
	}

	var p color.Palette
	if opts.Quantize {
		p, m = palette.Fit(m, n)
	} else {
		p = palette.Build(m)
	}

	return container.NewRecord(name, m, opts.Settings, opts.Format, p)
}

type Kuriimu struct {
	db     *TextureDB
	logger *log.Logger
	opts   Options
}

func New(db *TextureDB, logger *log.Logger, opts Options) *Kuriimu {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Kuriimu{
		db:     db,
		logger: logger,
		opts:   opts,
	}
}
