package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cegfdb/Kuriimu/palette"
	"github.com/cegfdb/Kuriimu/swizzle"
	"github.com/cegfdb/Kuriimu/texture"
	"github.com/urfave/cli/v2"
)

var errBadSize = errors.New("size must be WIDTHxHEIGHT")

// Flags shared by every command that converts textures
func codecFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "bits",
			Aliases: []string{"b"},
			Value:   int(texture.Bit4),
			Usage:   "bits per palette index, 4 or 8",
		},
		&cli.StringFlag{
			Name:    "orientation",
			Aliases: []string{"o"},
			Value:   swizzle.Default.String(),
			Usage:   "tile orientation: default, transpose-tile, rotate90 or transpose",
		},
		&cli.IntFlag{
			Name:  "tile-size",
			Value: swizzle.DefaultTileSize,
			Usage: "tile edge in pixels",
		},
		&cli.BoolFlag{
			Name:  "no-pow2",
			Usage: "do not pad the layout to a power of two",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   palette.BGR555.String(),
			Usage:   "palette color format: bgr555 or abgr1555",
		},
	}
}

func parseSettings(width, height, bits int, orientation string, tileSize int, noPow2 bool) (texture.Settings, error) {
	s := texture.NewSettings(width, height, texture.BitDepth(bits))
	if _, err := s.BitsPerIndex.Colors(); err != nil {
		return s, err
	}

	o, err := swizzle.ParseOrientation(orientation)
	if err != nil {
		return s, err
	}
	s.Orientation = o
	s.TileSize = tileSize
	s.PadToPowerOfTwo = !noPow2

	return s, nil
}

func settingsFromContext(c *cli.Context) (texture.Settings, palette.Format, error) {
	s, err := parseSettings(c.Int("width"), c.Int("height"), c.Int("bits"), c.String("orientation"), c.Int("tile-size"), c.Bool("no-pow2"))
	if err != nil {
		return s, 0, err
	}

	f, err := palette.ParseFormat(c.String("format"))
	if err != nil {
		return s, 0, err
	}

	return s, f, nil
}

// parseSize parses "WIDTHxHEIGHT"
func parseSize(v string) (uint, uint, error) {
	parts := strings.SplitN(strings.ToLower(v), "x", 2)
	if len(parts) != 2 {
		return 0, 0, errBadSize
	}

	w, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadSize, err)
	}
	h, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadSize, err)
	}
	if w == 0 || h == 0 {
		return 0, 0, errBadSize
	}

	return uint(w), uint(h), nil
}

// shortStream returns a warning when a texture of size bytes cannot cover
// the whole layout described by s
func shortStream(s texture.Settings, size int64) (string, error) {
	want, err := texture.StreamSize(s)
	if err != nil {
		return "", err
	}
	if size >= int64(want) {
		return "", nil
	}
	return fmt.Sprintf("Texture is %d bytes, %d expected, missing pixels will be transparent", size, want), nil
}
