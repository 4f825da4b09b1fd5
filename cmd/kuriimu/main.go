package main

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cegfdb/Kuriimu"
	"github.com/cegfdb/Kuriimu/palette"
	"github.com/cegfdb/Kuriimu/texture"
	"github.com/nfnt/resize"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/bmp"
)

const defaultDB = "kuriimu.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func readImage(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	return m, err
}

func writeImage(file string, m image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".bmp":
		err = bmp.Encode(f, m)
	default:
		err = png.Encode(f, m)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func openCatalog(c *cli.Context, opts kuriimu.Options) (*kuriimu.Kuriimu, *kuriimu.TextureDB, error) {
	db, err := kuriimu.NewTextureDB(c.String("db"))
	if err != nil {
		return nil, nil, err
	}
	return kuriimu.New(db, newLogger(c), opts), db, nil
}

func decodeAction(c *cli.Context) error {
	if c.NArg() < 3 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, f, err := settingsFromContext(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	pf, err := os.Open(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pf.Close()

	p, err := palette.Decode(pf, f)
	if err != nil {
		return cli.Exit(err, 1)
	}

	tf, err := os.Open(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer tf.Close()

	logger := newLogger(c)

	fi, err := tf.Stat()
	if err != nil {
		return cli.Exit(err, 1)
	}
	warning, err := shortStream(s, fi.Size())
	if err != nil {
		return cli.Exit(err, 1)
	}
	if warning != "" {
		logger.Println(warning)
	}

	m, err := texture.Decode(tf, s, p)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeImage(c.Args().Get(2), m); err != nil {
		return cli.Exit(err, 1)
	}

	logger.Printf("Decoded %dx%d texture with %d colors\n", s.Width, s.Height, len(p))

	return nil
}

func encodeAction(c *cli.Context) error {
	if c.NArg() < 3 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, f, err := settingsFromContext(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := readImage(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.IsSet("resize") {
		w, h, err := parseSize(c.String("resize"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		m = resize.Resize(w, h, m, resize.NearestNeighbor)
	}

	opts := kuriimu.Options{
		Settings: s,
		Format:   f,
		Quantize: c.Bool("quantize"),
	}

	r, err := kuriimu.EncodeImage(filepath.Base(c.Args().Get(0)), m, opts)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := os.WriteFile(c.Args().Get(1), r.Indices, 0644); err != nil {
		return cli.Exit(err, 1)
	}

	if err := os.WriteFile(c.Args().Get(2), r.Palette, 0644); err != nil {
		return cli.Exit(err, 1)
	}

	newLogger(c).Printf("Encoded %dx%d texture with %d colors into %d bytes\n", r.Settings.Width, r.Settings.Height, len(r.Palette)/2, len(r.Indices))

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "kuriimu"
	app.Usage = "Tiled indexed-color texture conversion utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"KURIIMU_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "decode",
			Usage:     "Decode a texture and palette into an image",
			ArgsUsage: "TEXTURE PALETTE OUTPUT",
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:     "width",
					Aliases:  []string{"W"},
					Required: true,
					Usage:    "texture width in pixels",
				},
				&cli.IntFlag{
					Name:     "height",
					Aliases:  []string{"H"},
					Required: true,
					Usage:    "texture height in pixels",
				},
			}, codecFlags()...),
			Action: decodeAction,
		},
		{
			Name:      "encode",
			Usage:     "Encode an image into a texture and palette",
			ArgsUsage: "IMAGE TEXTURE PALETTE",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "resize",
					Usage: "resize the image to WIDTHxHEIGHT first",
				},
				&cli.BoolFlag{
					Name:    "quantize",
					Aliases: []string{"q"},
					Usage:   "reduce the image colors to fit the palette",
				},
			}, codecFlags()...),
			Action: encodeAction,
		},
		{
			Name:      "import",
			Usage:     "Encode a directory of images into the database",
			ArgsUsage: "DIRECTORY",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:    "quantize",
					Aliases: []string{"q"},
					Usage:   "reduce image colors to fit the palette",
				},
				&cli.IntFlag{
					Name:  "workers",
					Value: kuriimu.DefaultOptions().Workers,
					Usage: "number of images to encode at once",
				},
			}, codecFlags()...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				s, f, err := settingsFromContext(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				k, db, err := openCatalog(c, kuriimu.Options{
					Settings: s,
					Format:   f,
					Quantize: c.Bool("quantize"),
					Workers:  c.Int("workers"),
				})
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				if err := k.Import(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "export",
			Usage:     "Decode every texture in the database into PNG files",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				k, db, err := openCatalog(c, kuriimu.DefaultOptions())
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				if err := k.Export(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
