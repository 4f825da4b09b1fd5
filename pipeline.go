package kuriimu

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cegfdb/Kuriimu/container"
	_ "golang.org/x/image/bmp"
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
}

type encoded struct {
	name   string
	sha    string
	record *container.Record
}

func textureName(base, file string) (string, error) {
	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))), nil
}

func (k *Kuriimu) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if _, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]; !ok {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// Errors returned by encodeFile that only concern that file
type skipError struct {
	err error
}

func (e skipError) Error() string { return e.err.Error() }

func (e skipError) Unwrap() error { return e.err }

func (k *Kuriimu) encodeFile(base, file string) (*encoded, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha1.New()
	m, _, err := image.Decode(io.TeeReader(f, h))
	if err != nil {
		return nil, skipError{err}
	}

	// Decoders stop at the end of the image, hash anything after it too
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	sha := fmt.Sprintf("%X", h.Sum(nil))

	name, err := textureName(base, file)
	if err != nil {
		return nil, err
	}

	old, err := k.db.FindTextureBySHA1(sha)
	if err != nil {
		return nil, err
	}
	if unchanged(old, name) {
		return nil, nil
	}

	r, err := EncodeImage(name, m, k.opts)
	if err != nil {
		return nil, skipError{err}
	}

	return &encoded{
		name:   name,
		sha:    sha,
		record: r,
	}, nil
}

// unchanged reports whether r, found by the SHA-1 of a source, is already
// stored under name. AddTexture would keep it as is.
func unchanged(r *container.Record, name string) bool {
	return r != nil && r.Name == name
}

func (k *Kuriimu) encodeWorker(ctx context.Context, base string, in <-chan string, out chan<- encoded, wg *sync.WaitGroup) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer wg.Done()
		for file := range in {
			e, err := k.encodeFile(base, file)
			if err != nil {
				var skip skipError
				if errors.As(err, &skip) {
					k.logger.Printf("Skipping \"%s\": %s\n", file, err)
					continue
				}
				errc <- fmt.Errorf("%s: %w", file, err)
				return
			}
			if e == nil {
				k.logger.Printf("Unchanged \"%s\"\n", file)
				continue
			}

			select {
			case out <- *e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return errc, nil
}

func (k *Kuriimu) storeWorker(ctx context.Context, in <-chan encoded) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for e := range in {
			if _, err := k.db.AddTexture(e.name, e.sha, e.record); err != nil {
				errc <- fmt.Errorf("%s: %w", e.name, err)
				return
			}
			k.logger.Printf("Stored \"%s\" (%dx%d, %d colors)\n", e.name, e.record.Settings.Width, e.record.Settings.Height, len(e.record.Palette)/2)
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Import encodes every image found under path and stores it in the catalog
// named after its path relative to path, without the extension. Images that
// cannot be decoded or converted are logged and skipped.
func (k *Kuriimu) Import(path string) error {
	if _, err := k.opts.Settings.BitsPerIndex.Colors(); err != nil {
		return err
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := k.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	results := make(chan encoded)
	var wg sync.WaitGroup
	for i := 0; i < k.opts.Workers; i++ {
		wg.Add(1)
		errc, err := k.encodeWorker(ctx, dir, files, results, &wg)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	errc, err = k.storeWorker(ctx, results)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	return waitForPipeline(errcList...)
}

// Export decodes every texture in the catalog and writes it as a PNG file
// under dir.
func (k *Kuriimu) Export(dir string) error {
	names, err := k.db.Names()
	if err != nil {
		return err
	}

	for _, name := range names {
		r, err := k.db.FindTextureByName(name)
		if err != nil {
			return err
		}
		if r == nil {
			continue
		}

		m, err := r.Image()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		file := filepath.Join(dir, filepath.FromSlash(name)+".png")
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return err
		}
		if err := writePNG(file, m); err != nil {
			return err
		}

		k.logger.Printf("Exported \"%s\" to \"%s\"\n", name, file)
	}

	return nil
}

func writePNG(file string, m image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
