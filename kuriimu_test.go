package kuriimu

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cegfdb/Kuriimu/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Channels of 0x00 or 0xff survive 5-bit palettes unchanged
var testColors = []color.NRGBA{
	{0, 0, 0, 0xff},
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0, 0, 0xff},
	{0, 0xff, 0, 0xff},
}

func stripes(w, h, n int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, testColors[(x+y)%n])
		}
	}
	return m
}

func gradient(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 8), uint8(y * 8), 0x80, 0xff})
		}
	}
	return m
}

func savePNG(t *testing.T, file string, m image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func loadPNG(t *testing.T, file string) image.Image {
	t.Helper()
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	m, err := png.Decode(f)
	require.NoError(t, err)
	return m
}

func sourceTree(t *testing.T) string {
	dir := t.TempDir()
	savePNG(t, filepath.Join(dir, "a.png"), stripes(16, 8, 2))
	savePNG(t, filepath.Join(dir, "sub", "b.png"), stripes(10, 3, 4))
	savePNG(t, filepath.Join(dir, "many.png"), gradient(8, 4))
	savePNG(t, filepath.Join(dir, ".hidden", "c.png"), stripes(8, 8, 2))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644))
	return dir
}

func newKuriimu(t *testing.T, opts Options) (*Kuriimu, *TextureDB) {
	db := openDB(t)
	return New(db, log.New(io.Discard, "", 0), opts), db
}

func TestImport(t *testing.T) {
	dir := sourceTree(t)
	k, db := newKuriimu(t, DefaultOptions())

	require.NoError(t, k.Import(dir))

	names, err := db.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "sub/b"}, names)

	r, err := db.FindTextureByName("sub/b")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 10, r.Settings.Width)
	assert.Equal(t, 3, r.Settings.Height)
	assert.Len(t, r.Palette, 8)

	// Importing again changes nothing
	require.NoError(t, k.Import(dir))
	again, err := db.Names()
	require.NoError(t, err)
	assert.Equal(t, names, again)
}

func TestImportQuantize(t *testing.T) {
	opts := DefaultOptions()
	opts.Quantize = true
	opts.Workers = 2
	k, db := newKuriimu(t, opts)

	require.NoError(t, k.Import(sourceTree(t)))

	names, err := db.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "many", "sub/b"}, names)

	r, err := db.FindTextureByName("many")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.LessOrEqual(t, len(r.Palette)/2, 16)
}

func TestImportBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Settings.BitsPerIndex = 3
	k, _ := newKuriimu(t, opts)

	assert.ErrorIs(t, k.Import(t.TempDir()), texture.ErrUnsupportedBitLength)
}

func TestExport(t *testing.T) {
	k, _ := newKuriimu(t, DefaultOptions())
	require.NoError(t, k.Import(sourceTree(t)))

	out := t.TempDir()
	require.NoError(t, k.Export(out))

	for name, want := range map[string]*image.NRGBA{
		"a.png":     stripes(16, 8, 2),
		"sub/b.png": stripes(10, 3, 4),
	} {
		got := loadPNG(t, filepath.Join(out, filepath.FromSlash(name)))
		require.Equal(t, want.Bounds(), got.Bounds(), name)
		for y := 0; y < want.Bounds().Dy(); y++ {
			for x := 0; x < want.Bounds().Dx(); x++ {
				assert.Equal(t, want.NRGBAAt(x, y), color.NRGBAModel.Convert(got.At(x, y)), "%s (%d, %d)", name, x, y)
			}
		}
	}
}

func TestEncodeImage(t *testing.T) {
	opts := DefaultOptions()
	opts.Settings.BitsPerIndex = texture.Bit8

	r, err := EncodeImage("g", gradient(8, 4), opts)
	require.NoError(t, err)
	assert.Len(t, r.Palette, 64)
	assert.Len(t, r.Indices, 64)

	opts.Settings.BitsPerIndex = texture.Bit4
	_, err = EncodeImage("g", gradient(8, 4), opts)
	assert.ErrorIs(t, err, texture.ErrPaletteOverflow)

	opts.Quantize = true
	r, err = EncodeImage("g", gradient(8, 4), opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(r.Palette)/2, 16)

	// An image that already fits keeps its own colors in first-seen order
	r, err = EncodeImage("s", stripes(8, 8, 2), opts)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xff, 0x7f}, r.Palette)
}

func TestImportTrailingData(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stripes(8, 8, 2)))
	buf.Write(bytes.Repeat([]byte{0xaa}, 64<<10))
	data := buf.Bytes()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tail.png"), data, 0644))

	k, db := newKuriimu(t, DefaultOptions())
	require.NoError(t, k.Import(dir))

	r, err := db.FindTextureBySHA1(fmt.Sprintf("%X", sha1.Sum(data)))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "tail", r.Name)
}

func TestImportUnchanged(t *testing.T) {
	dir := sourceTree(t)
	db := openDB(t)

	require.NoError(t, New(db, log.New(io.Discard, "", 0), DefaultOptions()).Import(dir))

	var buf bytes.Buffer
	require.NoError(t, New(db, log.New(&buf, "", 0), DefaultOptions()).Import(dir))
	assert.Contains(t, buf.String(), "Unchanged \"")
	assert.NotContains(t, buf.String(), "Stored")
}

func TestImportSkipsLongNames(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, filepath.Join(dir, "ok.png"), stripes(8, 8, 2))
	savePNG(t, filepath.Join(dir, strings.Repeat("d", 200), strings.Repeat("n", 60)+".png"), stripes(8, 8, 2))

	k, db := newKuriimu(t, DefaultOptions())
	require.NoError(t, k.Import(dir))

	names, err := db.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names)
}

func importWithTimeout(t *testing.T, k *Kuriimu, dir string) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- k.Import(dir)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("import did not return")
	}
	return nil
}

func TestImportStoreFailure(t *testing.T) {
	dir := sourceTree(t)
	k, db := newKuriimu(t, DefaultOptions())

	_, err := db.db.Exec("CREATE TRIGGER readonly BEFORE INSERT ON texture BEGIN SELECT RAISE(ABORT, 'catalog is read-only'); END")
	require.NoError(t, err)

	err = importWithTimeout(t, k, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog is read-only")
	assert.Regexp(t, `^(a|sub/b): `, err.Error())
}

func TestImportClosedCatalog(t *testing.T) {
	dir := sourceTree(t)

	db, err := NewTextureDB(filepath.Join(t.TempDir(), "kuriimu.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	k := New(db, log.New(io.Discard, "", 0), DefaultOptions())

	err = importWithTimeout(t, k, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
	assert.Contains(t, err.Error(), dir)
}
