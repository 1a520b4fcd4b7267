package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/planetrack-go/internal/testutil"
)

func TestListAndLoadImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(testutil.Texture(40, 30, 5, 1), filepath.Join(dir, "b.png")))
	require.NoError(t, imaging.Save(testutil.Texture(20, 10, 5, 2), filepath.Join(dir, "a.PNG")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	paths, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PNG"), filepath.Join(dir, "b.png")}, paths)

	img, err := LoadImage(paths[1])
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestListImages_Empty(t *testing.T) {
	_, err := ListImages(t.TempDir())
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestLoadImage_Missing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestResizeToMax(t *testing.T) {
	img := testutil.Flat(400, 200, 10)

	same := ResizeToMax(img, 0, 0)
	assert.Equal(t, img.Bounds(), same.Bounds())

	out := ResizeToMax(img, 100, 0)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())

	out = ResizeToMax(img, 1000, 100)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())

	small := ResizeToMax(img, 800, 800)
	assert.Equal(t, img.Bounds(), small.Bounds())
}
